package config

import "testing"

func TestDefaultPassesValidate(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected the default config to validate, got %v", err)
	}
}

func TestValidateRejectsZeroLedgerDepth(t *testing.T) {
	c := Default()
	c.Ledger.Depth = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("expected a zero ledger depth to fail validation")
	}
}

func TestValidateRequiresPublicKeyWhenBlockProducerEnabled(t *testing.T) {
	c := Default()
	c.BlockProducer.Enabled = true
	if err := c.Validate(); err == nil {
		t.Fatalf("expected a missing public key to fail validation")
	}
	c.BlockProducer.PublicKey = "B62q..."
	if err := c.Validate(); err != nil {
		t.Fatalf("expected validation to pass once a public key is set: %v", err)
	}
}

func TestValidateRequiresPostgresURLWhenArchiveEnabled(t *testing.T) {
	c := Default()
	c.Archive.Enabled = true
	if err := c.Validate(); err == nil {
		t.Fatalf("expected a missing postgres_url to fail validation")
	}
}
