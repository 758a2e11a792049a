// Command node runs the chain node: config loading, gRPC surface, and the
// node's in-memory state (spec §6.5). Grounded on the teacher's
// cmd/synnergy/main.go root-command/subcommand shape.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jurajselep/openmina/internal/config"
	"github.com/jurajselep/openmina/internal/kernel"
	"github.com/jurajselep/openmina/internal/reducer"
	"github.com/jurajselep/openmina/internal/rpc"
	"github.com/jurajselep/openmina/internal/state"
)

// Version is the node binary's reported version string (spec §6.5
// "version").
const Version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{Use: "node"}
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func startCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the node's gRPC surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logrus.StandardLogger()
			level, err := logrus.ParseLevel(cfg.Global.LogLevel)
			if err != nil {
				level = logrus.InfoLevel
			}
			logger.SetLevel(level)

			k := kernel.New(state.New(), reducer.New(), nil)
			srv := rpc.NewGRPCServer(k)
			logger.Infof("node listening on %s", cfg.Global.RpcAddr)
			return rpc.Serve(srv, cfg.Global.RpcAddr)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay to merge (e.g. devnet, mainnet)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config"}
	var env string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "load and validate the node configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
	validate.Flags().StringVar(&env, "env", "", "environment overlay to merge (e.g. devnet, mainnet)")
	cmd.AddCommand(validate)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the node's version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}
