// Command licforge generates signing keys, preseed files, and hardware-bound
// licenses, and verifies licenses on the machine it runs on.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"licforge/internal/config"
)

const version = "1.0.0"

var (
	configPath string
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "licforge",
		Short:         "Offline licensing with ECDSA signatures and hardware fingerprinting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			slog.SetDefault(cfg.Logging.NewLogger())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (optional)")

	rootCmd.AddCommand(generateKeysCmd())
	rootCmd.AddCommand(generatePreseedCmd())
	rootCmd.AddCommand(generateLicenseCmd())
	rootCmd.AddCommand(verifyLicenseCmd())
	rootCmd.AddCommand(hardwareInfoCmd())
	rootCmd.AddCommand(autoVerifyCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("licforge version %s\n", version)
		},
	}
}
