package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"licforge/internal/license"
)

func autoVerifyCmd() *cobra.Command {
	var (
		skipHardware bool
		skipExpiry   bool
		jsonOutput   bool
	)
	cmd := &cobra.Command{
		Use:   "auto-verify [directory]",
		Short: "Discover license and key files in a directory and verify every license",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			result := license.AutoVerify(afero.NewOsFs(), dir, license.AutoVerifyOptions{
				CheckHardware:   !skipHardware,
				CheckExpiry:     !skipExpiry,
				PreseedFallback: cfg.Preseed.Value,
				MaxDepth:        cfg.Discovery.MaxDepth,
				MaxFiles:        cfg.Discovery.MaxFiles,
			})

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if result.Error != "" {
				fmt.Printf("Auto-verify failed: %s\n", result.Error)
				return nil
			}

			fmt.Printf("Scanned %s\n", dir)
			fmt.Printf("  License files: %d\n", len(result.LicenseFilesFound))
			fmt.Printf("  Key files:     %d\n", len(result.KeyFilesFound))
			fmt.Println()
			fmt.Printf("Licenses checked: %d\n", result.Summary.TotalLicenses)
			fmt.Printf("  Valid:             %d\n", result.Summary.ValidCount)
			fmt.Printf("  Invalid:           %d\n", result.Summary.InvalidCount)
			fmt.Printf("  Expired:           %d\n", result.Summary.ExpiredCount)
			fmt.Printf("  Hardware mismatch: %d\n", result.Summary.HardwareMismatchCount)

			for _, invalid := range result.InvalidLicenses {
				fmt.Printf("\n%s line %d [%s]: %s\n", invalid.File, invalid.LineNumber, invalid.ErrorType, invalid.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipHardware, "skip-hardware", false, "skip hardware fingerprint verification")
	cmd.Flags().BoolVar(&skipExpiry, "skip-expiry", false, "skip expiry date verification")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the full result as JSON")
	return cmd
}
