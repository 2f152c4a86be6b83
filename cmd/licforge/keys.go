package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"licforge/internal/license"
)

func generateKeysCmd() *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "generate-keys",
		Short: "Generate a new ECDSA P-256 key pair for license signing",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, publicKey, err := license.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("generating keys: %w", err)
			}

			var content string
			switch format {
			case "json":
				data, err := json.MarshalIndent(map[string]string{
					"private_key":  privateKey,
					"public_key":   publicKey,
					"generated_at": time.Now().Format(time.RFC3339),
					"curve":        "P-256",
				}, "", "  ")
				if err != nil {
					return err
				}
				content = string(data) + "\n"
			case "text":
				content = fmt.Sprintf(`ECDSA Key Pair Generated
%s

PRIVATE KEY (keep this secret)
%s

PUBLIC KEY (distribute with your application)
%s

Generated: %s
Curve: P-256 (secp256r1)
`, dividerLine, privateKey, publicKey, time.Now().Format("2006-01-02 15:04:05"))
			default:
				return fmt.Errorf("unsupported format %q (expected text or json)", format)
			}

			if output == "" {
				fmt.Print(content)
				return nil
			}
			if err := os.WriteFile(output, []byte(content), 0o600); err != nil {
				return fmt.Errorf("writing key file: %w", err)
			}
			fmt.Printf("Keys saved to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file to save keys (optional)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	return cmd
}

const dividerLine = "=================================================="
