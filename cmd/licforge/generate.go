package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"licforge/internal/hardware"
	"licforge/internal/license"
	"licforge/internal/preseed"
)

func generateLicenseCmd() *cobra.Command {
	var (
		privateKeyArg   string
		preseedFile     string
		expires         string
		fingerprintType string
		targetHardware  string
		appName         string
		appVersion      string
		customer        string
		componentName   string
		licenseID       string
		output          string
	)
	cmd := &cobra.Command{
		Use:   "generate-license",
		Short: "Generate a license for the current or a target machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := keyFromArg(privateKeyArg, "private_key")
			if err != nil {
				return err
			}

			commitment, err := preseed.LoadFromFile(afero.NewOsFs(), preseedFile)
			if err != nil {
				return fmt.Errorf("loading preseed file: %w", err)
			}

			expiryDate, err := resolveExpiry(expires)
			if err != nil {
				return err
			}

			if licenseID == "" {
				licenseID = uuid.NewString()
			}
			additionalData := map[string]any{"license_id": licenseID}
			if appName != "" {
				additionalData["app_name"] = appName
			}
			if appVersion != "" {
				additionalData["app_version"] = appVersion
			}
			if customer != "" {
				additionalData["customer"] = customer
			}

			generator := license.NewGenerator(privateKey, commitment)

			var licenseString string
			if targetHardware != "" {
				target, err := loadTargetInfo(targetHardware)
				if err != nil {
					return err
				}
				licenseString, err = generator.GenerateForTarget(target, expiryDate, fingerprintType, additionalData, componentName)
				if err != nil {
					return fmt.Errorf("generating license: %w", err)
				}
				fmt.Println("License generated for target hardware")
			} else {
				licenseString, err = generator.GenerateLicense(expiryDate, fingerprintType, additionalData, componentName, "")
				if err != nil {
					return fmt.Errorf("generating license: %w", err)
				}
			}

			record, err := generator.ParseLicense(licenseString)
			if err != nil {
				return err
			}

			fmt.Println("License generated successfully")
			fmt.Printf("  License ID:       %s\n", licenseID)
			fmt.Printf("  Fingerprint type: %s\n", record.String(license.FieldHardwareType))
			fmt.Printf("  Issued:           %s\n", record.String(license.FieldIssued))
			fmt.Printf("  Expires:          %s\n", record.String(license.FieldExpiry))
			if name := record.String(license.FieldComponentName); name != "" {
				fmt.Printf("  Component:        %s\n", name)
			}

			if output != "" {
				data, err := json.MarshalIndent(map[string]any{
					"license":      licenseString,
					"info":         record,
					"generated_at": time.Now().Format(time.RFC3339),
				}, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, append(data, '\n'), 0o600); err != nil {
					return fmt.Errorf("writing license file: %w", err)
				}
				fmt.Printf("License saved to %s\n", output)
				return nil
			}

			fmt.Println()
			fmt.Println(licenseString)
			return nil
		},
	}
	cmd.Flags().StringVarP(&privateKeyArg, "private-key", "k", "", "private key (base64) or path to key file (required)")
	cmd.Flags().StringVarP(&preseedFile, "preseed-file", "p", "", "path to preseed file (required)")
	cmd.Flags().StringVarP(&expires, "expires", "e", "", `expiry date (YYYY-MM-DD) or days from now (e.g. "30d"); default one year`)
	cmd.Flags().StringVarP(&fingerprintType, "fingerprint-type", "f", hardware.KindComposite, "hardware fingerprint type: mac, disk, cpu, system, composite")
	cmd.Flags().StringVarP(&targetHardware, "target-hardware", "t", "", "JSON file with target hardware info (for remote generation)")
	cmd.Flags().StringVar(&appName, "app-name", "", "application name to include in license")
	cmd.Flags().StringVar(&appVersion, "app-version", "", "application version to include in license")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name to include in license")
	cmd.Flags().StringVarP(&componentName, "component-name", "c", "", "component name for additional binding")
	cmd.Flags().StringVar(&licenseID, "license-id", "", "license identifier; a UUID is generated when omitted")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file to save license (optional)")
	cmd.MarkFlagRequired("private-key")
	cmd.MarkFlagRequired("preseed-file")
	return cmd
}

// loadTargetInfo reads a target hardware file written by hardware-info:
// either a bare descriptor document or one nested under "hardware_data".
func loadTargetInfo(path string) (hardware.TargetInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hardware.TargetInfo{}, fmt.Errorf("reading target hardware file: %w", err)
	}

	var wrapper struct {
		Hardware *hardware.TargetInfo `json:"hardware_data"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Hardware != nil {
		return *wrapper.Hardware, nil
	}

	var target hardware.TargetInfo
	if err := json.Unmarshal(data, &target); err != nil {
		return hardware.TargetInfo{}, fmt.Errorf("parsing target hardware file: %w", err)
	}
	return target, nil
}
