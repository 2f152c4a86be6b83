package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"licforge/internal/license"
	"licforge/internal/preseed"
)

func verifyLicenseCmd() *cobra.Command {
	var (
		publicKeyArg string
		preseedFile  string
		licenseArg   string
		skipHardware bool
		skipExpiry   bool
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:   "verify-license",
		Short: "Verify a license on the current machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			publicKey, err := keyFromArg(publicKeyArg, "public_key")
			if err != nil {
				return err
			}

			commitment, err := preseed.LoadFromFile(afero.NewOsFs(), preseedFile)
			if err != nil {
				return fmt.Errorf("loading preseed file: %w", err)
			}

			licenseString, err := licenseFromArg(licenseArg)
			if err != nil {
				return err
			}

			manager := license.NewManager(publicKey, commitment)

			info, err := manager.LicenseInfo(licenseString)
			if err != nil {
				return fmt.Errorf("reading license: %w", err)
			}

			if verbose {
				fmt.Println("License information:")
				for _, key := range []string{
					license.FieldVersion, license.FieldHardwareType, license.FieldIssued,
					license.FieldExpiry, license.FieldComponentName,
				} {
					if value := info.String(key); value != "" {
						fmt.Printf("  %s: %s\n", key, value)
					}
				}
			}

			if days, err := manager.DaysUntilExpiry(licenseString); err == nil {
				switch {
				case days > 0:
					fmt.Printf("License expires in %d days\n", days)
				case days == 0:
					fmt.Println("License expires today")
				default:
					fmt.Printf("License expired %d days ago\n", -days)
				}
			}

			fmt.Println()
			_, err = manager.VerifyLicense(licenseString, !skipHardware, !skipExpiry)
			switch {
			case err == nil:
				fmt.Println("LICENSE IS VALID AND ACTIVE")
				fmt.Println("  Signature verification: PASSED")
				fmt.Println("  Preseed verification:   PASSED")
				fmt.Printf("  Hardware fingerprint:   %s\n", passOrSkipped(!skipHardware, "MATCHED"))
				fmt.Printf("  License expiry:         %s\n", passOrSkipped(!skipExpiry, "NOT EXPIRED"))
			case errors.Is(err, license.ErrLicenseExpired):
				fmt.Println("LICENSE IS EXPIRED")
				fmt.Printf("  %v\n", err)
			case errors.Is(err, license.ErrHardwareMismatch):
				fmt.Println("HARDWARE FINGERPRINT MISMATCH")
				fmt.Printf("  %v\n", err)
				fmt.Println("  This license was generated for a different machine")
			default:
				fmt.Println("LICENSE IS INVALID")
				fmt.Printf("  %v\n", err)
			}

			if verbose {
				fmt.Println()
				fmt.Println("Component checks:")
				fmt.Printf("  Signature only:       %s\n", validOrInvalid(manager.IsValid(licenseString, false, false)))
				fmt.Printf("  Signature + hardware: %s\n", validOrInvalid(manager.IsValid(licenseString, true, false)))
				fmt.Printf("  Signature + expiry:   %s\n", validOrInvalid(manager.IsValid(licenseString, false, true)))
				fmt.Printf("  Full verification:    %s\n", validOrInvalid(manager.IsValid(licenseString, true, true)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&publicKeyArg, "public-key", "k", "", "public key (base64) or path to key file (required)")
	cmd.Flags().StringVarP(&preseedFile, "preseed-file", "p", "", "path to preseed file used during generation (required)")
	cmd.Flags().StringVarP(&licenseArg, "license", "l", "", "license string or path to license file (required)")
	cmd.Flags().BoolVar(&skipHardware, "skip-hardware", false, "skip hardware fingerprint verification")
	cmd.Flags().BoolVar(&skipExpiry, "skip-expiry", false, "skip expiry date verification")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed verification information")
	cmd.MarkFlagRequired("public-key")
	cmd.MarkFlagRequired("preseed-file")
	cmd.MarkFlagRequired("license")
	return cmd
}

func passOrSkipped(checked bool, pass string) string {
	if checked {
		return pass
	}
	return "SKIPPED"
}

func validOrInvalid(ok bool) string {
	if ok {
		return "VALID"
	}
	return "INVALID"
}
