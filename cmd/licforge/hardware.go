package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"licforge/internal/hardware"
)

func hardwareInfoCmd() *cobra.Command {
	var (
		fingerprintType string
		output          string
	)
	cmd := &cobra.Command{
		Use:   "hardware-info",
		Short: "Collect this machine's hardware info for remote license generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			hw := hardware.New()
			fingerprint, err := hw.Get(fingerprintType)
			if err != nil {
				return err
			}

			info := hw.Collect()
			hardwareData := map[string]any{}
			switch fingerprintType {
			case hardware.KindMAC:
				hardwareData["mac_addresses"] = info.MACAddresses
			case hardware.KindDisk:
				hardwareData["disk_info"] = info.DiskInfo
			case hardware.KindCPU:
				hardwareData["cpu_info"] = info.CPUInfo
			case hardware.KindSystem:
				hardwareData["system_info"] = info.SystemInfo
			default:
				hardwareData["mac_addresses"] = info.MACAddresses
				hardwareData["disk_info"] = info.DiskInfo
				hardwareData["cpu_info"] = info.CPUInfo
				hardwareData["system_info"] = info.SystemInfo
			}

			result := map[string]any{
				"hw_type":          fingerprintType,
				"fingerprint_hash": fingerprint,
				"hardware_data":    hardwareData,
				"collected_at":     time.Now().Format(time.RFC3339),
			}

			fmt.Printf("Hardware fingerprint (%s): %s\n", fingerprintType, fingerprint)

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, append(data, '\n'), 0o600); err != nil {
					return fmt.Errorf("writing hardware info file: %w", err)
				}
				fmt.Printf("Hardware info saved to %s\n", output)
				return nil
			}
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&fingerprintType, "fingerprint-type", "f", hardware.KindComposite, "hardware fingerprint type: mac, disk, cpu, system, composite")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file to save hardware info (optional)")
	return cmd
}
