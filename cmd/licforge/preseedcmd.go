package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"licforge/internal/preseed"
)

func generatePreseedCmd() *cobra.Command {
	var (
		output      string
		length      int
		projectName string
		description string
	)
	cmd := &cobra.Command{
		Use:   "generate-preseed",
		Short: "Generate a secure preseed file for license generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata := map[string]string{}
			if projectName != "" {
				metadata["project_name"] = projectName
			}
			if description != "" {
				metadata["description"] = description
			}

			appFs := afero.NewOsFs()
			if _, err := preseed.CreateFile(appFs, output, metadata, length); err != nil {
				return fmt.Errorf("generating preseed: %w", err)
			}

			info, err := preseed.ValidateFile(appFs, output)
			if err != nil {
				return fmt.Errorf("validating preseed file: %w", err)
			}

			fmt.Printf("Preseed file generated: %s\n", output)
			fmt.Printf("Secret length: %d characters\n", info.Length)
			fmt.Printf("Generated at: %s\n", info.GeneratedAt)
			if len(metadata) > 0 {
				fmt.Printf("Metadata fields: %d\n", len(metadata))
			}
			fmt.Println()
			fmt.Printf("Keep %s confidential and out of version control.\n", output)
			fmt.Println("The secret content is hashed before use; the raw secret never appears in a license.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "preseed.json", "output file to save preseed")
	cmd.Flags().IntVarP(&length, "length", "l", preseed.DefaultLength, "length of preseed secret in characters")
	cmd.Flags().StringVar(&projectName, "project-name", "", "project name for metadata (optional)")
	cmd.Flags().StringVar(&description, "description", "", "description for metadata (optional)")
	return cmd
}
