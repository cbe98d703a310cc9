package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/cvexport"
	"github.com/spf13/cobra"
)

var exportCVOut string

var exportCVCmd = &cobra.Command{
	Use:   "export-cv",
	Short: "Write the CV as a Word document",
	Args:  cobra.NoArgs,
	RunE:  runExportCV,
}

func init() {
	exportCVCmd.Flags().StringVarP(&exportCVOut, "out", "o", "cv.docx", "output file, or - for stdout")
}

func runExportCV(cmd *cobra.Command, args []string) error {
	site, err := content.DefaultSite()
	if err != nil {
		return err
	}

	if exportCVOut == "-" {
		return cvexport.Write(cmd.OutOrStdout(), site.CV, site.Profile)
	}

	f, err := os.Create(exportCVOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportCVOut, err)
	}
	if err := cvexport.Write(f, site.CV, site.Profile); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportCVOut)
	return nil
}
