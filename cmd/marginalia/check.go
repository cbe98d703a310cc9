package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate every essay, reporting problems",
	Long: `Parses the built-in essays and every supported file in the content
directory, validates sections, annotations and footnotes, and exits non-zero
if any file fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	lib, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}
	loadErr := lib.Load(cmd.Context())

	out := cmd.OutOrStdout()
	for _, e := range lib.Essays() {
		fmt.Fprintf(out, "ok    %-40s %2d sections %3d footnotes %3d annotations  %s\n",
			e.Slug, len(e.Sections), len(e.Footnotes), len(e.Annotations), e.Metadata.ReadingTime)
	}
	errs := multierr.Errors(loadErr)
	for _, err := range errs {
		fmt.Fprintf(out, "FAIL  %v\n", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d file(s) failed validation", len(errs))
	}
	return nil
}
