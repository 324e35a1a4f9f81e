package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func NewGenDocsCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Generate CLI documentation in Markdown format",
		Long:  `Writes one Markdown page per command of the dentlab CLI, ./docs/cli by default.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = "docs/cli"
			}
			abs, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("failed to resolve %q: %w", outDir, err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("failed to create docs directory %q: %w", abs, err)
			}

			if err := doc.GenMarkdownTree(cmd.Root(), abs); err != nil {
				return fmt.Errorf("failed to generate CLI docs: %w", err)
			}
			fmt.Printf("CLI docs generated in %s\n", abs)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "outdir", "docs/cli", "Output directory for generated CLI docs")

	return cmd
}
