package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/competencymatrix/internal/config"
	"github.com/Lllllllleong/competencymatrix/internal/render"
)

var validateTemplateCmd = &cobra.Command{
	Use:   "validate-template [template.pptx]",
	Short: "Check that a template layout carries every required placeholder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidateTemplate,
}

var validateLayout string

func init() {
	validateTemplateCmd.Flags().StringVar(&validateLayout, "layout", "", "Layout name (defaults to TEMPLATE_LAYOUT)")
	rootCmd.AddCommand(validateTemplateCmd)
}

func runValidateTemplate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	path := cfg.Template.Path
	if len(args) == 1 {
		path = args[0]
	}
	layout := cfg.Template.LayoutName
	if validateLayout != "" {
		layout = validateLayout
	}

	names, err := render.LayoutNames(path)
	if err != nil {
		return err
	}
	ok, missing, err := render.Validate(path, layout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Template: %s\nLayouts: %s\n", path, strings.Join(names, ", "))
	if !ok {
		return fmt.Errorf("layout %q is missing placeholders: %s", layout, strings.Join(missing, ", "))
	}
	fmt.Fprintf(out, "Layout %q carries all %d placeholders.\n", layout, len(render.RequiredPlaceholders))
	return nil
}
