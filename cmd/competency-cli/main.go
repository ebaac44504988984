// Package main implements competency-cli, which runs the competency matrix pipeline
// against local files or gs:// URIs.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/competencymatrix/internal/config"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/services"
)

var rootCmd = &cobra.Command{
	Use:           "competency-cli",
	Short:         "Competency matrix generator",
	Long:          "Segments job-card PDFs, extracts a selected job, synthesizes its competency matrix and renders it onto the PowerPoint template.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configFile string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRuntime loads the configuration and installs a text logger on stderr.
func newRuntime() (*services.Runtime, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Logging.Format = "text"
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr))
	return services.NewRuntime(cfg), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONFile writes v to path, or to w when path is empty.
func writeJSONFile(w io.Writer, path string, v any) error {
	if path == "" {
		return printJSON(w, v)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := printJSON(f, v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// saveArtifact writes deck bytes handed back after a failed upload into dir.
func saveArtifact(dir string, res *models.RenderResult) (string, error) {
	if len(res.ArtifactBytes) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, res.OutputFilename)
	if err := os.WriteFile(path, res.ArtifactBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write deck: %w", err)
	}
	res.ArtifactBytes = nil
	return path, nil
}
