package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/format"
	"lectern/internal/format/epub"
	"lectern/internal/format/pdf"
	"lectern/internal/home"
	"lectern/internal/ocr"
	"lectern/internal/processor"
	"lectern/internal/registry"
	"lectern/internal/textgen"
	"lectern/internal/vault"
	"lectern/version"
)

var (
	cfgFile string
	homeDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Book ingestion pipeline for a philosophy study vault",
	Long: `Lectern ingests philosophy books (PDF and EPUB), extracts their text
with native extraction or OCR, segments them into chapters and writes
interlinked study notes into a markdown vault.

The pipeline includes:
  - Native text extraction with per-page OCR fallback
  - Chapter detection from the document outline or heading patterns
  - Author directory matching so name variants share one folder
  - Resumable chapter-at-a-time processing for large scanned books`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.lectern/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "lectern home directory (default: ~/.lectern)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "debug logging",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is the assembled runtime: configuration plus every pipeline
// collaborator the commands need.
type env struct {
	cfg  *config.Config
	home *home.Dir
	proc *processor.Processor
	reg  *registry.Registry
}

func (e *env) close() {
	if e.reg != nil {
		e.reg.Close()
	}
}

// setup loads config and wires the processor. Each command builds one env
// and closes it when done.
func setup() (*env, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	manager, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	cfg := manager.Get()

	vaultRoot := expandHome(cfg.Vault.Path)
	store, err := vault.NewFSStore(vaultRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot open vault at %s: %w", vaultRoot, err)
	}

	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	reg, err := registry.Open(h.RegistryPath())
	if err != nil {
		return nil, err
	}

	var gen textgen.Generator
	if cfg.TextGen.Enabled {
		apiKey := config.ResolveEnvVars(cfg.TextGen.APIKey)
		if apiKey == "" {
			slog.Warn("textgen enabled but no API key resolved; cleanup disabled")
		} else {
			gen = textgen.NewOpenAIClient(textgen.OpenAIConfig{
				APIKey:    apiKey,
				Model:     cfg.TextGen.Model,
				BaseURL:   cfg.TextGen.BaseURL,
				RateLimit: cfg.TextGen.RateLimit,
			})
		}
	}

	proc, err := processor.New(processor.Options{
		Config:   cfg,
		Home:     h,
		Store:    store,
		Registry: reg,
		OCR: ocr.NewTesseract(ocr.TesseractOptions{
			Binary:   cfg.OCR.Binary,
			Language: cfg.OCR.Language,
		}),
		Gen:  gen,
		Open: openDocument,
	})
	if err != nil {
		reg.Close()
		return nil, err
	}

	return &env{cfg: cfg, home: h, proc: proc, reg: reg}, nil
}

// openDocument dispatches on file format.
func openDocument(ctx context.Context, path string, opts format.OpenOptions) (format.Document, error) {
	f, err := format.Detect(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case format.FormatPDF:
		return pdf.Open(ctx, path, pdf.Options{Layout: opts.PreserveLayout})
	case format.FormatEPUB:
		return epub.Open(ctx, path, epub.Options{})
	default:
		return nil, fmt.Errorf("no handler for format %q", f)
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if userHome, err := os.UserHomeDir(); err == nil {
			return userHome + path[1:]
		}
	}
	return path
}
