package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/retrieval"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/sqlstore"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/config"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/diagnostics"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, data sources and backends",
	Long: `Verify that the configuration is valid, the database and document
corpus are readable, every backend in the chain is usable, and the host has
room to work.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(c *cobra.Command, _ []string) error {
	out := c.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  ✗ configuration: %v\n", err)
		return fmt.Errorf("configuration check failed")
	}

	report := diagnostics.Report{
		Results: diagnostics.RunChecks(c.Context(), doctorChecks(cfg)),
		System:  diagnostics.CollectSystem(filepath.Dir(cfg.Data.DBPath)),
	}

	if doctorJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(c, report)
	}

	if !report.OK() {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}

func doctorChecks(cfg *config.Config) []diagnostics.Check {
	checks := []diagnostics.Check{
		{
			Name:     "database",
			Required: true,
			Run: func(ctx context.Context) (string, error) {
				store, err := sqlstore.Open(ctx, cfg.Data.DBPath, sqlstore.WithMaxOpenConns(1))
				if err != nil {
					return "", err
				}
				defer func() { _ = store.Close() }()
				names, err := store.TableNames(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s: %d tables/views", cfg.Data.DBPath, len(names)), nil
			},
		},
	}

	if cfg.Retrieval.Backend == "pgvector" {
		checks = append(checks, diagnostics.Check{
			Name:     "pgvector",
			Required: true,
			Run: func(ctx context.Context) (string, error) {
				embedder, err := retrieval.NewEmbedder(embedderConfig(cfg))
				if err != nil {
					return "", err
				}
				pg, err := retrieval.NewPGVector(ctx, cfg.Retrieval.PGVector.DSN, embedder,
					retrieval.WithTable(cfg.Retrieval.PGVector.Table))
				if err != nil {
					return "", err
				}
				pg.Close()
				return "connected, embeddings via " + embedder.Name(), nil
			},
		})
	} else {
		checks = append(checks, diagnostics.Check{
			Name:     "documents",
			Required: true,
			Run: func(context.Context) (string, error) {
				chunks, err := retrieval.LoadChunks(cfg.Data.DocsDir, cfg.Data.Include)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s: %d chunks", cfg.Data.DocsDir, len(chunks)), nil
			},
		})
	}

	// The chain is usable as long as one backend is; none is individually required.
	for _, name := range cfg.Collaborators.Chain {
		switch name {
		case core.BackendOpenAI:
			if cfg.Backends.OpenAI.BaseURL == "" {
				checks = append(checks, diagnostics.SecretCheck("openai api key", cfg.Backends.OpenAI.APIKey, false))
			}
		case core.BackendGemini:
			if cfg.Backends.Gemini.Project == "" {
				checks = append(checks, diagnostics.SecretCheck("gemini api key", cfg.Backends.Gemini.APIKey, false))
			}
		case core.BackendCLI:
			checks = append(checks, diagnostics.CommandCheck("cli backend", cfg.Backends.CLI.Path, false))
		}
	}

	checks = append(checks, diagnostics.DiskSpaceCheck(filepath.Dir(cfg.Data.DBPath), 95))
	return checks
}

func printReport(c *cobra.Command, report diagnostics.Report) {
	out := c.OutOrStdout()
	st := newStyles(out)
	fmt.Fprintln(out, st.bold.Render("Running checks..."))
	fmt.Fprintln(out)
	for _, r := range report.Results {
		icon := st.ok.Render("✓")
		switch r.Status {
		case diagnostics.StatusWarn:
			icon = st.warn.Render("○")
		case diagnostics.StatusFail:
			icon = st.fail.Render("✗")
		}
		fmt.Fprintf(out, "  %s %-16s %s\n", icon, r.Name, r.Detail)
	}
	fmt.Fprintln(out)

	s := report.System
	host := fmt.Sprintf("Host: %s (%d cores, %d threads), memory %.0f/%.0f MB, load %.2f",
		strings.TrimSpace(s.CPUModel), s.CPUCores, s.CPUThreads, s.MemUsedMB, s.MemTotalMB, s.LoadAvg1)
	fmt.Fprintln(out, st.muted.Render(host))
	if len(s.GPUs) > 0 {
		fmt.Fprintln(out, st.muted.Render("GPU:  "+strings.Join(s.GPUs, ", ")))
	}
	fmt.Fprintln(out)

	switch {
	case !report.OK():
		fmt.Fprintln(out, st.fail.Render("Some required checks failed"))
	case report.Warnings() > 0:
		fmt.Fprintln(out, st.warn.Render("Ready, with warnings"))
	default:
		fmt.Fprintln(out, st.ok.Render("All checks passed"))
	}
}
