package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/report"
)

type askOptions struct {
	json       bool
	url        string
	screenshot string
}

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <task>",
		Short: "Run one task and print the answer",
		Long: `Ask runs the full pipeline once: find sources, analyze them, and
summarize. The answer is printed as markdown, or as JSON with --json.

Examples:
  # Research a task on the open web
  webagent ask "best ramen in Sapporo"

  # Analyze a single page instead of searching
  webagent ask --url https://go.dev/doc/devel/release "latest Go release"

  # Save screenshots next to the report
  webagent ask --screenshots ./shots "tallest buildings in Tokyo"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVarP(&opts.json, "json", "j", false, "Print the result as JSON")
	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "Analyze this page instead of searching")
	cmd.Flags().StringVarP(&opts.screenshot, "screenshots", "s", "", "Directory to save screenshots into")

	return cmd
}

func runAsk(cmd *cobra.Command, opts *askOptions, task string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.Log, os.Stderr)

	ctx := cmd.Context()
	a := newApp(ctx, cfg)
	defer a.Close()

	if a.prompts != nil {
		if err := a.prompts.Save(ctx, models.PromptEntry{Prompt: task}); err != nil {
			slog.Warn("prompt log write failed", "error", err)
		}
	}

	res, err := run(ctx, a, opts.url, task)
	if err != nil {
		return err
	}

	var paths map[int]string
	if opts.screenshot != "" {
		if paths, err = saveScreenshots(opts.screenshot, res.Screenshots); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, res)
	}
	return report.Markdown(out, res, paths)
}

func run(ctx context.Context, a *app, pageURL, task string) (*models.AggregateResult, error) {
	if pageURL != "" {
		return a.agent.AnalyzeURL(ctx, pageURL, task)
	}
	return a.agent.Run(ctx, task)
}

// saveScreenshots writes each image to dir as shot-<n>.<ext> and returns
// the paths keyed by screenshot index.
func saveScreenshots(dir string, shots []models.Screenshot) (map[int]string, error) {
	if len(shots) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	paths := make(map[int]string, len(shots))
	for i, s := range shots {
		p := filepath.Join(dir, fmt.Sprintf("shot-%d%s", i+1, imageExt(s.Image)))
		if err := os.WriteFile(p, s.Image, 0o644); err != nil {
			return nil, fmt.Errorf("write screenshot: %w", err)
		}
		paths[i] = p
	}
	return paths, nil
}

// imageExt sniffs the PNG signature; everything else is saved as JPEG.
func imageExt(b []byte) string {
	if strings.HasPrefix(string(b), "\x89PNG") {
		return ".png"
	}
	return ".jpg"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
