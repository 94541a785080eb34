// Package report renders task results for terminals and files.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/use-agent/webagent/models"
)

// Markdown writes res as a markdown document. shotPaths maps a screenshot
// index to the file it was saved to; screenshots without a path are listed
// by source only.
func Markdown(w io.Writer, res *models.AggregateResult, shotPaths map[int]string) error {
	md := markdown.NewMarkdown(w)

	md.H1(res.Task)
	md.PlainText("")
	if res.Broadened {
		md.Note(fmt.Sprintf("No page answered the task directly; results come from the broader query %q.", res.Query))
		md.PlainText("")
	}

	md.H2("Analysis")
	md.PlainText("")
	md.PlainText(res.Analysis)
	md.PlainText("")

	md.H2("Sources")
	md.PlainText("")
	if len(res.Sources) == 0 {
		md.PlainText("None.")
	} else {
		md.BulletList(res.Sources...)
	}
	md.PlainText("")

	if len(res.Screenshots) > 0 {
		md.H2("Screenshots")
		md.PlainText("")
		rows := make([][]string, 0, len(res.Screenshots))
		for i, s := range res.Screenshots {
			file := shotPaths[i]
			if file == "" {
				file = "-"
			}
			rows = append(rows, []string{s.Label, s.Source, file})
		}
		md.Table(markdown.TableSet{Header: []string{"Label", "Source", "File"}, Rows: rows})
		md.PlainText("")
	}

	md.H2("Run")
	md.PlainText("")
	runRows := [][]string{
		{"ID", "`" + res.ID + "`"},
		{"Query", res.Query},
		{"Discovery", ms(res.Timing.DiscoveryMs)},
		{"Analysis", ms(res.Timing.AnalysisMs)},
		{"Summarization", ms(res.Timing.SummarizationMs)},
		{"Total", ms(res.Timing.TotalMs)},
	}
	if res.Usage != nil {
		runRows = append(runRows, []string{"LLM tokens", strconv.Itoa(res.Usage.TotalTokens)})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: runRows})

	return md.Build()
}

// Prompts writes a table of prompt-log entries.
func Prompts(w io.Writer, entries []models.PromptEntry) error {
	md := markdown.NewMarkdown(w)
	md.H2("Recent prompts")
	md.PlainText("")
	if len(entries) == 0 {
		md.PlainText("No prompts recorded.")
		return md.Build()
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format(time.DateTime),
			e.ClientIP,
			oneLine(e.Prompt, 80),
		})
	}
	md.Table(markdown.TableSet{Header: []string{"Time", "Client", "Prompt"}, Rows: rows})
	return md.Build()
}

func ms(v int64) string {
	return fmt.Sprintf("%d ms", v)
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
