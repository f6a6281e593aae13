// Package report renders an analysis with its insights and recommendations
// as a markdown document.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/recommend"
)

// MIME is the content type of a rendered report.
const MIME = "text/markdown; charset=utf-8"

const (
	noteClassAverage = "The class average is the mean of every score in the selected subjects, not the mean of the student averages."
	notePercentile   = "The percentile counts classmates whose average is strictly below this student's average."
	noteStd          = "Standard deviation is computed over the whole population of scores."
)

// Markdown renders r, its insights and its recommendation blocks.
func Markdown(r analysis.Result, insights []string, blocks []recommend.Block) string {
	var (
		b     strings.Builder
		notes Footnotes
	)

	switch {
	case r.Kind == analysis.KindIndividual && r.Individual != nil:
		writeIndividual(&b, &notes, r.Individual)
	case r.Kind == analysis.KindClass && r.Class != nil:
		writeClass(&b, &notes, r.Class)
	default:
		b.WriteString("# Grade report\n\nNo analysis available.\n")
		return b.String()
	}

	if len(insights) > 0 {
		b.WriteString("\n## Insights\n\n")
		for _, s := range insights {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(blocks) > 0 {
		b.WriteString("\n## Recommendations\n")
		for _, blk := range blocks {
			fmt.Fprintf(&b, "\n### %s\n\n", blk.Title)
			for i, a := range blk.Actions {
				fmt.Fprintf(&b, "%d. %s\n", i+1, a)
			}
		}
	}

	if notes.Len() > 0 {
		b.WriteString("\n---\n\n")
		b.WriteString(notes.String())
	}
	return b.String()
}

func writeIndividual(b *strings.Builder, notes *Footnotes, in *analysis.Individual) {
	fmt.Fprintf(b, "# Grade report: %s\n\n", inline(in.Name))
	b.WriteString("| Measure | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Own average | %.1f |\n", in.OwnAverage)
	fmt.Fprintf(b, "| Class average%s | %.1f |\n", notes.Ref(noteClassAverage), in.ClassAverage)
	fmt.Fprintf(b, "| Percentile%s | %.0f |\n", notes.Ref(notePercentile), in.Percentile)

	if len(in.Scores) > 0 {
		b.WriteString("\n## Scores\n\n| Subject | Score |\n|---|---|\n")
		for _, s := range in.Scores {
			fmt.Fprintf(b, "| %s | %s |\n", cell(s.Subject), strconv.FormatFloat(s.Score, 'f', -1, 64))
		}
	}
}

func writeClass(b *strings.Builder, notes *Footnotes, c *analysis.ClassWide) {
	b.WriteString("# Grade report: class overview\n\n")
	b.WriteString("| Measure | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Students | %d |\n", c.Students)
	fmt.Fprintf(b, "| Subjects | %d |\n", c.Subjects)
	fmt.Fprintf(b, "| Mean | %.1f |\n", c.Mean)
	fmt.Fprintf(b, "| Highest | %.0f |\n", c.Max)
	fmt.Fprintf(b, "| Lowest | %.0f |\n", c.Min)
	fmt.Fprintf(b, "| Standard deviation%s | %.1f |\n", notes.Ref(noteStd), c.Std)

	if len(c.SubjectMeans) > 0 {
		b.WriteString("\n## Subject means\n\n| Subject | Mean |\n|---|---|\n")
		for _, s := range c.SubjectMeans {
			fmt.Fprintf(b, "| %s | %.1f |\n", cell(s.Subject), s.Score)
		}
	}
}

var (
	inlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	cellReplacer   = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "|", `\|`)
)

// inline keeps CSV-sourced text on one markdown line.
func inline(s string) string { return inlineReplacer.Replace(s) }

// cell makes s safe inside a markdown table cell.
func cell(s string) string { return cellReplacer.Replace(s) }
