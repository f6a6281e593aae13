// Package insight turns an analysis result into short interpretive sentences.
package insight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/ladder"
)

// EvenSpread is the standard deviation below which a class is described as
// evenly distributed.
const EvenSpread = 5.0

type individualTemplate func(in *analysis.Individual) string

var individualLadder = ladder.New[individualTemplate](
	func(in *analysis.Individual) string {
		return fmt.Sprintf("%s needs focused support: an average of %.1f against a class average of %.1f.",
			in.Name, in.OwnAverage, in.ClassAverage)
	},
	ladder.At[individualTemplate](90, func(in *analysis.Individual) string {
		return fmt.Sprintf("%s is an outstanding performer with an average of %.1f (class average %.1f).",
			in.Name, in.OwnAverage, in.ClassAverage)
	}),
	ladder.At[individualTemplate](80, func(in *analysis.Individual) string {
		return fmt.Sprintf("%s performs well with an average of %.1f (class average %.1f), ahead of %.0f%% of the class.",
			in.Name, in.OwnAverage, in.ClassAverage, in.Percentile)
	}),
	ladder.At[individualTemplate](70, func(in *analysis.Individual) string {
		return fmt.Sprintf("%s is on a steady footing with an average of %.1f (class average %.1f).",
			in.Name, in.OwnAverage, in.ClassAverage)
	}),
)

// Narrate returns the sentences describing r, in display order. A result
// without a populated variant yields nil.
func Narrate(r analysis.Result) []string {
	switch {
	case r.Kind == analysis.KindIndividual && r.Individual != nil:
		return individual(r.Individual)
	case r.Kind == analysis.KindClass && r.Class != nil:
		return classWide(r.Class)
	default:
		return nil
	}
}

func individual(in *analysis.Individual) []string {
	headline := individualLadder.Pick(in.OwnAverage)(in)
	return []string{
		headline,
		fmt.Sprintf("Strongest subjects: %s. Weakest subjects: %s.", list(in.Strengths), list(in.Weaknesses)),
	}
}

func classWide(c *analysis.ClassWide) []string {
	out := []string{
		fmt.Sprintf("The class of %d students averages %.1f across %d subjects, with a highest score of %.0f, a lowest score of %.0f and a standard deviation of %.1f.",
			c.Students, c.Mean, c.Subjects, c.Max, c.Min, c.Std),
		fmt.Sprintf("%s has the best subject mean (%.1f) and %s the lowest (%.1f), a gap of %.1f points.",
			c.Best.Subject, c.Best.Score, c.Worst.Subject, c.Worst.Score, c.Gap()),
	}
	if c.Std < EvenSpread {
		out = append(out, fmt.Sprintf("Scores are evenly distributed (standard deviation %.1f).", c.Std))
	} else {
		out = append(out, fmt.Sprintf("Scores are spread wide (standard deviation %.1f); a wide gap separates the strongest and weakest results.", c.Std))
	}
	return out
}

func list(scores []analysis.SubjectScore) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = s.Subject + " (" + strconv.FormatFloat(s.Score, 'f', -1, 64) + ")"
	}
	return strings.Join(parts, ", ")
}
