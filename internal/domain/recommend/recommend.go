// Package recommend maps an analysis result through fixed threshold bands to
// titled blocks of study actions.
package recommend

import (
	"fmt"
	"strings"

	"github.com/okian/gradelens/internal/domain/analysis"
	"github.com/okian/gradelens/internal/domain/ladder"
)

// Thresholds used outside the band ladder.
const (
	// FocusBelow triggers a subject focus block when the weakest score is under it.
	FocusBelow = 70.0
	// GapAbove triggers the class gap block when best minus worst subject mean exceeds it.
	GapAbove = 10.0
)

// Block is one titled group of ordered actions.
type Block struct {
	Title   string   `json:"title"`
	Actions []string `json:"actions"`
}

type bandFunc func(in *analysis.Individual) Block

var bands = ladder.New[bandFunc](
	func(*analysis.Individual) Block {
		return Block{
			Title: "Intensive support plan",
			Actions: []string{
				"Book a one-to-one session to rebuild the fundamentals of each subject.",
				"Follow a daily study timetable with short, fixed review slots.",
				"Rework every failed exercise until it can be solved without notes.",
				"Meet the teacher weekly to track progress against a written goal.",
			},
		}
	},
	ladder.At[bandFunc](90, func(*analysis.Individual) Block {
		return Block{
			Title: "Enrichment plan",
			Actions: []string{
				"Take on advanced or competition-level problems.",
				"Lead a peer study group to deepen understanding by teaching.",
				"Start an independent project that connects several subjects.",
			},
		}
	}),
	ladder.At[bandFunc](80, func(in *analysis.Individual) Block {
		return Block{
			Title: "Consolidation plan",
			Actions: []string{
				"Keep the current study routine in the strongest subjects.",
				fmt.Sprintf("Add two extra practice sessions a week for %s.", weakNames(in)),
				"Review mistakes from recent tests and note recurring patterns.",
			},
		}
	}),
	ladder.At[bandFunc](70, func(in *analysis.Individual) Block {
		return Block{
			Title: "Improvement plan",
			Actions: []string{
				"Revisit the core concepts of every subject with summary notes.",
				fmt.Sprintf("Set a weekly target score for %s and track it.", weakNames(in)),
				"Ask questions in class as soon as a topic is unclear.",
				"Work through one timed practice paper each week.",
			},
		}
	}),
)

// Recommend returns the blocks for r, in display order. Every populated
// result yields at least one block; an empty result yields nil.
func Recommend(r analysis.Result) []Block {
	switch {
	case r.Kind == analysis.KindIndividual && r.Individual != nil:
		return individual(r.Individual)
	case r.Kind == analysis.KindClass && r.Class != nil:
		return classWide(r.Class)
	default:
		return nil
	}
}

func individual(in *analysis.Individual) []Block {
	out := []Block{bands.Pick(in.OwnAverage)(in)}
	// Independent of the band: a strong average can still hide one weak subject.
	if w, ok := in.Weakest(); ok && w.Score < FocusBelow {
		out = append(out, focus(w.Subject))
	}
	return out
}

func focus(subject string) Block {
	return Block{
		Title: "Focus plan: " + subject,
		Actions: []string{
			fmt.Sprintf("Identify the topics in %s that cost the most marks.", subject),
			fmt.Sprintf("Schedule 30 minutes of %s practice every day.", subject),
			fmt.Sprintf("Ask the %s teacher for a short diagnostic quiz.", subject),
			fmt.Sprintf("Pair up with a classmate who is strong in %s.", subject),
			fmt.Sprintf("Retake a past %s test after two weeks to measure progress.", subject),
		},
	}
}

func classWide(c *analysis.ClassWide) []Block {
	var out []Block
	if c.Gap() > GapAbove {
		out = append(out, Block{
			Title: "Closing the subject gap",
			Actions: []string{
				fmt.Sprintf("Share the teaching methods that work in %s with the %s team.", c.Best.Subject, c.Worst.Subject),
				fmt.Sprintf("Add remedial sessions for %s.", c.Worst.Subject),
				fmt.Sprintf("Review the %s curriculum pacing against %s.", c.Worst.Subject, c.Best.Subject),
				fmt.Sprintf("Run a short diagnostic test in %s to find common gaps.", c.Worst.Subject),
				fmt.Sprintf("Track the %s to %s gap after each assessment.", c.Best.Subject, c.Worst.Subject),
			},
		})
	}
	out = append(out, Block{
		Title: "Raising the class average",
		Actions: []string{
			fmt.Sprintf("Set a class target above the current mean of %.1f.", c.Mean),
			fmt.Sprintf("Give extra support to students near the lowest score of %.0f.", c.Min),
			"Hold regular review sessions before each assessment.",
			"Encourage peer tutoring between stronger and weaker students.",
			"Share progress charts with the class every month.",
		},
	})
	return out
}

func weakNames(in *analysis.Individual) string {
	names := make([]string, len(in.Weaknesses))
	for i, w := range in.Weaknesses {
		names[i] = w.Subject
	}
	return strings.Join(names, " and ")
}
