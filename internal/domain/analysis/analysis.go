// Package analysis computes individual and class-wide profiles over a
// score table. Every function is pure: the table is read, never changed.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/okian/gradelens/internal/domain/table"
)

// Analyze profiles the table over subjects. When target names a student
// (exact match on the name column, first match wins) the Individual variant
// is returned; an empty or unknown target yields the ClassWide variant
// without error.
func Analyze(t *table.Table, subjects []string, target string) (Result, error) {
	rows, err := t.Matrix(subjects)
	if err != nil {
		return Result{}, err
	}

	if target != "" {
		if idx, ok := t.FindByName(target); ok {
			in, err := individual(t.Record(idx), rows, idx, subjects)
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: KindIndividual, Individual: in}, nil
		}
	}

	cw, err := classWide(rows, subjects)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindClass, Class: cw}, nil
}

func individual(rec table.Record, rows [][]float64, idx int, subjects []string) (*Individual, error) {
	grand, err := stats.Mean(flatten(rows))
	if err != nil {
		return nil, fmt.Errorf("%w: grand mean: %w", ErrStatistic, err)
	}
	averages, err := rowMeans(rows)
	if err != nil {
		return nil, err
	}
	own := averages[idx]
	if err := finite("grand mean", grand); err != nil {
		return nil, err
	}
	if err := finite("own average", own); err != nil {
		return nil, err
	}

	scores := make([]SubjectScore, len(subjects))
	for j, s := range subjects {
		scores[j] = SubjectScore{Subject: s, Score: rows[idx][j]}
	}

	desc := make([]SubjectScore, len(scores))
	copy(desc, scores)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Score > desc[j].Score })

	asc := make([]SubjectScore, len(scores))
	copy(asc, scores)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].Score < asc[j].Score })

	return &Individual{
		ID:           rec.ID,
		Name:         rec.Name,
		OwnAverage:   own,
		ClassAverage: grand,
		Percentile:   percentile(averages, own),
		Strengths:    head(desc, 2),
		Weaknesses:   head(asc, 2),
		Scores:       scores,
	}, nil
}

func classWide(rows [][]float64, subjects []string) (*ClassWide, error) {
	flat := flatten(rows)
	mean, err := stats.Mean(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: mean: %w", ErrStatistic, err)
	}
	lo, err := stats.Min(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: min: %w", ErrStatistic, err)
	}
	hi, err := stats.Max(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: max: %w", ErrStatistic, err)
	}
	std, err := stats.StandardDeviationPopulation(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: std: %w", ErrStatistic, err)
	}

	if err := finite("mean", mean); err != nil {
		return nil, err
	}
	if err := finite("std", std); err != nil {
		return nil, err
	}

	means, err := columnMeans(rows, subjects)
	if err != nil {
		return nil, err
	}
	best, worst := means[0], means[0]
	for _, m := range means[1:] {
		if m.Score > best.Score {
			best = m
		}
		if m.Score < worst.Score {
			worst = m
		}
	}

	return &ClassWide{
		Students:     len(rows),
		Subjects:     len(subjects),
		Mean:         mean,
		Min:          lo,
		Max:          hi,
		Std:          std,
		SubjectMeans: means,
		Best:         best,
		Worst:        worst,
	}, nil
}

// percentile is the share of classmates, the target excluded, whose average
// is strictly below own. A class of one has no classmates and scores 0.
func percentile(averages []float64, own float64) float64 {
	peers := len(averages) - 1
	if peers <= 0 {
		return 0
	}
	below := 0
	for _, a := range averages {
		if a < own {
			below++
		}
	}
	return float64(below) / float64(peers) * 100
}

// finite rejects aggregates that overflowed float64.
func finite(name string, v float64) error {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("%w: %s is not finite", ErrStatistic, name)
	}
	return nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func rowMeans(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		m, err := stats.Mean(r)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d mean: %w", ErrStatistic, i+1, err)
		}
		out[i] = m
	}
	return out, nil
}

func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[j]
	}
	return out
}

func columnMeans(rows [][]float64, subjects []string) ([]SubjectScore, error) {
	out := make([]SubjectScore, len(subjects))
	for j, s := range subjects {
		m, err := stats.Mean(column(rows, j))
		if err != nil {
			return nil, fmt.Errorf("%w: %s mean: %w", ErrStatistic, s, err)
		}
		if err := finite(s+" mean", m); err != nil {
			return nil, err
		}
		out[j] = SubjectScore{Subject: s, Score: m}
	}
	return out, nil
}

func head(in []SubjectScore, n int) []SubjectScore {
	if len(in) < n {
		n = len(in)
	}
	out := make([]SubjectScore, n)
	copy(out, in[:n])
	return out
}
