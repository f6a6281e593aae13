package analysis

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/okian/gradelens/internal/domain/ladder"
	"github.com/okian/gradelens/internal/domain/table"
)

// SubjectSummary holds descriptive statistics for one subject column.
type SubjectSummary struct {
	Subject string  `json:"subject"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Median  float64 `json:"median"`
	Max     float64 `json:"max"`
}

// Describe summarizes every selected subject.
func Describe(t *table.Table, subjects []string) ([]SubjectSummary, error) {
	rows, err := t.Matrix(subjects)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectSummary, len(subjects))
	for j, s := range subjects {
		col := column(rows, j)
		sum := SubjectSummary{Subject: s, Count: len(col)}
		if sum.Mean, err = stats.Mean(col); err != nil {
			return nil, fmt.Errorf("%w: %s mean: %w", ErrStatistic, s, err)
		}
		if sum.Std, err = stats.StandardDeviationPopulation(col); err != nil {
			return nil, fmt.Errorf("%w: %s std: %w", ErrStatistic, s, err)
		}
		if sum.Min, err = stats.Min(col); err != nil {
			return nil, fmt.Errorf("%w: %s min: %w", ErrStatistic, s, err)
		}
		if sum.Median, err = stats.Median(col); err != nil {
			return nil, fmt.Errorf("%w: %s median: %w", ErrStatistic, s, err)
		}
		if sum.Max, err = stats.Max(col); err != nil {
			return nil, fmt.Errorf("%w: %s max: %w", ErrStatistic, s, err)
		}
		out[j] = sum
	}
	return out, nil
}

// Letter grades in display order.
var Letters = []string{"A", "B", "C", "D", "F"}

var letterLadder = ladder.New("F",
	ladder.At(90.0, "A"),
	ladder.At(80.0, "B"),
	ladder.At(70.0, "C"),
	ladder.At(60.0, "D"),
)

// Letter maps a score to its letter grade.
func Letter(score float64) string { return letterLadder.Pick(score) }

// GradeCount is the number of students holding one letter grade.
type GradeCount struct {
	Grade string `json:"grade"`
	Count int    `json:"count"`
}

// GradeBucket is the letter grade distribution of one subject. Every
// letter is present, in Letters order.
type GradeBucket struct {
	Subject string       `json:"subject"`
	Grades  []GradeCount `json:"grades"`
}

// Distribution counts letter grades per subject.
func Distribution(t *table.Table, subjects []string) ([]GradeBucket, error) {
	rows, err := t.Matrix(subjects)
	if err != nil {
		return nil, err
	}
	out := make([]GradeBucket, len(subjects))
	for j, s := range subjects {
		counts := make(map[string]int, len(Letters))
		for _, v := range column(rows, j) {
			counts[Letter(v)]++
		}
		b := GradeBucket{Subject: s, Grades: make([]GradeCount, len(Letters))}
		for i, l := range Letters {
			b.Grades[i] = GradeCount{Grade: l, Count: counts[l]}
		}
		out[j] = b
	}
	return out, nil
}

// Matrix is a square subject x subject correlation matrix.
type Matrix struct {
	Subjects []string    `json:"subjects"`
	Values   [][]float64 `json:"values"`
}

// At returns the coefficient between subjects a and b.
func (m Matrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, s := range m.Subjects {
		if s == a {
			ia = i
		}
		if s == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// Correlation computes pairwise Pearson coefficients. A pair involving a
// constant column has no defined coefficient and is reported as 0; the
// diagonal is always 1.
func Correlation(t *table.Table, subjects []string) (Matrix, error) {
	rows, err := t.Matrix(subjects)
	if err != nil {
		return Matrix{}, err
	}
	cols := make([][]float64, len(subjects))
	for j := range subjects {
		cols[j] = column(rows, j)
	}

	vals := make([][]float64, len(subjects))
	for i := range vals {
		vals[i] = make([]float64, len(subjects))
		vals[i][i] = 1
	}
	for i := 0; i < len(subjects); i++ {
		for j := i + 1; j < len(subjects); j++ {
			r, err := stats.Pearson(cols[i], cols[j])
			if err != nil {
				return Matrix{}, fmt.Errorf("%w: %s/%s correlation: %w", ErrStatistic, subjects[i], subjects[j], err)
			}
			vals[i][j], vals[j][i] = r, r
		}
	}
	names := make([]string, len(subjects))
	copy(names, subjects)
	return Matrix{Subjects: names, Values: vals}, nil
}

// RadarPoint compares a student's score with the subject's class mean.
type RadarPoint struct {
	Subject   string  `json:"subject"`
	Score     float64 `json:"score"`
	ClassMean float64 `json:"class_mean"`
}

// Radar returns one point per subject for the named student. Unlike
// Analyze there is no class-wide fallback: an unknown name is an error.
func Radar(t *table.Table, subjects []string, target string) ([]RadarPoint, error) {
	rows, err := t.Matrix(subjects)
	if err != nil {
		return nil, err
	}
	idx, ok := t.FindByName(target)
	if target == "" || !ok {
		return nil, fmt.Errorf("%w: %q", ErrStudentNotFound, target)
	}
	means, err := columnMeans(rows, subjects)
	if err != nil {
		return nil, err
	}
	out := make([]RadarPoint, len(subjects))
	for j, s := range subjects {
		out[j] = RadarPoint{Subject: s, Score: rows[idx][j], ClassMean: means[j].Score}
	}
	return out, nil
}
