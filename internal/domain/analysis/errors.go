package analysis

import "errors"

// Sentinel error kinds for analysis.
var (
	// ErrStudentNotFound is returned by views that require a target student.
	// Analyze itself never returns it: an unknown target falls back to the
	// class-wide profile.
	ErrStudentNotFound = errors.New("student not found")
	// ErrStatistic covers failed or non-finite aggregates, e.g. scores so
	// large that their mean overflows.
	ErrStatistic = errors.New("statistic failed")
)
