package table

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for table construction and column access.
var (
	// ErrValidation is the parent of every input-shape error; callers can
	// match the whole family with errors.Is(err, ErrValidation).
	ErrValidation = errors.New("validation error")

	ErrEmptyTable           = fmt.Errorf("%w: table has no records", ErrValidation)
	ErrNoSubjects           = fmt.Errorf("%w: no subject columns selected", ErrValidation)
	ErrUnknownSubject       = fmt.Errorf("%w: unknown subject column", ErrValidation)
	ErrReservedColumn       = fmt.Errorf("%w: reserved column used as subject", ErrValidation)
	ErrInconsistentSubjects = fmt.Errorf("%w: records do not share the same subjects", ErrValidation)

	// ErrNonNumeric reports arithmetic attempted on a column holding text.
	ErrNonNumeric = errors.New("non-numeric value in subject column")

	// ErrMalformedCSV reports input that cannot be read as a header plus rows.
	ErrMalformedCSV = errors.New("malformed csv")
)
