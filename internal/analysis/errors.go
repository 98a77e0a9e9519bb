package analysis

import "errors"

var (
	// ErrAnalysisNotFound signals that no record exists with the given id.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrForbidden is returned when the caller is neither owner nor admin.
	ErrForbidden = errors.New("not authorized to access this analysis")
	// ErrValidation covers bad or missing required fields.
	ErrValidation = errors.New("invalid analysis fields")
)
