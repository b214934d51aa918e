package types

// Status represents the outcome of a single executed test case
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusError   Status = "ERROR"
)

// ClassifyStatus derives the status of a test from its recorded errors and failures.
// Errors take precedence over failures.
func ClassifyStatus(errors, failures []string) Status {
	switch {
	case len(errors) > 0:
		return StatusError
	case len(failures) > 0:
		return StatusFailure
	default:
		return StatusSuccess
	}
}

// Label returns the word used for the status in human readable summaries
func (s Status) Label() string {
	if s == StatusFailure {
		return "FAILED"
	}
	return string(s)
}

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusError:
		return true
	}
	return false
}
