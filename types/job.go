package types

import "time"

// JobMetadata describes a test case scheduled for execution. The full list is
// handed to the resource coordinator before any job runs.
type JobMetadata struct {
	ID            int
	Name          string
	SuitePath     string
	BuildFolder   string // Candidate only, the final folder is resolved when the job runs
	TypeName      string
	ReportFile    string
	Verbose       bool
	Document      string // Serialized wrapping document
	Documentation Documentation
}

// JobResult is the immutable outcome of one executed test case
type JobResult struct {
	ID            int
	Name          string
	SuitePath     string
	Status        Status
	StatusMessage string
	Output        []string
	Failures      []string
	Errors        []string
	Duration      time.Duration
	Summary       []string
	Document      string
	BuildFolder   string
	Documentation Documentation
	TypeName      string
}

// Counts tallies results per status
type Counts struct {
	Total     int
	Successes int
	Failures  int
	Errors    int
}

// CountResults tallies results per status. The order of results is irrelevant.
func CountResults(results []*JobResult) Counts {
	var c Counts
	for _, r := range results {
		c.Total++
		switch r.Status {
		case StatusError:
			c.Errors++
		case StatusFailure:
			c.Failures++
		case StatusSuccess:
			c.Successes++
		}
	}
	return c
}

// GroupBySuite groups results by suite path. Within a group results keep their
// relative order from the input.
func GroupBySuite(results []*JobResult) map[string][]*JobResult {
	groups := make(map[string][]*JobResult)
	for _, r := range results {
		groups[r.SuitePath] = append(groups[r.SuitePath], r)
	}
	return groups
}
