package types

// Record holds the ordered output, failure and error lines produced while a
// test case executes. A Record belongs to exactly one executor instance and is
// not safe for concurrent use.
type Record struct {
	Output   []string
	Failures []string
	Errors   []string
}

// AddOutput appends lines to the output
func (r *Record) AddOutput(lines ...string) {
	r.Output = append(r.Output, lines...)
}

// AddFailure appends lines to the failures
func (r *Record) AddFailure(lines ...string) {
	r.Failures = append(r.Failures, lines...)
}

// AddError appends lines to the errors
func (r *Record) AddError(lines ...string) {
	r.Errors = append(r.Errors, lines...)
}

// Merge appends the output, failures and errors of a hook invocation in that order
func (r *Record) Merge(output, failures, errors []string) {
	r.AddOutput(output...)
	r.AddFailure(failures...)
	r.AddError(errors...)
}

// Status classifies the record
func (r *Record) Status() Status {
	return ClassifyStatus(r.Errors, r.Failures)
}

// Snapshot returns a copy of the record that shares no backing arrays with r
func (r *Record) Snapshot() Record {
	return Record{
		Output:   append([]string(nil), r.Output...),
		Failures: append([]string(nil), r.Failures...),
		Errors:   append([]string(nil), r.Errors...),
	}
}
