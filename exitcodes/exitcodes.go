// Package exitcodes defines the exit codes used by suite-tester.
package exitcodes

// Exit code constants used by suite-tester:
//
// * Success (0): every test ran successfully
// * TestFailure (1): one or more tests ended in FAILURE or ERROR
// * RuntimeErr (2): the run itself could not complete, e.g. bad configuration,
// an unresolvable test type or an infrastructure failure
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures or errors
	RuntimeErr  = 2 // Runtime errors
)
