package model

// CheckSummary is the unified CI status for a pull request's head commit:
// the overall rollup state plus the individual checks, in API order.
type CheckSummary struct {
	State  RollupState
	Checks []Check
}

// Check is one CI check in the unified representation. CheckRun results
// carry their own status/conclusion pair; legacy StatusContext results are
// mapped into the same two fields. Conclusion is nil while a check is
// still running or when the source state has no conclusion equivalent.
type Check struct {
	Name       string
	Status     string
	Conclusion *string
}
