package litmus

// Status is the terminal status of one harness run.
type Status string

const (
	// StatusCompleted means the run exhausted its iteration budget without
	// witnessing a forbidden outcome.
	StatusCompleted Status = "Completed"

	// StatusViolationFound means at least one forbidden outcome was
	// observed. This is the harness doing its job, not a harness error.
	StatusViolationFound Status = "ViolationFound"

	// StatusHarnessFault means the run could not be completed: bad
	// configuration detected mid-run, affinity refused, or a trial that
	// never joined. A fault must never be reported as "no violation
	// observed".
	StatusHarnessFault Status = "HarnessFault"
)

// Evidence is the postmortem record of one forbidden (or, under closed-world
// checking, unexpected) trial. Forbidden outcomes are rare; the record keeps
// enough detail to re-run the exact trial by re-seeding.
type Evidence struct {
	// Trial is the zero-based trial index within the run.
	Trial int `json:"trial"`

	// Seed is the exact trial seed; re-running with it reproduces the
	// same scripted per-trial random choices.
	Seed uint32 `json:"seed"`

	// Outcome is the witnessed tuple; Key is its canonical form.
	Outcome Outcome `json:"outcome"`
	Key     string  `json:"key"`

	// Classification is the oracle verdict that caused the record.
	Classification string `json:"classification"`

	// Vars holds the final per-variable value trace, present only when
	// evidence tracing is enabled.
	Vars map[string][]int64 `json:"vars,omitempty"`
}

// RunReport is the result of one harness run: the in-process contract
// between the engine and its front ends (CLI rendering, SQLite store).
type RunReport struct {
	// RunID is a unique, time-sortable token for the run.
	RunID string `json:"run_id"`

	// Test is the litmus test name.
	Test string `json:"test"`

	// Status is the terminal status.
	Status Status `json:"status"`

	// Seed is the master seed trial seeds were derived from.
	Seed uint32 `json:"seed"`

	// Trials is the number of trials actually executed.
	Trials int `json:"trials"`

	// Histogram maps canonical outcome keys to observation counts.
	Histogram map[string]uint64 `json:"histogram"`

	// Forbidden and Unexpected count trials by classification. Allowed
	// trials are the remainder.
	Forbidden  uint64 `json:"forbidden"`
	Unexpected uint64 `json:"unexpected"`

	// Evidence holds retained violation records, capped by configuration.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Fault describes the harness fault when Status is StatusHarnessFault.
	Fault string `json:"fault,omitempty"`
}
