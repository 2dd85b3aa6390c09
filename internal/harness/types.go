package harness

import (
	"github.com/roach88/statmap/internal/engine"
	"github.com/roach88/statmap/internal/indicator"
)

// Row is one stored value of a derived indicator.
type Row struct {
	Indicator string          `json:"indicator"`
	Region    int64           `json:"region"`
	Year      int             `json:"year"`
	Value     indicator.Value `json:"value"`
	Note      *string         `json:"note,omitempty"`

	ind indicator.Indicator
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Derived lists each derivation in execution order.
	Derived []engine.DeriveResult `json:"derived"`

	// Rows holds every row of every derived indicator.
	Rows []Row `json:"rows"`

	// Buckets holds the stored bucket string of each bucketed indicator.
	Buckets map[string]string `json:"buckets"`

	// Error is the code of the error that stopped the scenario, if any.
	Error string `json:"error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Derived: []engine.DeriveResult{},
		Rows:    []Row{},
		Buckets: make(map[string]string),
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
