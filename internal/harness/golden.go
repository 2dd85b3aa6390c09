package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// snapshot is the golden form of a Result. Errors are left out so that a
// snapshot records behavior, not expectations.
type snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Error        string            `json:"error,omitempty"`
	Rows         []Row             `json:"rows"`
	Buckets      map[string]string `json:"buckets"`
	RunIDs       []string          `json:"run_ids"`
}

// Snapshot renders result as indented JSON for golden comparison. Map keys
// are sorted, so equal results give byte-identical snapshots.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	runIDs := make([]string, len(result.Derived))
	for i, d := range result.Derived {
		runIDs[i] = d.RunID
	}
	data, err := json.MarshalIndent(snapshot{
		ScenarioName: scenarioName,
		Error:        result.Error,
		Rows:         result.Rows,
		Buckets:      result.Buckets,
		RunIDs:       runIDs,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
