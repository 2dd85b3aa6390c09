package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statmap/internal/dataset"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional directory of CUE indicator definitions, loaded
	// before the dataset. Relative paths resolve against the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// Dataset seeds indicators and raw values.
	Dataset dataset.Dataset `yaml:"dataset"`

	// Derive lists composite indicators to derive, in order. Each is
	// rebucketed after its derivation. A name may repeat.
	Derive []string `yaml:"derive,omitempty"`

	// DeriveAll derives every composite indicator in dependency order after
	// the Derive list.
	DeriveAll bool `yaml:"derive_all,omitempty"`

	// Replace clears a composite's rows before each derivation.
	Replace bool `yaml:"replace,omitempty"`

	// Rebucket lists indicators to bucket without deriving them.
	Rebucket []string `yaml:"rebucket,omitempty"`

	// Expect states the outcome.
	Expect Expect `yaml:"expect"`

	// RunIDPrefix prefixes the sequential run ids. Default: "run".
	RunIDPrefix string `yaml:"run_id_prefix,omitempty"`
}

// Expect describes the expected outcome of a scenario.
type Expect struct {
	// Rows lists every row the derived indicators must hold, in derivation
	// order and, within one indicator, in insertion order.
	Rows []ExpectRow `yaml:"rows,omitempty"`

	// Buckets maps indicator names to their expected bucket strings.
	Buckets map[string]string `yaml:"buckets,omitempty"`

	// Error is the expected error code. Empty means no error.
	Error string `yaml:"error,omitempty"`
}

// ExpectRow is one expected stored value. Value is cast to the indicator's
// value type before comparison.
type ExpectRow struct {
	Indicator string  `yaml:"indicator"`
	Region    int64   `yaml:"region"`
	Year      int     `yaml:"year"`
	Value     any     `yaml:"value"`
	Note      *string `yaml:"note,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "derived:" vs "derive:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Derive) == 0 && !s.DeriveAll && len(s.Rebucket) == 0 {
		return fmt.Errorf("one of derive, derive_all or rebucket is required")
	}

	if len(s.Expect.Rows) == 0 && len(s.Expect.Buckets) == 0 && s.Expect.Error == "" {
		return fmt.Errorf("expect must name rows, buckets or error")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog directory not found: %s", s.Catalog)
		}
	}

	if err := s.Dataset.Validate(); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}

	for i, name := range s.Derive {
		if name == "" {
			return fmt.Errorf("derive[%d]: name is required", i)
		}
	}
	for i, name := range s.Rebucket {
		if name == "" {
			return fmt.Errorf("rebucket[%d]: name is required", i)
		}
	}

	for i, row := range s.Expect.Rows {
		if row.Indicator == "" {
			return fmt.Errorf("expect.rows[%d]: indicator is required", i)
		}
		if row.Value == nil {
			return fmt.Errorf("expect.rows[%d]: value is required", i)
		}
	}

	return nil
}
