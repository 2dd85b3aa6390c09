// Package dataset reads indicator definitions and raw values from YAML and
// applies them to a value store.
//
// A dataset file looks like:
//
//	indicators:
//	  - name: Population
//	    value_type: integer
//	  - name: Population density
//	    value_type: float
//	    formula: "{Population} / {Area}"
//	values:
//	  - indicator: Population
//	    region: 1
//	    year: 2020
//	    value: 1200
//	    note: census
package dataset

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statmap/internal/indicator"
)

// Dataset is a set of indicator definitions and the values recorded for them.
type Dataset struct {
	Indicators []IndicatorDef `yaml:"indicators"`
	Values     []ValueRow     `yaml:"values"`
}

// IndicatorDef defines one indicator.
type IndicatorDef struct {
	Name      string `yaml:"name"`
	ValueType string `yaml:"value_type"`
	Formula   string `yaml:"formula,omitempty"`
}

// ValueRow is one raw value. Value is cast to the indicator's value type
// when applied, so "12", 12 and 12.0 are all accepted for an integer indicator.
type ValueRow struct {
	Indicator string  `yaml:"indicator"`
	Region    int64   `yaml:"region"`
	Year      int     `yaml:"year"`
	Value     any     `yaml:"value"`
	Note      *string `yaml:"note,omitempty"`
}

// Writer is the store surface Apply needs.
type Writer interface {
	CreateIndicator(ctx context.Context, ind indicator.Indicator) (indicator.Indicator, error)
	FindByName(ctx context.Context, name string) (indicator.Indicator, error)
	WriteValue(ctx context.Context, ind indicator.Indicator, regionID int64, year int, raw any, note *string) error
}

// Summary counts what Apply wrote.
type Summary struct {
	Indicators int
	Values     int
}

// Load reads and parses a dataset file.
func Load(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := Parse(data)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes a dataset and checks that every definition has a name and a
// known value type.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks indicator definitions and value rows for missing fields.
func (ds Dataset) Validate() error {
	for i, def := range ds.Indicators {
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("indicators[%d]: name is required", i)
		}
		if _, err := indicator.ParseValueType(def.ValueType); err != nil {
			return fmt.Errorf("indicators[%d] %q: %w", i, def.Name, err)
		}
	}
	for i, row := range ds.Values {
		if strings.TrimSpace(row.Indicator) == "" {
			return fmt.Errorf("values[%d]: indicator is required", i)
		}
		if row.Value == nil {
			return fmt.Errorf("values[%d]: value is required", i)
		}
	}
	return nil
}

// Apply creates the dataset's indicators, then writes its values in file
// order. Values may reference indicators that already exist in the store.
func (ds Dataset) Apply(ctx context.Context, w Writer) (Summary, error) {
	var sum Summary
	known := make(map[string]indicator.Indicator, len(ds.Indicators))

	for _, def := range ds.Indicators {
		vt, err := indicator.ParseValueType(def.ValueType)
		if err != nil {
			return sum, fmt.Errorf("apply dataset: %w", err)
		}
		ind, err := w.CreateIndicator(ctx, indicator.Indicator{
			Name:      def.Name,
			ValueType: vt,
			Formula:   def.Formula,
		})
		if err != nil {
			return sum, fmt.Errorf("apply dataset: %w", err)
		}
		known[ind.Name] = ind
		sum.Indicators++
	}

	for i, row := range ds.Values {
		name := indicator.NormalizeName(row.Indicator)
		ind, ok := known[name]
		if !ok {
			found, err := w.FindByName(ctx, name)
			if err != nil {
				return sum, fmt.Errorf("apply dataset: values[%d]: %w", i, err)
			}
			ind = found
			known[name] = ind
		}
		if err := w.WriteValue(ctx, ind, row.Region, row.Year, row.Value, row.Note); err != nil {
			return sum, fmt.Errorf("apply dataset: values[%d]: %w", i, err)
		}
		sum.Values++
	}

	return sum, nil
}
