// Package catalog loads indicator definitions from CUE files.
//
// A catalog directory holds one CUE package whose `indicator` struct maps
// indicator names to definitions. Each definition is unified with the
// embedded #Indicator schema, so a misspelled field or a value_type outside
// "integer" | "float" is reported with its CUE source position.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/statmap/internal/indicator"
)

//go:embed schema.cue
var schemaCUE string

// LoadMode controls how errors are handled during catalog loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes for catalog loading.
const (
	ErrCodeGeneric     = "E001" // Generic error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeSchema      = "E101" // Entry violates #Indicator
)

// Result contains the indicators defined by a catalog directory.
type Result struct {
	Indicators []indicator.Indicator // Sorted by name; IDs are zero
	FileCount  int                   // Number of CUE files found
}

// LoadError represents an error that occurred during catalog loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// entry mirrors #Indicator for decoding.
type entry struct {
	ValueType string `json:"value_type"`
	Formula   string `json:"formula"`
}

// Load reads every CUE file in dir and returns the indicators it defines.
// If mode is LoadModeFailFast, returns on the first invalid entry.
// If mode is LoadModeCollectAll, returns every valid entry plus all errors.
func Load(dir string, mode LoadMode) (*Result, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, err)}
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeGeneric, err)}
	}

	result := &Result{FileCount: len(cueFiles)}
	indicators, errs := decode(value, schema.LookupPath(cue.ParsePath("#Indicator")), mode)
	result.Indicators = indicators
	return result, errs
}

// Compile decodes a single CUE source string. Used by tests and by callers
// that hold catalog text in memory.
func Compile(src string, mode LoadMode) ([]indicator.Indicator, []error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename("catalog.cue"))
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, err)}
	}
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	return decode(value, schema.LookupPath(cue.ParsePath("#Indicator")), mode)
}

func decode(value, def cue.Value, mode LoadMode) ([]indicator.Indicator, []error) {
	var errs []error
	indicators := []indicator.Indicator{}

	section := value.LookupPath(cue.ParsePath("indicator"))
	if !section.Exists() {
		return indicators, nil
	}

	iter, err := section.Fields()
	if err != nil {
		return nil, []error{formatCUEError(ErrCodeGeneric, err)}
	}

	for iter.Next() {
		name := iter.Label()
		unified := def.Unify(iter.Value())
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			errs = append(errs, formatCUEError(ErrCodeSchema, fmt.Errorf("indicator %q: %w", name, err)))
			if mode == LoadModeFailFast {
				return indicators, errs
			}
			continue
		}

		var e entry
		if err := unified.Decode(&e); err != nil {
			errs = append(errs, formatCUEError(ErrCodeSchema, err))
			if mode == LoadModeFailFast {
				return indicators, errs
			}
			continue
		}

		vt, err := indicator.ParseValueType(e.ValueType)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("indicator %q: %v", name, err), Pos: iter.Value().Pos()})
			if mode == LoadModeFailFast {
				return indicators, errs
			}
			continue
		}

		indicators = append(indicators, indicator.Indicator{
			Name:      indicator.NormalizeName(name),
			ValueType: vt,
			Formula:   e.Formula,
		})
	}

	sort.Slice(indicators, func(i, j int) bool {
		return indicators[i].Name < indicators[j].Name
	})
	return indicators, errs
}

// FindCUEFiles returns all .cue files under dir.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// formatCUEError converts a CUE error into a LoadError carrying the position
// of its first underlying error.
func formatCUEError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	loadErr := &LoadError{Code: code, Message: err.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}
