package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hyperjoin/internal/compiler"
	"github.com/roach88/hyperjoin/internal/ir"
	"github.com/roach88/hyperjoin/internal/loader"
)

// LoadResult contains the results of loading a configuration directory.
type LoadResult struct {
	Config    *compiler.Config
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred while loading configuration
// or data.
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

// LoadConfig loads and compiles the CUE configuration in dir.
func LoadConfig(dir string) (*LoadResult, error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	config, err := compiler.CompileConfig(value)
	if err != nil {
		return nil, convertCompileError(err, "config")
	}

	return &LoadResult{
		Config:    config,
		CUEValue:  value,
		FileCount: len(cueFiles),
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
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

// LoadInputs loads the configuration in configDir and the relation files
// its query names from dataDir.
func LoadInputs(configDir, dataDir string) (*compiler.Config, ir.Database, error) {
	res, err := LoadConfig(configDir)
	if err != nil {
		return nil, nil, err
	}
	db, err := loader.LoadDir(dataDir, res.Config.Query)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeDataFailed, Message: err.Error()}
	}
	return res.Config, db, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands. Configuration
// errors found after compilation use their ir.ConfigErrorCode instead.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDataFailed  = "E007" // Relation data could not be loaded
	ErrCodeEvalFailed  = "E008" // Evaluation failed for a reason other than configuration

	// Configuration shape errors
	ErrCodeQuery         = "E101" // Malformed query block
	ErrCodeDecomposition = "E102" // Malformed decomposition block
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "query" || strings.HasPrefix(field, "query."):
		return ErrCodeQuery
	case field == "decomposition" || strings.HasPrefix(field, "decomposition."):
		return ErrCodeDecomposition
	default:
		return ErrCodeGeneric
	}
}

// isShapeError reports whether a load error is a configuration mistake
// rather than a missing or unreadable input.
func isShapeError(err error) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	return le.Code == ErrCodeQuery || le.Code == ErrCodeDecomposition
}

// configErrorCode returns the code to report for err.
func configErrorCode(err error) string {
	var ce *ir.ConfigError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeEvalFailed
}

// errorMessage renders err for output. Load errors keep their position
// but drop the code, which is reported separately.
func errorMessage(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
		}
		return le.Message
	}
	var ce *ir.ConfigError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
