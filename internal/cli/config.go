package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var configSchema []byte

// Config is the resolved tagtree configuration.
type Config struct {
	Capacity      int    `json:"capacity"`
	DB            string `json:"db"`
	SnapshotEvery int    `json:"snapshot_every"`
}

// LoadError represents an error that occurred while loading configuration.
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

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeInvalid     = "E007" // Configuration does not satisfy the schema

	ErrCodeDatabase    = "E201" // Database could not be opened or read
	ErrCodeBadArgument = "E202" // Position or label argument could not be parsed
	ErrCodeEngine      = "E203" // Engine request failed
	ErrCodeDeterminism = "E_DETERMINISM"
	ErrCodeTestFailed  = "E_TEST_FAILED"
)

// DefaultConfig returns the schema defaults.
func DefaultConfig() *Config {
	cfg, err := resolveConfig(nil, "")
	if err != nil {
		// The embedded schema is known to resolve.
		panic(err)
	}
	return cfg
}

// LoadConfig reads a CUE configuration file and unifies it with the
// embedded schema. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading config file: %v", err)}
	}

	return resolveConfig(data, path)
}

func resolveConfig(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(configSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, convertCUEError(ErrCodeBuildFailed, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	if data == nil {
		data = []byte("{}")
	}
	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, convertCUEError(ErrCodeBuildFailed, err)
	}
	value := def.Unify(user)

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEError(ErrCodeInvalid, err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return nil, convertCUEError(ErrCodeInvalid, err)
	}
	return &cfg, nil
}

// convertCUEError converts the first CUE error to a LoadError with position info.
func convertCUEError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := first.Path(); len(path) > 0 {
		msg = fmt.Sprintf("%s: %s", strings.Join(path, "."), msg)
	}
	return &LoadError{Code: code, Message: msg, Pos: first.Position()}
}
