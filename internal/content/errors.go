package content

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ErrNoChapters is returned when no chapter survived loading.
var ErrNoChapters = errors.New("no chapters loaded")

// Error codes for LoadError.
const (
	ErrCodeRead   = "CONTENT_READ"   // file or directory unreadable
	ErrCodeParse  = "CONTENT_PARSE"  // YAML, JSON or CUE syntax error
	ErrCodeLayout = "CONTENT_LAYOUT" // document is not a book or chapter
	ErrCodeSchema = "CONTENT_SCHEMA" // chapter fails the #Chapter schema
	ErrCodeDecode = "CONTENT_DECODE" // chapter could not be decoded
)

// LoadError describes one content problem.
type LoadError struct {
	Code    string
	Source  string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// cueError converts a CUE error into a LoadError, keeping the position of
// the first reported problem.
func cueError(code, source string, err error) *LoadError {
	le := &LoadError{Code: code, Source: source, Message: err.Error()}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	first := errs[0]
	le.Message = first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
