package goxaml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/goxaml/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// State machine: an out-of-order node request.
	CodeInvalidTransition = "invalid_transition"
	// A namespace declaration pending at a node that cannot carry it.
	CodeNamespaceMisplaced = "namespace_misplaced"
	CodeDuplicateMember    = "duplicate_member"
	CodeDuplicateName      = "duplicate_name"
	// Unknown schema entries are placeholders until a value needs them.
	CodeUnknownType   = "unknown_type"
	CodeUnknownMember = "unknown_member"
	CodeTypeMismatch  = "type_mismatch"
	// Raised only after the root object completes.
	CodeUnresolvedReference = "unresolved_reference"
	// Collaborator failures raised through markup-extension evaluation or
	// factory invocation.
	CodeEvaluationFailed = "evaluation_failed"
	CodeFactoryFailed    = "factory_failed"
	// Text adapters and enforcement.
	CodeParseError = "parse_error"
	CodeMaxDepth   = "max_depth"
)

// Issue represents a single failure of a build or produce call.
type Issue struct {
	Path    string // Node path (for example: /Root/Items/2/Name).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	// Line and Position come from the node's line info (0 when unknown).
	Line     int
	Position int
	// Params carries structured parameters (e.g., {"member":"Name","type":"Person"})
	// for i18n and diagnostics.
	Params map[string]any
}

// Issues is a collection of errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. type_mismatch at /Root/Age: value x of type string ...
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
		if it.Line > 0 {
			fmt.Fprintf(b, " (line %d, position %d)", it.Line, it.Position)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is/As see through Issues.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// First returns the first issue, or the zero Issue when empty.
func (iss Issues) First() Issue {
	if len(iss) == 0 {
		return Issue{}
	}
	return iss[0]
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// HasCode reports whether err, or the cause of one of its issues, carries an
// Issue with the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code || (it.Cause != nil && HasCode(it.Cause, code)) {
			return true
		}
	}
	return false
}

// NewIssue builds an Issue whose message is rendered by i18n from params.
// kv lists alternating parameter names and values.
func NewIssue(code, path string, kv ...any) Issue {
	params := make(map[string]any, len(kv)/2)
	data := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k := fmt.Sprint(kv[i])
		params[k] = kv[i+1]
		data[k] = fmt.Sprint(kv[i+1])
	}
	return Issue{Path: path, Code: code, Message: i18n.T(code, data), Params: params}
}

// Fail is a shorthand returning a single-issue Issues error.
func Fail(code, path string, kv ...any) error {
	return Issues{NewIssue(code, path, kv...)}
}

// FailWithCause is Fail with an underlying cause attached.
func FailWithCause(code, path string, cause error, kv ...any) error {
	it := NewIssue(code, path, kv...)
	it.Cause = cause
	return Issues{it}
}

// WithLine stamps line info onto every issue of err that has none yet. Errors
// that are not Issues are returned unchanged.
func WithLine(err error, line, pos int) error {
	if line <= 0 {
		return err
	}
	iss, ok := err.(Issues)
	if !ok {
		return err
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		if it.Line == 0 {
			it.Line, it.Position = line, pos
		}
		out[i] = it
	}
	return out
}
