// Package diagnostics defines the error taxonomy shared by the metamodel,
// the statement compiler, the query-text translator and the SQL generators.
//
// Every error type matches a sentinel through errors.Is so callers can branch
// on the category without caring about the concrete payload:
//
//	if errors.Is(err, diagnostics.ErrUnresolvedPath) { ... }
//
// None of these errors are transient. A failed compilation or render never
// returns partial SQL and is never retried internally.
package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnresolvedPath     = errors.New("unresolved path")
	ErrUnknownEntity      = errors.New("unknown entity")
	ErrSemantic           = errors.New("semantic error")
	ErrSyntax             = errors.New("syntax error")
	ErrInvalidStatement   = errors.New("invalid statement")
	ErrUnsupportedFeature = errors.New("unsupported dialect feature")
	ErrInvalidModel       = errors.New("invalid model")
)

// Position is a location in query text. Offset is a byte offset, Line and
// Column are 1-based.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// IsValid reports whether the position points into source text.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Positioned is implemented by errors that carry a source position.
type Positioned interface {
	error
	Pos() Position
}

// UnresolvedPathError reports a navigation path segment that does not exist
// on the entity it is applied to.
type UnresolvedPathError struct {
	Entity   string
	Segment  string
	Path     []string
	Position Position
}

func (e *UnresolvedPathError) Error() string {
	msg := fmt.Sprintf("unresolved path: entity %q has no attribute %q", e.Entity, e.Segment)
	if len(e.Path) > 1 {
		msg += fmt.Sprintf(" (path %s)", strings.Join(e.Path, "."))
	}
	return msg
}

func (e *UnresolvedPathError) Is(target error) bool { return target == ErrUnresolvedPath }

// Pos returns the source position, if the path came from query text.
func (e *UnresolvedPathError) Pos() Position { return e.Position }

// UnknownEntityError reports a range variable declared over an entity name
// the metamodel does not know.
type UnknownEntityError struct {
	Name     string
	Position Position
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Name)
}

func (e *UnknownEntityError) Is(target error) bool { return target == ErrUnknownEntity }

// Pos returns the source position of the entity name.
func (e *UnknownEntityError) Pos() Position { return e.Position }

// SemanticError reports a well-formed query that cannot be resolved, such as
// a reference to an alias that is not in scope.
type SemanticError struct {
	Identifier string
	Message    string
	Position   Position
}

func (e *SemanticError) Error() string {
	if e.Identifier == "" {
		return "semantic error: " + e.Message
	}
	return fmt.Sprintf("semantic error at %q: %s", e.Identifier, e.Message)
}

func (e *SemanticError) Is(target error) bool { return target == ErrSemantic }

// Pos returns the source position of the offending identifier.
func (e *SemanticError) Pos() Position { return e.Position }

// SyntaxError reports a grammar failure in query text.
type SyntaxError struct {
	Token    string
	Message  string
	Position Position
}

func (e *SyntaxError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("syntax error at %s near %q: %s", e.Position, e.Token, e.Message)
	}
	return fmt.Sprintf("syntax error at %s: %s", e.Position, e.Message)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// Pos returns the position of the offending token.
func (e *SyntaxError) Pos() Position { return e.Position }

// InvalidStatementError reports a statement missing a structurally required
// part, e.g. a keyed delete without conditions.
type InvalidStatementError struct {
	Statement string
	Reason    string
}

func (e *InvalidStatementError) Error() string {
	return fmt.Sprintf("invalid %s statement: %s", e.Statement, e.Reason)
}

func (e *InvalidStatementError) Is(target error) bool { return target == ErrInvalidStatement }

// UnsupportedDialectFeatureError reports a construct the target dialect
// cannot express.
type UnsupportedDialectFeatureError struct {
	Dialect string
	Feature string
}

func (e *UnsupportedDialectFeatureError) Error() string {
	return fmt.Sprintf("dialect %s does not support %s", e.Dialect, e.Feature)
}

func (e *UnsupportedDialectFeatureError) Is(target error) bool {
	return target == ErrUnsupportedFeature
}

// ModelError reports an inconsistent entity/relationship model.
type ModelError struct {
	Entity    string
	Attribute string
	Message   string
}

func (e *ModelError) Error() string {
	switch {
	case e.Entity == "":
		return "invalid model: " + e.Message
	case e.Attribute == "":
		return fmt.Sprintf("invalid model: entity %s: %s", e.Entity, e.Message)
	default:
		return fmt.Sprintf("invalid model: %s.%s: %s", e.Entity, e.Attribute, e.Message)
	}
}

func (e *ModelError) Is(target error) bool { return target == ErrInvalidModel }
