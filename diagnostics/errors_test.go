package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"unresolved path", &UnresolvedPathError{Entity: "Employee", Segment: "boss"}, ErrUnresolvedPath},
		{"unknown entity", &UnknownEntityError{Name: "Ghost"}, ErrUnknownEntity},
		{"semantic", &SemanticError{Identifier: "x", Message: "alias not in scope"}, ErrSemantic},
		{"syntax", &SyntaxError{Token: "FORM", Message: "unexpected token"}, ErrSyntax},
		{"invalid statement", &InvalidStatementError{Statement: "delete", Reason: "no conditions"}, ErrInvalidStatement},
		{"unsupported", &UnsupportedDialectFeatureError{Dialect: "sqlite", Feature: "sequences"}, ErrUnsupportedFeature},
		{"model", &ModelError{Entity: "A", Message: "no primary key"}, ErrInvalidModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("compile: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestUnresolvedPathErrorMessage(t *testing.T) {
	err := &UnresolvedPathError{Entity: "Employee", Segment: "boss", Path: []string{"department", "boss"}}
	assert.Equal(t, `unresolved path: entity "Employee" has no attribute "boss" (path department.boss)`, err.Error())
}

func TestModelErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid model: Store.items: unknown target Thing",
		(&ModelError{Entity: "Store", Attribute: "items", Message: "unknown target Thing"}).Error())
	assert.Equal(t, "invalid model: entity Store: no primary key",
		(&ModelError{Entity: "Store", Message: "no primary key"}).Error())
}

func TestPrettyPrintPositioned(t *testing.T) {
	color.NoColor = true
	text := "SELECT e\nFORM Employee e"
	err := &SyntaxError{Token: "FORM", Message: "unexpected token", Position: Position{Offset: 9, Line: 2, Column: 1}}

	var buf bytes.Buffer
	require.NoError(t, PrettyPrint(&buf, "query", text, err))

	out := buf.String()
	assert.Contains(t, out, "query:2:1")
	assert.Contains(t, out, " 2 | FORM Employee e")
	assert.Contains(t, out, "   | ^")
}

func TestPrettyPrintWithoutPosition(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, PrettyPrint(&buf, "query", "", &InvalidStatementError{Statement: "delete", Reason: "no conditions"}))
	assert.Equal(t, "error: invalid delete statement: no conditions\n", buf.String())
}
