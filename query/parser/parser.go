// Package parser parses object query text and translates it into the SQL
// abstract model.
//
// Parsing and translation are separate steps: Parse builds a participle
// parse tree; a Translator walks it once, resolving range variables,
// joins and paths against the metamodel with a per-call scope.
package parser

import (
	"errors"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/entityql/diagnostics"
)

// parser is the Participle parser instance.
var parser = participle.MustBuild[Statement](
	participle.Lexer(QueryLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(64),
)

// Parse parses query text. Grammar failures are returned as
// *diagnostics.SyntaxError.
func Parse(text string) (*Statement, error) {
	stmt, err := parser.ParseString("", text)
	if err != nil {
		return nil, syntaxError(text, err)
	}
	return stmt, nil
}

// MustParse parses query text, panicking on error.
func MustParse(text string) *Statement {
	stmt, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return stmt
}

func syntaxError(text string, err error) error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return &diagnostics.SyntaxError{Message: err.Error()}
	}
	pos := position(perr.Position())
	return &diagnostics.SyntaxError{
		Token:    tokenAt(text, pos.Offset),
		Message:  perr.Message(),
		Position: pos,
	}
}

// tokenAt returns the word starting at offset, or "" at end of input.
func tokenAt(text string, offset int) string {
	if offset < 0 || offset >= len(text) {
		return ""
	}
	rest := text[offset:]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

func position(p lexer.Position) diagnostics.Position {
	return diagnostics.Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}
