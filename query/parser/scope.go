package parser

import (
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
)

// JoinType is how an identification variable entered its scope.
type JoinType string

const (
	RangeVariable JoinType = "range"
	InnerJoin     JoinType = "inner join"
	LeftJoin      JoinType = "left outer join"
)

// symbol is one identification variable.
type symbol struct {
	alias  string
	entity *metamodel.Entity
	join   JoinType
	pos    lexer.Position
}

// scope is the symbol table of one query level. Subqueries open a child
// scope that sees the aliases of every enclosing level.
type scope struct {
	parent  *scope
	root    *symbol
	symbols map[string]*symbol
	order   []*symbol
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, symbols: make(map[string]*symbol)}
}

func (s *scope) lookup(alias string) (*symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[alias]; ok {
			return sym, true
		}
	}
	return nil, false
}

// declare adds sym. The first symbol declared is the scope's root. An
// alias may not shadow one visible from an enclosing level.
func (s *scope) declare(sym *symbol) error {
	if s.root == nil {
		s.root = sym
	}
	s.order = append(s.order, sym)
	if sym.alias == "" {
		return nil
	}
	if prev, dup := s.lookup(sym.alias); dup {
		return &diagnostics.SemanticError{
			Identifier: sym.alias,
			Message:    "alias already declared at " + position(prev.pos).String(),
			Position:   position(sym.pos),
		}
	}
	s.symbols[sym.alias] = sym
	return nil
}
