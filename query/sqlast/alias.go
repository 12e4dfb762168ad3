package sqlast

import (
	"strconv"
	"strings"
)

// AliasGenerator hands out table aliases unique within one statement.
// Aliases are the lowercased table name followed by a per-name counter:
// employee0, employee1, store_items0.
//
// A generator belongs to a single compilation and is not safe for
// concurrent use. Create a fresh one per statement.
type AliasGenerator struct {
	counters map[string]int
	used     map[string]bool
}

// NewAliasGenerator returns an empty generator.
func NewAliasGenerator() *AliasGenerator {
	return &AliasGenerator{
		counters: make(map[string]int),
		used:     make(map[string]bool),
	}
}

// Next returns a fresh alias for table.
func (g *AliasGenerator) Next(table string) string {
	base := aliasBase(table)
	for {
		n := g.counters[base]
		g.counters[base] = n + 1
		alias := base + strconv.Itoa(n)
		if !g.used[alias] {
			g.used[alias] = true
			return alias
		}
	}
}

// Table returns a table reference with a fresh alias.
func (g *AliasGenerator) Table(name string) *FromTable {
	return &FromTable{Name: name, Alias: g.Next(name)}
}

// Len returns the number of aliases handed out.
func (g *AliasGenerator) Len() int {
	return len(g.used)
}

func aliasBase(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(table) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "t" + s
	}
	return s
}
