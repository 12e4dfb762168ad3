package ddl

import (
	"sort"
	"strings"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// orderTables sorts tables so that every table follows the tables its
// foreign keys reference. Among tables that are ready at the same time the
// one declared first wins. References to tables outside the list are
// ignored.
func orderTables(tables []*sqlast.CreateTable) ([]*sqlast.CreateTable, error) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
	}

	// graph: table index -> indices of tables referencing it
	inDegree := make([]int, len(tables))
	graph := make([][]int, len(tables))
	for i, t := range tables {
		for _, ref := range t.References() {
			j, ok := index[ref]
			if !ok {
				continue
			}
			graph[j] = append(graph[j], i)
			inDegree[i]++
		}
	}

	// Kahn's algorithm
	var queue []int
	for i := range tables {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]*sqlast.CreateTable, 0, len(tables))
	for len(queue) > 0 {
		sort.Ints(queue)
		current := queue[0]
		queue = queue[1:]

		ordered = append(ordered, tables[current])

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(ordered) < len(tables) {
		var cycle []string
		for i, t := range tables {
			if inDegree[i] > 0 {
				cycle = append(cycle, t.Name)
			}
		}
		return nil, &diagnostics.InvalidStatementError{
			Statement: "create table",
			Reason:    "foreign key cycle between " + strings.Join(cycle, ", "),
		}
	}
	return ordered, nil
}
