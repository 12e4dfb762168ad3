package resolver

import (
	"fmt"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
)

// Edge is the column mapping of a relationship seen from its source.
//
// Without a join table, Source[i] on the source table equals Target[i] on
// the target table. With a join table, Source[i] equals TableSource[i] on
// the join table and TableTarget[i] equals Target[i].
type Edge struct {
	Source      []string
	Target      []string
	Table       string
	TableSource []string
	TableTarget []string
}

// EdgeOf returns the mapping of r. Inverse sides walk the owning side's
// mapping backwards.
func EdgeOf(r *metamodel.Relationship) (Edge, error) {
	if r.IsOwning() {
		switch {
		case r.JoinTable != nil:
			return Edge{
				Source:      referenced(r.JoinTable.OwnerColumns),
				TableSource: names(r.JoinTable.OwnerColumns),
				Table:       r.JoinTable.Name,
				TableTarget: names(r.JoinTable.TargetColumns),
				Target:      referenced(r.JoinTable.TargetColumns),
			}, nil
		case r.ForeignKeyOnTarget():
			return Edge{Source: referenced(r.JoinColumns), Target: names(r.JoinColumns)}, nil
		case len(r.JoinColumns) > 0:
			return Edge{Source: names(r.JoinColumns), Target: referenced(r.JoinColumns)}, nil
		}
		return Edge{}, fmt.Errorf("%s has no join mapping: %w", r, diagnostics.ErrInvalidModel)
	}

	o := r.Inverse
	if o == nil {
		return Edge{}, fmt.Errorf("%s has no owning side: %w", r, diagnostics.ErrInvalidModel)
	}
	forward, err := EdgeOf(o)
	if err != nil {
		return Edge{}, err
	}
	return Edge{
		Source:      forward.Target,
		Target:      forward.Source,
		Table:       forward.Table,
		TableSource: forward.TableTarget,
		TableTarget: forward.TableSource,
	}, nil
}

func names(cols []metamodel.JoinColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func referenced(cols []metamodel.JoinColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Referenced
	}
	return out
}
