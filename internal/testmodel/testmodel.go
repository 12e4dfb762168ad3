// Package testmodel provides the sample persistence unit used by tests and
// by the CLI examples.
package testmodel

import (
	_ "embed"
	"strings"

	"github.com/satishbabariya/entityql/metamodel"
)

//go:embed model.yaml
var source string

// Source returns the YAML text of the sample model.
func Source() string {
	return source
}

// New builds the sample metamodel and panics on error.
func New() *metamodel.Metamodel {
	mm, err := metamodel.Load(strings.NewReader(source))
	if err != nil {
		panic(err)
	}
	return mm
}
