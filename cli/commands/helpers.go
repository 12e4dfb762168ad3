package commands

import (
	"os"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

// errReported marks an error whose details were already printed.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }

func loadModel(opts *options) (*metamodel.Metamodel, error) {
	return metamodel.LoadFile(config.AppFs, opts.modelPath())
}

func setup(opts *options) (*metamodel.Metamodel, *sqlgen.Generator, error) {
	mm, err := loadModel(opts)
	if err != nil {
		return nil, nil, err
	}
	g, err := sqlgen.NewGenerator(opts.dialectName())
	if err != nil {
		return nil, nil, err
	}
	return mm, g, nil
}

// report pretty prints err against the text it came from.
func report(name, text string, err error) error {
	_ = diagnostics.PrettyPrint(os.Stderr, name, text, err)
	return errReported{err}
}

// driverName maps a dialect to the database/sql driver registered for it.
func driverName(dialect string) string {
	switch dialect {
	case "postgresql", "postgres", "cockroachdb":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return dialect
	}
}
