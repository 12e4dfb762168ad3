// Package version identifies an entityql binary: its release, the model
// file versions it loads and the SQL dialects it can compile queries and
// DDL for. The version command prints the full report; --version prints
// the one-line form.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string

	// ModelVersions is the constraint a model file's version must meet.
	ModelVersions string
	Dialects      []string
}

func Get() Info {
	return Info{
		Version:       Version,
		BuildDate:     BuildDate,
		GitCommit:     GitCommit,
		GoVersion:     runtime.Version(),
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		ModelVersions: metamodel.SupportedVersions,
		Dialects:      sqlgen.Dialects(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("entityql version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString is the report of the version command.
func (i Info) FullString() string {
	return fmt.Sprintf(`entityql version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s
Model Versions: %s
Dialects: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion, i.ModelVersions, strings.Join(i.Dialects, ", "))
}
