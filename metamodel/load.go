package metamodel

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/entityql/diagnostics"
)

// SupportedVersions is the range of model file versions Load accepts.
const SupportedVersions = ">= 1.0, < 2.0"

var supported = version.MustConstraints(version.NewConstraint(SupportedVersions))

// Load reads a YAML model file and builds its metamodel.
func Load(r io.Reader) (*Metamodel, error) {
	m, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return FromModel(m)
}

// LoadFile reads a model file from fs.
func LoadFile(fs afero.Fs, path string) (*Metamodel, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	mm, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mm, nil
}

// Decode parses a model file without building it.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, &diagnostics.ModelError{Message: fmt.Sprintf("malformed model file: %v", err)}
	}
	if err := checkVersion(m.Version); err != nil {
		return nil, err
	}
	return &m, nil
}

func checkVersion(v string) error {
	if v == "" {
		return &diagnostics.ModelError{Message: "model file has no version"}
	}
	parsed, err := version.NewVersion(v)
	if err != nil {
		return &diagnostics.ModelError{Message: fmt.Sprintf("invalid model version %q", v)}
	}
	if !supported.Check(parsed) {
		return &diagnostics.ModelError{Message: fmt.Sprintf("model version %s is outside the supported range %s", v, SupportedVersions)}
	}
	return nil
}
