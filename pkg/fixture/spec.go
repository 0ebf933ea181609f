package fixture

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aleksaelezovic/rdfixture/internal/storage"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// Spec describes the fixture file of a group of tests
type Spec struct {
	// Base locates the fixture file without its extension, as a path or a
	// file URL
	Base string `yaml:"base"`
	// Format of the fixture file, Turtle when empty
	Format rdf.Format `yaml:"format"`
	// BaseIRI resolves relative IRIs of every parsed file
	BaseIRI string `yaml:"baseIRI"`
	// BaseIRIFunc is used instead of BaseIRI when set, typically a
	// namespace builder
	BaseIRIFunc func() string `yaml:"-"`
	// Include lists more files, relative to the fixture file, that are
	// always loaded in full
	Include []string `yaml:"include"`
	// LoadAll disables per-test graph selection. Formats without named
	// graphs are always loaded in full.
	LoadAll bool `yaml:"loadAll"`
	// IncludeDefaultGraph keeps the default graph of the fixture file next
	// to the selected graph
	IncludeDefaultGraph bool `yaml:"includeDefaultGraph"`
	// Slice selects the test path segments that name the graph,
	// DefaultWindow when nil
	Slice *Window `yaml:"slice"`
	// Backend stores the loaded data, in memory when empty
	Backend storage.Backend `yaml:"backend"`
}

func (s Spec) format() rdf.Format {
	if s.Format == "" {
		return rdf.FormatTurtle
	}
	if f, err := rdf.ParseFormat(string(s.Format)); err == nil {
		return f
	}
	return s.Format
}

func (s Spec) baseIRI() string {
	if s.BaseIRIFunc != nil {
		return s.BaseIRIFunc()
	}
	return s.BaseIRI
}

func (s Spec) window() Window {
	if s.Slice == nil {
		return DefaultWindow
	}
	return *s.Slice
}

// selectsGraphs reports whether one graph is loaded per test
func (s Spec) selectsGraphs() bool {
	return !s.LoadAll && s.format().SupportsGraphs()
}

// path returns the fixture file location
func (s Spec) path() (string, error) {
	base := s.Base
	if strings.HasPrefix(base, "file:") {
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid fixture base %q: %w", base, err)
		}
		base = filepath.FromSlash(u.Path)
	}
	if base == "" {
		return "", fmt.Errorf("fixture base is empty")
	}
	return base + "." + s.format().Extension(), nil
}

// includePath resolves an include against the directory of the fixture file
func includePath(primary, include string) string {
	if strings.HasPrefix(include, "file:") {
		if u, err := url.Parse(include); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	if filepath.IsAbs(include) {
		return include
	}
	return filepath.Join(filepath.Dir(primary), filepath.FromSlash(include))
}

// Validate checks the fields without reading any file
func (s Spec) Validate() error {
	if _, err := rdf.ParseFormat(string(s.format())); err != nil {
		return err
	}
	if _, err := s.path(); err != nil {
		return err
	}
	switch s.Backend {
	case "", storage.BackendMemory, storage.BackendBolt:
		return nil
	default:
		return fmt.Errorf("fixtures cannot use the %q backend", s.Backend)
	}
}

type manifest struct {
	Fixtures map[string]Spec `yaml:"fixtures"`
}

// LoadSpecs reads named fixture specs from a YAML manifest. Relative bases
// are resolved against the directory of the manifest.
//
//	fixtures:
//	  people:
//	    base: testdata/people
//	    format: trig
//	    slice: [1, -1]
func LoadSpecs(path string) (map[string]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for name, spec := range m.Fixtures {
		if spec.Base != "" && !strings.HasPrefix(spec.Base, "file:") && !filepath.IsAbs(spec.Base) {
			spec.Base = filepath.Join(dir, filepath.FromSlash(spec.Base))
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", name, err)
		}
		m.Fixtures[name] = spec
	}
	return m.Fixtures, nil
}
