package fixture

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// ErrEmptyTestPath is returned when the window selects no path segment
var ErrEmptyTestPath = errors.New("test path window selects no segments")

// TestPath lists the names of nested tests down to one test case
type TestPath []string

// PathOf returns the test path of t, one segment per subtest level.
// The testing package turns spaces in subtest names into underscores, so
// underscores are read back as dashes: t.Run("my group", ...) and
// t.Run("my_group", ...) both give the segment "my-group", as GraphIRI
// would have named the original title. Use SetupPath to name a graph with
// an underscore.
func PathOf(t testing.TB) TestPath {
	return strings.Split(strings.ReplaceAll(t.Name(), "_", "-"), "/")
}

func (p TestPath) String() string {
	return strings.Join(p, "/")
}

// ToEnd as a window end keeps every segment after the start
const ToEnd = math.MaxInt

// Window selects the segments [Start, End) of a test path. Negative
// values count from the end of the path and out of range values are
// clamped.
type Window struct {
	Start int
	End   int
}

// DefaultWindow drops the top-level test and the test case itself
var DefaultWindow = Window{Start: 1, End: -1}

// UnmarshalYAML reads a window written as a two element sequence
func (w *Window) UnmarshalYAML(value *yaml.Node) error {
	var bounds []int
	if err := value.Decode(&bounds); err != nil {
		return err
	}
	if len(bounds) != 2 {
		return fmt.Errorf("line %d: slice window needs two bounds, got %d", value.Line, len(bounds))
	}
	w.Start, w.End = bounds[0], bounds[1]
	return nil
}

func (w Window) apply(path TestPath) TestPath {
	start, end := clamp(w.Start, len(path)), clamp(w.End, len(path))
	if start >= end {
		return nil
	}
	return path[start:end]
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n)
}

// GraphIRI names the graph holding the data of one test. The selected
// segments are joined with "/", spaces become dashes and the result is
// percent-encoded. The IRI is used as is, no base is applied.
func GraphIRI(path TestPath, w Window) (*rdf.NamedNode, error) {
	selected := w.apply(path)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %q with window [%d, %d]", ErrEmptyTestPath, path.String(), w.Start, w.End)
	}
	joined := strings.ReplaceAll(selected.String(), " ", "-")
	return rdf.NewNamedNode(encodeURI(joined)), nil
}

// encodeURI percent-encodes every byte that is neither unreserved nor
// reserved in a URI
func encodeURI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepInURI(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func keepInURI(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(";,/?:@&=+$-_.!~*'()#", c) >= 0
}

// GraphCollisionError reports two test paths that are named by the same
// graph IRI
type GraphCollisionError struct {
	IRI    string
	First  TestPath
	Second TestPath
}

func (e *GraphCollisionError) Error() string {
	return fmt.Sprintf("tests %q and %q both map to graph <%s>", e.First.String(), e.Second.String(), e.IRI)
}

// NameRegistry computes graph IRIs and remembers which test path produced
// each of them
type NameRegistry struct {
	mu    sync.Mutex
	paths map[string]TestPath
}

// NewNameRegistry creates an empty registry
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{paths: make(map[string]TestPath)}
}

// GraphIRI is like the package level GraphIRI but fails with a
// *GraphCollisionError when a different path already produced the same IRI
func (r *NameRegistry) GraphIRI(path TestPath, w Window) (*rdf.NamedNode, error) {
	iri, err := GraphIRI(path, w)
	if err != nil {
		return nil, err
	}
	selected := w.apply(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.paths[iri.IRI]; ok {
		if !slices.Equal(prev, selected) {
			return nil, &GraphCollisionError{IRI: iri.IRI, First: prev, Second: selected}
		}
		return iri, nil
	}
	r.paths[iri.IRI] = append(TestPath(nil), selected...)
	return iri, nil
}
