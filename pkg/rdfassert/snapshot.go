package rdfassert

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// UpdateSnapshotsEnv rewrites snapshot files instead of comparing when set
// to 1
const UpdateSnapshotsEnv = "RDFIXTURE_UPDATE_SNAPSHOTS"

// SnapshotDir holds snapshot files, relative to the package under test
var SnapshotDir = filepath.Join("testdata", "snapshots")

var counters = struct {
	sync.Mutex
	calls map[string]int
}{calls: make(map[string]int)}

// MatchCanonicalSnapshot compares the canonical N-Quads of dataset with the
// snapshot of the test. Blank node labels and quad order do not matter.
func MatchCanonicalSnapshot(t testing.TB, dataset *rdf.Dataset) bool {
	t.Helper()
	canonical, err := dataset.Canonical()
	require.NoError(t, err, "canonicalize dataset")
	return matchSnapshot(t, []byte(canonical), "nq")
}

// MatchSnapshot compares the serialization of dataset in format with the
// snapshot of the test
func MatchSnapshot(t testing.TB, dataset *rdf.Dataset, format rdf.Format) bool {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dataset.Serialize(&buf, format), "serialize dataset")
	return matchSnapshot(t, buf.Bytes(), format.Extension())
}

func matchSnapshot(t testing.TB, got []byte, ext string) bool {
	t.Helper()
	path := snapshotPath(t, ext)

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, got, 0o600))
		return true
	}

	want, err := os.ReadFile(path) // #nosec G304 - path is built from the test name
	if errors.Is(err, fs.ErrNotExist) {
		return assert.Fail(t, fmt.Sprintf("snapshot %s does not exist, run with %s=1 to create it", path, UpdateSnapshotsEnv))
	}
	require.NoError(t, err)
	return assert.Equal(t, string(want), string(got), "snapshot %s", path)
}

// snapshotPath names the n-th snapshot of a test
func snapshotPath(t testing.TB, ext string) string {
	name := t.Name()

	counters.Lock()
	n, seen := counters.calls[name]
	counters.calls[name] = n + 1
	counters.Unlock()

	if !seen {
		t.Cleanup(func() {
			counters.Lock()
			delete(counters.calls, name)
			counters.Unlock()
		})
	}

	file := strings.NewReplacer("/", "__", " ", "_", ":", "_").Replace(name)
	if n > 0 {
		file = fmt.Sprintf("%s_%d", file, n+1)
	}
	return filepath.Join(SnapshotDir, file+"."+ext)
}
