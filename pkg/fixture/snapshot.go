package fixture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aleksaelezovic/rdfixture/internal/storage"
	"github.com/aleksaelezovic/rdfixture/pkg/store"
)

// Snapshot writes the current data to a BadgerDB directory, replacing what
// the directory held. It returns the number of quads written.
func (d *Data) Snapshot(dir string) (int, error) {
	dataset, err := d.Dataset()
	if err != nil {
		return 0, err
	}

	ts, err := openSnapshotStore(dir)
	if err != nil {
		return 0, err
	}
	previous, err := ts.Dataset()
	if err == nil {
		err = ts.Apply(previous.Quads(), dataset.Quads())
	}
	if closeErr := ts.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return 0, fmt.Errorf("write snapshot %s: %w", dir, err)
	}
	return dataset.Size(), nil
}

// OpenSnapshot opens a directory written by Data.Snapshot. Changes made
// through the returned fixture persist until the directory is written
// again. The caller closes the fixture.
func OpenSnapshot(dir string) (*Fixture, error) {
	ts, err := openSnapshotStore(dir)
	if err != nil {
		return nil, err
	}
	return newFixture(ts, nil, slog.Default()), nil
}

func openSnapshotStore(dir string) (*store.TripleStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory is empty")
	}
	ts, err := storage.OpenStore(storage.Config{Backend: storage.BackendBadger, Path: dir})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", dir, err)
	}
	return ts, nil
}
