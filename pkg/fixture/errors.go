package fixture

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFixture is matched by every *EmptyFixtureError
	ErrEmptyFixture = errors.New("fixture data not found")
	// ErrAlreadyInstalled is returned when a test installs a second fixture
	ErrAlreadyInstalled = errors.New("fixture already installed for this test")
	// ErrNotInstalled is returned by From when no enclosing test installed a
	// fixture
	ErrNotInstalled = errors.New("no fixture installed")
)

// ResourceError reports a fixture file that could not be read
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("fixture resource %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// EmptyFixtureError reports a fixture whose expected data is missing
type EmptyFixtureError struct {
	// Graph is the IRI the test data was expected in, empty when the whole
	// file was loaded or no graph could be named
	Graph string
	// Cause explains why no graph could be named, such as ErrEmptyTestPath
	Cause error
}

func (e *EmptyFixtureError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("test data not found: %v", e.Cause)
	case e.Graph == "":
		return "test data not found"
	default:
		return fmt.Sprintf("test data not found in GRAPH <%s>", e.Graph)
	}
}

func (e *EmptyFixtureError) Is(target error) bool {
	return target == ErrEmptyFixture
}

func (e *EmptyFixtureError) Unwrap() error {
	return e.Cause
}
