package rdf

// Dataset is a set of quads. Iteration follows insertion order, which is not
// significant for equality.
type Dataset struct {
	index map[string]*Quad
	keys  []string
}

// NewDataset creates a dataset holding the given quads
func NewDataset(quads ...*Quad) *Dataset {
	d := &Dataset{index: make(map[string]*Quad, len(quads))}
	d.AddAll(quads)
	return d
}

// Add inserts a quad and reports whether it was not present yet
func (d *Dataset) Add(q *Quad) bool {
	if q.Graph == nil {
		q = q.InGraph(NewDefaultGraph())
	}
	key := q.Key()
	if _, exists := d.index[key]; exists {
		return false
	}
	d.index[key] = q
	d.keys = append(d.keys, key)
	return true
}

// AddAll inserts every quad of the slice
func (d *Dataset) AddAll(quads []*Quad) {
	for _, q := range quads {
		d.Add(q)
	}
}

// Has reports whether the dataset contains the quad
func (d *Dataset) Has(q *Quad) bool {
	_, ok := d.index[q.Key()]
	return ok
}

// Delete removes a quad and reports whether it was present
func (d *Dataset) Delete(q *Quad) bool {
	key := q.Key()
	if _, ok := d.index[key]; !ok {
		return false
	}
	delete(d.index, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Size returns the number of quads
func (d *Dataset) Size() int {
	return len(d.keys)
}

// Quads returns the quads in insertion order
func (d *Dataset) Quads() []*Quad {
	quads := make([]*Quad, len(d.keys))
	for i, key := range d.keys {
		quads[i] = d.index[key]
	}
	return quads
}

// Match returns the quads matching the pattern. Nil positions are wildcards.
func (d *Dataset) Match(subject, predicate, object, graph Term) *Dataset {
	return d.Filter(func(q *Quad) bool {
		return matches(subject, q.Subject) &&
			matches(predicate, q.Predicate) &&
			matches(object, q.Object) &&
			matches(graph, q.Graph)
	})
}

func matches(pattern, term Term) bool {
	return pattern == nil || pattern.Equals(term)
}

// Filter returns a new dataset with the quads for which keep returns true
func (d *Dataset) Filter(keep func(*Quad) bool) *Dataset {
	result := NewDataset()
	for _, key := range d.keys {
		if q := d.index[key]; keep(q) {
			result.Add(q)
		}
	}
	return result
}

// Map returns a new dataset with every quad transformed. Quads that map to
// the same value collapse into one.
func (d *Dataset) Map(fn func(*Quad) *Quad) *Dataset {
	result := NewDataset()
	for _, key := range d.keys {
		result.Add(fn(d.index[key]))
	}
	return result
}

// Union returns a new dataset with the quads of both datasets
func (d *Dataset) Union(other *Dataset) *Dataset {
	result := d.Clone()
	if other != nil {
		result.AddAll(other.Quads())
	}
	return result
}

// Clone returns a shallow copy of the dataset; quads are immutable and shared
func (d *Dataset) Clone() *Dataset {
	result := &Dataset{
		index: make(map[string]*Quad, len(d.index)),
		keys:  append([]string(nil), d.keys...),
	}
	for k, q := range d.index {
		result.index[k] = q
	}
	return result
}

// Equals reports whether both datasets hold exactly the same quads.
// Blank node labels are compared as is; use Canonical for isomorphism.
func (d *Dataset) Equals(other *Dataset) bool {
	if other == nil || d.Size() != other.Size() {
		return false
	}
	for key := range d.index {
		if _, ok := other.index[key]; !ok {
			return false
		}
	}
	return true
}

// Iterator returns a one-shot source over a snapshot of the quads
func (d *Dataset) Iterator() QuadSource {
	return NewQuadSource(d.Quads())
}

// QuadSource is a finite, one-shot sequence of quads
type QuadSource interface {
	Next() bool
	Quad() *Quad
	Err() error
}

// sliceSource implements QuadSource over a slice
type sliceSource struct {
	quads   []*Quad
	pos     int
	current *Quad
}

// NewQuadSource wraps a slice of quads as a QuadSource
func NewQuadSource(quads []*Quad) QuadSource {
	return &sliceSource{quads: quads}
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.quads) {
		s.current = nil
		return false
	}
	s.current = s.quads[s.pos]
	s.pos++
	return true
}

func (s *sliceSource) Quad() *Quad {
	return s.current
}

func (s *sliceSource) Err() error {
	return nil
}

// ReadAll drains a quad source into a slice
func ReadAll(src QuadSource) ([]*Quad, error) {
	var quads []*Quad
	for src.Next() {
		quads = append(quads, src.Quad())
	}
	return quads, src.Err()
}
