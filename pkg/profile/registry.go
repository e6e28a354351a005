package profile

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Registry is an immutable set of profiles indexed by id.
type Registry struct {
	byID        map[string]*Profile
	ordered     []*Profile
	fingerprint uint64
}

// NewRegistry creates a new registry.
// Returns an error if two profiles share the same id.
func NewRegistry(profiles ...*Profile) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]*Profile, len(profiles)),
		ordered: make([]*Profile, 0, len(profiles)),
	}
	for _, p := range profiles {
		if _, ok := r.byID[p.ID]; ok {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		r.byID[p.ID] = p
		r.ordered = append(r.ordered, p)
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].ID < r.ordered[j].ID
	})

	h := xxh3.New()
	var b []byte
	for _, p := range r.ordered {
		b = b[:0]
		b = strconv.AppendQuote(b, p.ID)
		b = strconv.AppendQuote(b, p.Name)
		b = append(b, p.Kind.String()...)
		b = append(b, ' ')
		b = append(b, p.Strategy.String()...)
		b = strconv.AppendQuote(b, p.Ignored)
		b = append(b, '\n')
		_, _ = h.Write(b)
	}
	r.fingerprint = h.Sum64()

	return r, nil
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (p *Profile, ok bool) {
	p, ok = r.byID[id]
	return
}

// Len returns the number of profiles.
func (r *Registry) Len() int { return len(r.ordered) }

// Visit calls fn for every profile in order of id
// until fn returns false.
func (r *Registry) Visit(fn func(*Profile) (continueIter bool)) {
	for _, p := range r.ordered {
		if !fn(p) {
			return
		}
	}
}

// Fingerprint returns a hash of every profile's description.
// Two registries with equal profiles have equal fingerprints.
func (r *Registry) Fingerprint() uint64 { return r.fingerprint }
