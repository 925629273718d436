package body

import (
	"sort"
	"sync"
	"time"

	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
	"github.com/theaklair/jsorrery/internal/vec"
)

// Registry is the name-to-body lookup shared by a simulation. It is
// populated once at startup and treated as read-only during ticks, so reads
// need no locking on the hot path; the mutex only guards registration.
type Registry struct {
	mu      sync.RWMutex
	bodies  map[string]*Body
	central *Body
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bodies: make(map[string]*Body)}
}

// Add registers a body. The last body added with Central set becomes the
// universal central body.
func (r *Registry) Add(b *Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies[b.Name] = b
	if b.Central {
		r.central = b
	}
}

// Get returns the body with the given name, or nil when unknown.
func (r *Registry) Get(name string) *Body {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bodies[name]
}

// Central returns the universal central body, or nil if none is registered.
func (r *Registry) Central() *Body {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.central
}

// Mu returns the gravitational parameter G*mass (km^3/s^2) of the named
// body, or 0 when the body is unknown. Callers treat 0 as "unresolvable".
func (r *Registry) Mu(name string) float64 {
	b := r.Get(name)
	if b == nil {
		return 0
	}
	return ephem.G * b.Mass
}

// Depth returns the number of relative-to hops from the named body to a
// root (central or parentless) body. Walks are bounded by the registry size
// so a cyclic configuration cannot hang; cycles are a caller error and are
// not otherwise detected.
func (r *Registry) Depth(name string) int {
	depth := 0
	b := r.Get(name)
	for b != nil && !b.Central && b.RelativeTo != "" && depth < r.Len() {
		b = r.Get(b.RelativeTo)
		depth++
	}
	return depth
}

// Len returns the number of registered bodies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bodies)
}

// Ordered returns all bodies sorted by relative-to depth, then name. This is
// the topological tick order: every body appears after its parent, so frame
// composition reads only finalized parent state.
func (r *Registry) Ordered() []*Body {
	r.mu.RLock()
	all := make([]*Body, 0, len(r.bodies))
	for _, b := range r.bodies {
		all = append(all, b)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		di, dj := r.Depth(all[i].Name), r.Depth(all[j].Name)
		if di != dj {
			return di < dj
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// Levels groups the ordered bodies by depth. Bodies within one level are
// independent of each other and may be propagated in parallel.
func (r *Registry) Levels() [][]*Body {
	var levels [][]*Body
	last := -1
	for _, b := range r.Ordered() {
		d := r.Depth(b.Name)
		if d != last {
			levels = append(levels, nil)
			last = d
		}
		levels[len(levels)-1] = append(levels[len(levels)-1], b)
	}
	return levels
}

// AbsolutePositionAt computes the absolute position of the named body at
// time t without mutating any body state, composing parent frames up the
// relative-to chain. ok is false when the body is unknown. Chain walks are
// bounded by the registry size.
func (r *Registry) AbsolutePositionAt(name string, t time.Time) (vec.V3, bool) {
	b := r.Get(name)
	if b == nil {
		return vec.V3{}, false
	}
	days := ephem.DaysSinceJ2000(t)

	pos := vec.V3{}
	for hops := 0; b != nil && !b.Central && hops < r.Len(); hops++ {
		pos = pos.Add(orbit.Position(b.Elements.Evaluate(days)))
		b = r.Get(b.RelativeTo)
	}
	return pos, true
}
