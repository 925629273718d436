package sim

import (
	"sync/atomic"
	"time"

	"github.com/theaklair/jsorrery/internal/body"
	"github.com/theaklair/jsorrery/internal/vec"
)

// BodyState is the published per-body state at one simulated instant. All
// vectors are in the heliocentric frame, km and km/s.
type BodyState struct {
	Name        string  `json:"name"`
	Central     bool    `json:"central,omitempty"`
	RelativeTo  string  `json:"relative_to,omitempty"`
	Position    vec.V3  `json:"position"`
	Velocity    vec.V3  `json:"velocity"`
	Relative    vec.V3  `json:"relative_position"`
	Speed       float64 `json:"speed_km_s"`
	Angle       float64 `json:"angle_rad"`
	Revolutions int     `json:"revolutions"`
}

// Snapshot is an immutable copy of the whole system at one simulated time.
// Consumers may hold it across ticks without synchronization.
type Snapshot struct {
	Time   time.Time   `json:"time"`
	Bodies []BodyState `json:"bodies"`
}

// Get returns the state of the named body in this snapshot.
func (s *Snapshot) Get(name string) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyState{}, false
}

// Store publishes snapshots with a single atomic pointer swap. Writers
// replace, readers never block.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// Set publishes a new snapshot.
func (st *Store) Set(s *Snapshot) { st.current.Store(s) }

// Get returns the latest snapshot, or nil if none was published yet.
func (st *Store) Get() *Snapshot { return st.current.Load() }

// capture copies the registry's body state into a fresh snapshot. Must be
// called after every body of the tick has been finalized.
func (s *Simulation) capture(t time.Time) *Snapshot {
	ordered := s.reg.Ordered()
	snap := &Snapshot{Time: t, Bodies: make([]BodyState, 0, len(ordered))}
	for _, b := range ordered {
		snap.Bodies = append(snap.Bodies, stateOf(b))
	}
	return snap
}

func stateOf(b *body.Body) BodyState {
	return BodyState{
		Name:        b.Name,
		Central:     b.Central,
		RelativeTo:  b.RelativeTo,
		Position:    b.Position(),
		Velocity:    b.Velocity(),
		Relative:    b.RelativePosition(),
		Speed:       b.Speed(),
		Angle:       b.Angle(),
		Revolutions: b.Revolutions(),
	}
}
