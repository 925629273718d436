package sim

import (
	"sync"
	"time"

	"github.com/theaklair/jsorrery/internal/body"
)

// tickLevel propagates one depth level of the hierarchy. Bodies at the same
// depth never read each other's state, so they fan out across a bounded pool
// of workers; the call returns only after the whole level is finalized.
func (s *Simulation) tickLevel(level []*body.Body, target time.Time, deltaSeconds float64) {
	workers := s.config.Workers
	if workers > len(level) {
		workers = len(level)
	}
	if workers <= 1 {
		for _, b := range level {
			s.tickBody(b, target, deltaSeconds)
		}
		return
	}

	jobs := make(chan *body.Body, len(level))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				s.tickBody(b, target, deltaSeconds)
			}
		}()
	}
	for _, b := range level {
		jobs <- b
	}
	close(jobs)
	wg.Wait()
}

func (s *Simulation) tickBody(b *body.Body, target time.Time, deltaSeconds float64) {
	b.SetPositionFromDate(target, true)
	b.Tick(s.reg, deltaSeconds, true)
}
