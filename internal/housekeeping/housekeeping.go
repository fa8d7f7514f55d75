// Package housekeeping runs the periodic maintenance job: logging the
// live worker count and tree node count on a fixed interval. Grounded on
// the teacher's internal/taskManager (Start/Shutdown wrapping a
// gocron.Scheduler with gocron.DurationJob/gocron.NewTask).
package housekeeping

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nbtaylor/treedb/internal/registry"
	"github.com/nbtaylor/treedb/internal/store"
	"github.com/nbtaylor/treedb/pkg/log"
)

// Scheduler wraps a gocron.Scheduler running a single recurring job.
type Scheduler struct {
	s gocron.Scheduler
}

// Start builds and starts a Scheduler that logs reg's live client count
// and st's node count every interval.
func Start(interval time.Duration, reg *registry.Registry, st *store.Store) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(gocron.DurationJob(interval),
		gocron.NewTask(func() {
			log.Infof("housekeeping: %d clients connected, %d nodes in tree", reg.Len(), st.NodeCount())
		}))
	if err != nil {
		return nil, err
	}

	sched.Start()
	return &Scheduler{s: sched}, nil
}

// Shutdown stops the scheduler's background goroutine.
func (s *Scheduler) Shutdown() error {
	return s.s.Shutdown()
}
