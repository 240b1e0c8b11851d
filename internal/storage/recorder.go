package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/teleop/internal/metrics"
	"github.com/san-kum/teleop/internal/teleop"
)

// Recorder buffers the ticks of one session and writes them on Save. It
// is driven from the loop goroutine and is not safe for concurrent use.
type Recorder struct {
	store   *Store
	meta    SessionMetadata
	metrics []metrics.Metric
	poses   []PoseRecord
}

// NewRecorder starts a session with a fresh id. meta supplies the robot,
// time step and integrator; ID, Timestamp and the totals are filled in.
func NewRecorder(store *Store, meta SessionMetadata) *Recorder {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	return &Recorder{
		store:   store,
		meta:    meta,
		metrics: metrics.Standard(),
	}
}

func (r *Recorder) ID() string { return r.meta.ID }

func (r *Recorder) OnTick(s teleop.Sample) {
	t := s.Elapsed.Seconds()
	for _, m := range r.metrics {
		m.Observe(s.Pose, s.Command, t)
	}
	r.poses = append(r.poses, PoseRecord{
		Time:    t,
		Pose:    s.Pose,
		Linear:  s.Command.Linear.X,
		Angular: s.Command.Angular.Z,
	})
}

// Save writes the session with its exit reason and metrics.
func (r *Recorder) Save(exit teleop.ExitReason) (*SessionMetadata, error) {
	meta := r.meta
	meta.Ticks = len(r.poses)
	if n := len(r.poses); n > 0 {
		meta.Duration = r.poses[n-1].Time
	}
	meta.Exit = exit.String()
	meta.Metrics = metrics.Collect(r.metrics)

	if err := r.store.Init(); err != nil {
		return nil, err
	}
	if err := r.store.Save(meta, r.poses); err != nil {
		return nil, err
	}
	return &meta, nil
}
