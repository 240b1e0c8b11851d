// Package teleop runs the keyboard control loop against an engine
// session.
//
// Each tick steps the world, reads the robot pose, polls the keyboard,
// turns the triggered keys into a velocity command and pushes it onto the
// robot. The loop is open loop with respect to pose: the pose is only
// read for display and recording.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/teleop/internal/config"
	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/engine"
)

type ExitReason int

const (
	ExitQuit ExitReason = iota
	ExitDisconnected
	ExitCanceled
	ExitError
)

func (r ExitReason) String() string {
	switch r {
	case ExitQuit:
		return "quit"
	case ExitDisconnected:
		return "disconnected"
	case ExitCanceled:
		return "canceled"
	case ExitError:
		return "error"
	}
	return "unknown"
}

// Sample is the per-tick view handed to observers and sinks.
type Sample struct {
	Tick    int
	Elapsed time.Duration
	Pose    dynamo.Pose
	Command dynamo.Twist
	Actions []control.Action
}

// Observer sees every completed tick.
type Observer interface {
	OnTick(s Sample)
}

// Sink receives rate-limited pose reports.
type Sink interface {
	Report(s Sample)
}

type Loop struct {
	sess     engine.Session
	robot    dynamo.BodyID
	start    dynamo.Pose
	teleop   *control.Teleop
	clock    Clock
	sleep    time.Duration
	reporter *Reporter
	sinks    []Sink
	watchers []Observer
	logger   *zap.Logger

	tick    int
	began   time.Time
	pose    dynamo.Pose
	command dynamo.Twist
	closed  bool
}

type Option func(*Loop)

func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

func WithSink(s Sink) Option {
	return func(l *Loop) { l.sinks = append(l.sinks, s) }
}

func WithObserver(o Observer) Option {
	return func(l *Loop) { l.watchers = append(l.watchers, o) }
}

// New wraps an already prepared session. start is the pose Reset returns
// the robot to.
func New(sess engine.Session, robot dynamo.BodyID, start dynamo.Pose, tel *control.Teleop, sleep, reportEvery time.Duration, opts ...Option) *Loop {
	l := &Loop{
		sess:     sess,
		robot:    robot,
		start:    start,
		teleop:   tel,
		clock:    RealClock(),
		sleep:    sleep,
		reporter: NewReporter(reportEvery),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Setup connects to eng and prepares the world described by cfg: gravity,
// ground surface and robot body. Any failure is final; a session opened
// before the failure is disconnected.
func Setup(ctx context.Context, eng engine.Engine, cfg *config.Config, engOpts engine.Options, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	keymap, err := control.DefaultKeymap().With(cfg.Keymap)
	if err != nil {
		return nil, fmt.Errorf("%w: keymap: %w", ErrSetup, err)
	}

	if engOpts.TimeStep == 0 {
		engOpts.TimeStep = cfg.World.TimeStep
	}
	if engOpts.Integrator == "" {
		engOpts.Integrator = cfg.World.Integrator
	}

	sess, err := eng.Connect(ctx, engOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	start := dynamo.Pose{
		Position: dynamo.Vec3{
			X: cfg.Robot.StartPosition[0],
			Y: cfg.Robot.StartPosition[1],
			Z: cfg.Robot.StartPosition[2],
		},
		Orientation: dynamo.QuatFromEuler(cfg.Robot.StartEuler[0], cfg.Robot.StartEuler[1], cfg.Robot.StartEuler[2]),
	}

	robot, err := prepare(sess, cfg, start)
	if err != nil {
		_ = sess.Disconnect()
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	tel := control.NewTeleop(keymap, control.Speeds{Linear: cfg.Speeds.Linear, Angular: cfg.Speeds.Angular})
	l := New(sess, robot, start, tel, cfg.Loop.Sleep, cfg.Report.Interval, opts...)
	l.logger.Info("world ready",
		zap.String("mode", engOpts.Mode.String()),
		zap.String("robot", cfg.Robot.Asset),
		zap.String("plane", cfg.World.Plane),
		zap.Float64("gravity", cfg.World.Gravity),
	)
	return l, nil
}

func prepare(sess engine.Session, cfg *config.Config, start dynamo.Pose) (dynamo.BodyID, error) {
	if err := sess.SetGravity(dynamo.Vec3{Z: -cfg.World.Gravity}); err != nil {
		return 0, fmt.Errorf("set gravity: %w", err)
	}
	if _, err := sess.LoadStaticSurface(cfg.World.Plane); err != nil {
		return 0, fmt.Errorf("load plane: %w", err)
	}
	robot, err := sess.LoadBody(cfg.Robot.Asset, start.Position, start.Orientation)
	if err != nil {
		return 0, fmt.Errorf("load robot: %w", err)
	}
	return robot, nil
}

func (l *Loop) Teleop() *control.Teleop { return l.teleop }
func (l *Loop) Robot() dynamo.BodyID    { return l.robot }
func (l *Loop) Ticks() int              { return l.tick }

// Run ticks until quit, disconnect, cancellation or a collaborator error.
// The session is disconnected exactly once on every path.
func (l *Loop) Run(ctx context.Context) (ExitReason, error) {
	for {
		if ctx.Err() != nil {
			return l.finish(ExitCanceled, nil)
		}
		if !l.sess.IsConnected() {
			return l.finish(ExitDisconnected, nil)
		}

		done, err := l.Tick()
		if errors.Is(err, dynamo.ErrNotConnected) {
			return l.finish(ExitDisconnected, nil)
		}
		if err != nil {
			return l.finish(ExitError, err)
		}
		if done {
			return l.finish(ExitQuit, nil)
		}
	}
}

func (l *Loop) finish(reason ExitReason, err error) (ExitReason, error) {
	if !l.closed {
		l.closed = true
		if derr := l.sess.Disconnect(); derr != nil {
			l.logger.Warn("disconnect failed", zap.Error(derr))
		}
	}

	fields := []zap.Field{zap.Stringer("reason", reason), zap.Int("ticks", l.tick)}
	if err != nil {
		l.logger.Error("loop stopped", append(fields, zap.Error(err))...)
	} else {
		l.logger.Info("loop stopped", fields...)
	}
	return reason, err
}

// Tick runs one iteration. It returns done when the quit action was
// pressed; in that case nothing after the poll runs.
func (l *Loop) Tick() (bool, error) {
	if l.tick == 0 {
		l.began = l.clock.Now()
	}
	l.tick++

	if err := l.sess.Step(); err != nil {
		return false, &TickError{Tick: l.tick, Op: "step", Wrapped: err}
	}

	pose, err := l.sess.Pose(l.robot)
	if err != nil {
		return false, &TickError{Tick: l.tick, Op: "pose", Wrapped: err}
	}
	l.pose = pose

	d := l.teleop.Decide(l.sess.PollKeyboard())
	if d.Quit {
		l.logger.Info("quit requested", zap.Int("tick", l.tick))
		return true, nil
	}

	if d.Reset {
		if err := l.sess.ResetPose(l.robot, l.start); err != nil {
			return false, &TickError{Tick: l.tick, Op: "reset", Wrapped: err}
		}
		l.logger.Debug("robot reset", zap.Int("tick", l.tick))
	}

	if err := l.sess.SetVelocity(l.robot, d.Command); err != nil {
		return false, &TickError{Tick: l.tick, Op: "set velocity", Wrapped: err}
	}
	l.command = d.Command

	now := l.clock.Now()
	s := Sample{
		Tick:    l.tick,
		Elapsed: now.Sub(l.began),
		Pose:    l.pose,
		Command: l.command,
		Actions: d.Actions,
	}
	for _, o := range l.watchers {
		o.OnTick(s)
	}
	if l.reporter.Due(now) {
		for _, sink := range l.sinks {
			sink.Report(s)
		}
	}

	l.clock.Sleep(l.sleep)
	return false, nil
}
