package teleop_test

import (
	"bytes"
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/teleop/internal/config"
	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/engine"
	"github.com/san-kum/teleop/internal/input"
	"github.com/san-kum/teleop/internal/teleop"
)

const (
	vLinear  = 2.0
	vAngular = 1.0
)

var _ = Describe("Loop", func() {
	var (
		sess  *fakeSession
		clock *fakeClock
		start dynamo.Pose
	)

	newLoop := func(opts ...teleop.Option) *teleop.Loop {
		tel := control.NewTeleop(control.DefaultKeymap(), control.Speeds{Linear: vLinear, Angular: vAngular})
		opts = append([]teleop.Option{teleop.WithClock(clock)}, opts...)
		return teleop.New(sess, 2, start, tel, 10*time.Millisecond, time.Second, opts...)
	}

	BeforeEach(func() {
		clock = newFakeClock()
		start = dynamo.Pose{Position: dynamo.Vec3{Z: 1}, Orientation: dynamo.IdentityQuat}
	})

	Describe("a single tick", func() {
		It("runs step, pose, poll, apply and sleep in order", func() {
			sess = newFakeSession()
			done, err := newLoop().Tick()

			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(sess.calls).To(Equal([]string{"step", "pose", "poll", "velocity"}))
			Expect(clock.slept).To(Equal([]time.Duration{10 * time.Millisecond}))
		})

		It("sends the zero command when no key is pressed", func() {
			sess = newFakeSession()
			_, err := newLoop().Tick()

			Expect(err).NotTo(HaveOccurred())
			Expect(sess.velocities).To(Equal([]dynamo.Twist{{}}))
		})

		It("drives forward on a triggered forward key", func() {
			sess = newFakeSession(pressed("i"))
			_, _ = newLoop().Tick()

			Expect(sess.velocities).To(Equal([]dynamo.Twist{
				{Linear: dynamo.Vec3{X: vLinear}},
			}))
		})

		It("turns right on a triggered turn-right key", func() {
			sess = newFakeSession(pressed("l"))
			_, _ = newLoop().Tick()

			Expect(sess.velocities).To(Equal([]dynamo.Twist{
				{Angular: dynamo.Vec3{Z: -vAngular}},
			}))
		})

		DescribeTable("key mapping",
			func(key input.Key, want dynamo.Twist) {
				sess = newFakeSession(pressed(key))
				_, _ = newLoop().Tick()
				Expect(sess.velocities).To(ConsistOf(want))
			},
			Entry("forward", input.Key("i"), dynamo.Twist{Linear: dynamo.Vec3{X: vLinear}}),
			Entry("backward", input.Key("k"), dynamo.Twist{Linear: dynamo.Vec3{X: -vLinear}}),
			Entry("turn left", input.Key("j"), dynamo.Twist{Angular: dynamo.Vec3{Z: vAngular}}),
			Entry("turn right", input.Key("l"), dynamo.Twist{Angular: dynamo.Vec3{Z: -vAngular}}),
			Entry("unbound", input.Key("x"), dynamo.Twist{}),
		)

		It("lets the last of forward and backward in poll order win", func() {
			sess = newFakeSession(pressed("i", "k"), pressed("k", "i"))
			l := newLoop()
			_, _ = l.Tick()
			_, _ = l.Tick()

			Expect(sess.velocities).To(Equal([]dynamo.Twist{
				{Linear: dynamo.Vec3{X: -vLinear}},
				{Linear: dynamo.Vec3{X: vLinear}},
			}))
		})

		It("resets the robot to its start pose before applying the command", func() {
			sess = newFakeSession(pressed("r", "i"))
			_, err := newLoop().Tick()

			Expect(err).NotTo(HaveOccurred())
			Expect(sess.resets).To(Equal([]dynamo.Pose{start}))
			Expect(sess.callsAfter("poll")).To(Equal([]string{"reset", "velocity"}))
			Expect(sess.velocities[0].Linear.X).To(Equal(vLinear))
		})

		It("wraps collaborator failures with the tick", func() {
			sess = newFakeSession()
			sess.stepErr = errBoom
			_, err := newLoop().Tick()

			var tickErr *teleop.TickError
			Expect(err).To(BeAssignableToTypeOf(tickErr))
			Expect(err).To(MatchError(errBoom))
			Expect(err.Error()).To(ContainSubstring("tick 1: step"))
		})
	})

	Describe("edge triggering", func() {
		It("does not keep moving while a key is held", func() {
			held := []input.Event{{Key: "i", State: input.Down}}
			sess = newFakeSession(pressed("i"), held, held, nil)
			l := newLoop()
			for i := 0; i < 4; i++ {
				_, _ = l.Tick()
			}

			Expect(sess.velocities).To(Equal([]dynamo.Twist{
				{Linear: dynamo.Vec3{X: vLinear}},
				{}, {}, {},
			}))
		})

		It("resets the command to zero on the tick after a press", func() {
			sess = newFakeSession(pressed("j"))
			l := newLoop()
			_, _ = l.Tick()
			_, _ = l.Tick()

			Expect(sess.velocities[1]).To(Equal(dynamo.Twist{}))
		})
	})

	Describe("Run", func() {
		It("disconnects exactly once on quit and stops calling the session", func() {
			sess = newFakeSession(nil, pressed("i"), pressed("q"), pressed("i"))
			reason, err := newLoop().Run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(reason).To(Equal(teleop.ExitQuit))
			Expect(sess.disconnect).To(Equal(1))
			Expect(sess.steps).To(Equal(3))
			Expect(sess.velocities).To(HaveLen(2))
			Expect(sess.callsAfter("poll")).NotTo(BeEmpty())

			last := sess.calls[len(sess.calls)-2:]
			Expect(last).To(Equal([]string{"poll", "disconnect"}))
		})

		It("quits on the tick the key is seen, ignoring later keys in the batch", func() {
			sess = newFakeSession(pressed("q", "i"))
			reason, _ := newLoop().Run(context.Background())

			Expect(reason).To(Equal(teleop.ExitQuit))
			Expect(sess.velocities).To(BeEmpty())
			Expect(clock.slept).To(BeEmpty())
		})

		It("exits without stepping when the session is already disconnected", func() {
			sess = newFakeSession()
			sess.connected = func(int) bool { return false }
			reason, err := newLoop().Run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(reason).To(Equal(teleop.ExitDisconnected))
			Expect(sess.steps).To(BeZero())
			Expect(sess.calls).To(Equal([]string{"connected?", "disconnect"}))
		})

		It("exits when the session drops mid-run", func() {
			sess = newFakeSession()
			sess.connected = func(steps int) bool { return steps < 5 }
			reason, _ := newLoop().Run(context.Background())

			Expect(reason).To(Equal(teleop.ExitDisconnected))
			Expect(sess.steps).To(Equal(5))
			Expect(sess.disconnect).To(Equal(1))
		})

		It("exits on context cancellation", func() {
			sess = newFakeSession()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			reason, err := newLoop().Run(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(reason).To(Equal(teleop.ExitCanceled))
			Expect(sess.steps).To(BeZero())
			Expect(sess.disconnect).To(Equal(1))
		})

		It("treats a session lost inside a tick as a disconnect", func() {
			sess = newFakeSession()
			sess.stepErr = dynamo.ErrNotConnected
			reason, err := newLoop().Run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(reason).To(Equal(teleop.ExitDisconnected))
			Expect(sess.disconnect).To(Equal(1))
		})

		It("disconnects and returns the error when a tick fails", func() {
			sess = newFakeSession()
			sess.stepErr = errBoom
			reason, err := newLoop().Run(context.Background())

			Expect(reason).To(Equal(teleop.ExitError))
			Expect(err).To(MatchError(errBoom))
			Expect(sess.disconnect).To(Equal(1))
		})
	})

	Describe("pose reporting", func() {
		It("reports about once per interval of elapsed time", func() {
			var out bytes.Buffer
			sess = newFakeSession()
			sess.connected = func(steps int) bool { return steps < 350 }
			_, _ = newLoop(teleop.WithSink(teleop.NewConsole(&out))).Run(context.Background())

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[0]).To(Equal("Position: (0.000, 0.000, 1.000), Orientation: (0.000, 0.000, 0.000, 1.000)"))
		})

		It("hands every tick to observers", func() {
			obs := &recordingObserver{}
			sess = newFakeSession(pressed("i"))
			sess.connected = func(steps int) bool { return steps < 3 }
			_, _ = newLoop(teleop.WithObserver(obs)).Run(context.Background())

			Expect(obs.samples).To(HaveLen(3))
			Expect(obs.samples[0].Tick).To(Equal(1))
			Expect(obs.samples[0].Actions).To(Equal([]control.Action{control.Forward}))
			Expect(obs.samples[2].Elapsed).To(Equal(20 * time.Millisecond))
		})
	})
})

type recordingObserver struct {
	samples []teleop.Sample
}

func (r *recordingObserver) OnTick(s teleop.Sample) {
	r.samples = append(r.samples, s)
}

var _ = Describe("Setup", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	It("configures gravity, loads the plane then the robot at its start pose", func() {
		sess := newFakeSession()
		eng := &fakeEngine{sess: sess}

		l, err := teleop.Setup(context.Background(), eng, cfg, engine.Options{Mode: engine.ModeDirect})

		Expect(err).NotTo(HaveOccurred())
		Expect(l.Robot()).To(Equal(dynamo.BodyID(2)))
		Expect(sess.calls).To(Equal([]string{"gravity", "surface", "body"}))
		Expect(sess.gravity).To(Equal(dynamo.Vec3{Z: -10}))
		Expect(sess.loaded).To(Equal([]string{"plane.urdf", "r2d2.urdf"}))
		Expect(sess.pose.Position).To(Equal(dynamo.Vec3{Z: 1}))
		Expect(sess.pose.Orientation).To(Equal(dynamo.IdentityQuat))
		Expect(eng.opts.TimeStep).To(Equal(cfg.World.TimeStep))
		Expect(eng.opts.Integrator).To(Equal("euler"))
	})

	It("fails fatally when the engine cannot be reached", func() {
		eng := &fakeEngine{err: errBoom}
		_, err := teleop.Setup(context.Background(), eng, cfg, engine.Options{})

		Expect(err).To(MatchError(teleop.ErrConnect))
		Expect(err).To(MatchError(errBoom))
	})

	It("disconnects when an asset fails to load", func() {
		sess := newFakeSession()
		sess.loadErr = dynamo.ErrUnknownAsset
		_, err := teleop.Setup(context.Background(), &fakeEngine{sess: sess}, cfg, engine.Options{})

		Expect(err).To(MatchError(teleop.ErrSetup))
		Expect(err).To(MatchError(dynamo.ErrUnknownAsset))
		Expect(sess.disconnect).To(Equal(1))
	})

	It("rejects an invalid configuration before connecting", func() {
		cfg.Speeds.Linear = 0
		eng := &fakeEngine{sess: newFakeSession()}
		_, err := teleop.Setup(context.Background(), eng, cfg, engine.Options{})

		Expect(err).To(MatchError(teleop.ErrSetup))
		Expect(eng.sess.calls).To(BeEmpty())
	})

	It("refuses a keymap that leaves no way to quit", func() {
		cfg.Keymap = map[string]string{"q": "none"}
		eng := &fakeEngine{sess: newFakeSession()}
		_, err := teleop.Setup(context.Background(), eng, cfg, engine.Options{})

		Expect(err).To(MatchError(teleop.ErrSetup))
		Expect(eng.sess.calls).To(BeEmpty())
	})

	It("applies keymap overrides", func() {
		cfg.Keymap = map[string]string{"w": "forward"}
		sess := newFakeSession(pressed("w"))
		l, err := teleop.Setup(context.Background(), &fakeEngine{sess: sess}, cfg, engine.Options{}, teleop.WithClock(newFakeClock()))
		Expect(err).NotTo(HaveOccurred())

		_, _ = l.Tick()
		Expect(sess.velocities).To(ConsistOf(dynamo.Twist{Linear: dynamo.Vec3{X: cfg.Speeds.Linear}}))
	})

	It("drives the kinematic engine end to end", func() {
		script, err := input.ParseScript([]byte(`
steps:
  - {tick: 0, key: i}
  - {tick: 5, key: q}
`))
		Expect(err).NotTo(HaveOccurred())

		cfg.World.Gravity = 0
		cfg.World.TimeStep = 0.1
		cfg.Robot.StartPosition = [3]float64{0, 0, 0.5}
		obs := &recordingObserver{}
		l, err := teleop.Setup(context.Background(), engine.NewKinematic(nil), cfg,
			engine.Options{Mode: engine.ModeDirect, Keyboard: script},
			teleop.WithClock(newFakeClock()), teleop.WithObserver(obs))
		Expect(err).NotTo(HaveOccurred())

		reason, err := l.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(reason).To(Equal(teleop.ExitQuit))
		Expect(obs.samples).To(HaveLen(5))
		Expect(obs.samples[1].Pose.Position.X).To(BeNumerically("~", 0.2, 1e-9))
		Expect(obs.samples[4].Pose.Position.X).To(BeNumerically("~", 0.2, 1e-9))
	})
})

var _ = Describe("Reporter", func() {
	It("does not fire on the first call", func() {
		r := teleop.NewReporter(time.Second)
		Expect(r.Due(time.Unix(0, 0))).To(BeFalse())
	})

	It("fires once per accumulated interval", func() {
		r := teleop.NewReporter(time.Second)
		t0 := time.Unix(0, 0)
		r.Due(t0)

		fired := 0
		for i := 1; i <= 250; i++ {
			if r.Due(t0.Add(time.Duration(i) * 10 * time.Millisecond)) {
				fired++
			}
		}
		Expect(fired).To(Equal(2))
	})

	It("collapses a long stall into one report", func() {
		r := teleop.NewReporter(time.Second)
		t0 := time.Unix(0, 0)
		r.Due(t0)

		Expect(r.Due(t0.Add(5 * time.Second))).To(BeTrue())
		Expect(r.Due(t0.Add(5*time.Second + 10*time.Millisecond))).To(BeFalse())
	})

	It("ignores a clock that goes backwards", func() {
		r := teleop.NewReporter(time.Second)
		t0 := time.Unix(100, 0)
		r.Due(t0)

		Expect(r.Due(t0.Add(-time.Hour))).To(BeFalse())
		Expect(r.Due(t0.Add(-time.Hour + 999*time.Millisecond))).To(BeFalse())
		Expect(r.Due(t0.Add(-time.Hour + time.Second))).To(BeTrue())
	})

	It("exits cleanly when the window closes during a tick", func() {
		src := &closingSource{}
		cfg := config.DefaultConfig()
		l, err := teleop.Setup(context.Background(), engine.NewKinematic(nil), cfg,
			engine.Options{Mode: engine.ModeGUI, Keyboard: src},
			teleop.WithClock(newFakeClock()))
		Expect(err).NotTo(HaveOccurred())

		reason, err := l.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(reason).To(Equal(teleop.ExitDisconnected))
	})
})

// closingSource reports closed from its second Closed call on.
type closingSource struct {
	checks int
}

func (s *closingSource) Poll() []input.Event { return nil }

func (s *closingSource) Closed() bool {
	s.checks++
	return s.checks > 1
}
