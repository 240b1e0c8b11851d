package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/teleop/internal/teleop"
)

// Program is the part of *tea.Program the bridge uses.
type Program interface {
	Send(msg tea.Msg)
	Println(args ...interface{})
}

// Bridge forwards loop output to a running program. As an observer it
// sends at most one sample per frame; as a sink it prints pose lines above
// the view.
type Bridge struct {
	p     Program
	frame time.Duration
	last  time.Duration
	sent  bool
}

const DefaultFrame = time.Second / 30

func NewBridge(p Program, frame time.Duration) *Bridge {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &Bridge{p: p, frame: frame}
}

func (b *Bridge) OnTick(s teleop.Sample) {
	if b.sent && s.Elapsed-b.last < b.frame {
		return
	}
	b.sent = true
	b.last = s.Elapsed
	b.p.Send(SampleMsg(s))
}

func (b *Bridge) Report(s teleop.Sample) {
	b.p.Println(teleop.FormatPose(s))
}

// Done passes the loop outcome to the program, which then exits.
func (b *Bridge) Done(reason teleop.ExitReason, err error) {
	b.p.Send(DoneMsg{Reason: reason, Err: err})
}
