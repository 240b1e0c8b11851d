// Package tui is the terminal front end of a teleop session. It turns
// terminal key presses into keyboard events and draws the robot's latest
// pose and a top-down trail. The loop itself runs elsewhere and feeds the
// model through a Bridge.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/input"
	"github.com/san-kum/teleop/internal/teleop"
)

const (
	mapWidth    = 40
	mapHeight   = 12
	trailLimit  = 2000
	minRadius   = 3.0
	headingDots = 6
)

// SampleMsg carries a tick from the loop into the model.
type SampleMsg teleop.Sample

// DoneMsg tells the model that the loop has stopped.
type DoneMsg struct {
	Reason teleop.ExitReason
	Err    error
}

type Model struct {
	keys   *input.Keyboard
	keymap control.Keymap
	title  string

	sample teleop.Sample
	seen   bool
	origin dynamo.Vec3
	trail  []dynamo.Vec3
	canvas *Canvas
	done   *DoneMsg
}

func New(keys *input.Keyboard, keymap control.Keymap, title string) Model {
	return Model{
		keys:   keys,
		keymap: keymap,
		title:  title,
		trail:  make([]dynamo.Vec3, 0, 256),
		canvas: NewCanvas(mapWidth, mapHeight),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.keys.Close()
			return m, tea.Quit
		}
		m.keys.Press(input.KeyFromString(msg.String()))
	case SampleMsg:
		m.observe(teleop.Sample(msg))
	case DoneMsg:
		m.done = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) observe(s teleop.Sample) {
	p := s.Pose.Position
	if !m.seen {
		m.origin = dynamo.Vec3{X: p.X, Y: p.Y}
		m.seen = true
	}
	m.sample = s
	if n := len(m.trail); n == 0 || m.trail[n-1].Sub(p).Norm() > 1e-3 {
		m.trail = append(m.trail, p)
	}
	if len(m.trail) > trailLimit {
		m.trail = m.trail[len(m.trail)-trailLimit:]
	}
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(m.title)) + "\n")

	if m.seen {
		p, q := m.sample.Pose.Position, m.sample.Pose.Orientation
		s.WriteString(labelStyle.Render("Tick") + valueStyle.Render(fmt.Sprintf("%d", m.sample.Tick)) + "\n")
		s.WriteString(labelStyle.Render("Time") + valueStyle.Render(m.sample.Elapsed.Round(10*time.Millisecond).String()) + "\n")
		s.WriteString(labelStyle.Render("Position") + valueStyle.Render(p.String()) + "\n")
		s.WriteString(labelStyle.Render("Heading") + valueStyle.Render(fmt.Sprintf("%.1f°", q.Yaw()*180/math.Pi)) + "\n")
		s.WriteString(labelStyle.Render("Command") + commandView(m.sample) + "\n")
	} else {
		s.WriteString(labelStyle.Render("Status") + valueStyle.Render("waiting for first tick") + "\n")
	}
	if m.done != nil {
		s.WriteString(labelStyle.Render("Exit") + stopStyle.Render(m.done.Reason.String()) + "\n")
	}
	s.WriteString(helpStyle.Render(strings.TrimSpace(m.keymap.Instructions()) + "\nCtrl+C - Close window"))

	return lipgloss.JoinHorizontal(lipgloss.Top, mapStyle.Render(m.drawMap()), panelStyle.Render(s.String()))
}

func commandView(s teleop.Sample) string {
	for _, a := range s.Actions {
		if a == control.Stop {
			return stopStyle.Render("STOP")
		}
	}
	cmd := s.Command
	if cmd.IsZero() {
		return valueStyle.Render("idle")
	}
	return activeStyle.Render(fmt.Sprintf("v=%.2f ω=%.2f", cmd.Linear.X, cmd.Angular.Z))
}

// drawMap projects the trail onto the canvas, centred on the start
// position, with the view radius grown to keep the whole trail visible.
func (m *Model) drawMap() string {
	c := m.canvas
	c.Clear()
	if !m.seen {
		return c.String()
	}

	radius := minRadius
	for _, p := range m.trail {
		d := dynamo.Vec3{X: p.X - m.origin.X, Y: p.Y - m.origin.Y}
		radius = math.Max(radius, math.Max(math.Abs(d.X), math.Abs(d.Y))*1.1)
	}

	w, h := c.Width*2, c.Height*4
	project := func(p dynamo.Vec3) (int, int) {
		x := (p.X-m.origin.X)/radius*float64(w/2) + float64(w/2)
		y := float64(h/2) - (p.Y-m.origin.Y)/radius*float64(h/2)
		return int(math.Round(x)), int(math.Round(y))
	}

	for i := 1; i < len(m.trail); i++ {
		x0, y0 := project(m.trail[i-1])
		x1, y1 := project(m.trail[i])
		c.DrawLine(x0, y0, x1, y1)
	}

	x, y := project(m.sample.Pose.Position)
	yaw := m.sample.Pose.Orientation.Yaw()
	hx := x + int(math.Round(math.Cos(yaw)*headingDots))
	hy := y - int(math.Round(math.Sin(yaw)*headingDots))
	c.DrawLine(x, y, hx, hy)
	return c.String()
}
