// Package telemetry exposes a running teleop session over websocket.
//
// Clients receive a pose message on every report and may send drive
// commands. A command is turned into the key bound to the matching action
// and injected as a triggered press, so remote and local input share the
// same path through the loop.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/san-kum/teleop/internal/control"
	"github.com/san-kum/teleop/internal/input"
	"github.com/san-kum/teleop/internal/teleop"
)

const (
	sendBuffer   = 16
	writeTimeout = time.Second
)

var ErrUnknownCommand = errors.New("telemetry: unknown command")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Commands maps remote command names to teleop actions. Quit is local
// only.
var Commands = map[string]control.Action{
	"moveForward":   control.Forward,
	"moveBackward":  control.Backward,
	"turnLeft":      control.TurnLeft,
	"turnRight":     control.TurnRight,
	"emergencyStop": control.Stop,
	"resetPose":     control.Reset,
}

// Injector accepts synthetic key presses. *input.Keyboard implements it.
type Injector interface {
	Trigger(key input.Key)
}

type CommandMessage struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

type Reply struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
}

type PoseMessage struct {
	Type        string     `json:"type"`
	Tick        int        `json:"tick"`
	Time        float64    `json:"time"`
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
	Linear      float64    `json:"linear"`
	Angular     float64    `json:"angular"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type Server struct {
	keys   Injector
	keymap control.Keymap
	logger *zap.Logger

	mu      deadlock.RWMutex
	clients map[string]*client
}

func NewServer(keys Injector, keymap control.Keymap, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		keys:    keys,
		keymap:  keymap,
		logger:  logger,
		clients: make(map[string]*client),
	}
}

func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleWebSocket)
}

// ListenAndServe serves until ctx is done, then closes every client.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("telemetry listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Clients reports the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		c.conn.Close()
		delete(s.clients, id)
	}
}

// Report broadcasts the sample as a pose message. Slow clients miss
// messages rather than stall the loop.
func (s *Server) Report(sample teleop.Sample) {
	p, q := sample.Pose.Position, sample.Pose.Orientation
	data, err := json.Marshal(PoseMessage{
		Type:        "pose",
		Tick:        sample.Tick,
		Time:        sample.Elapsed.Seconds(),
		Position:    [3]float64{p.X, p.Y, p.Z},
		Orientation: [4]float64{q.X, q.Y, q.Z, q.W},
		Linear:      sample.Command.Linear.X,
		Angular:     sample.Command.Angular.Z,
	})
	if err != nil {
		s.logger.Warn("encode pose", zap.Error(err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Debug("dropped pose", zap.String("client", c.id))
		}
	}
}

// Dispatch injects the key bound to the named command.
func (s *Server) Dispatch(command string) error {
	action, ok := Commands[command]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	keys := s.keymap.Keys(action)
	if len(keys) == 0 {
		return fmt.Errorf("telemetry: no key bound to %s", action)
	}
	s.keys.Trigger(keys[0])
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("client connected", zap.String("client", c.id), zap.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go s.writePump(c, done)
	s.readPump(c)

	close(done)
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	conn.Close()
	s.logger.Info("client disconnected", zap.String("client", c.id))
}

func (s *Server) readPump(c *client) {
	for {
		var msg CommandMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.reply(c, Reply{Type: "error", Error: "malformed message"})
				continue
			}
			return
		}

		reply := Reply{Type: "ack", Command: msg.Command}
		if err := s.Dispatch(msg.Command); err != nil {
			reply = Reply{Type: "error", Command: msg.Command, Error: err.Error()}
		}
		s.reply(c, reply)
	}
}

func (s *Server) reply(c *client, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) writePump(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
