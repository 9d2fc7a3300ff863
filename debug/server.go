package debug

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/insts"
)

// sendQueue is the number of events buffered per client. Events for a
// client whose queue is full are dropped.
const sendQueue = 64

// Event is the JSON message streamed to clients.
type Event struct {
	Count uint64            `json:"count"`
	CS    uint16            `json:"cs"`
	IP    uint16            `json:"ip"`
	Inst  string            `json:"inst,omitempty"`
	Regs  map[string]uint16 `json:"regs"`
	Flags uint16            `json:"flags"`
	Fault string            `json:"fault,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server streams machine state to websocket clients. It is an
// emu.Observer and an http.Handler.
type Server struct {
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
	every    uint64

	mu      sync.Mutex
	clients map[*client]struct{}
	count   uint64
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithEvery sends one event per n instructions.
func WithEvery(n uint64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.every = n
		}
	}
}

// WithServerLogger sets the logger for connection events.
func WithServerLogger(l logrus.FieldLogger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a state streaming server.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		logger:  logrus.StandardLogger(),
		every:   1,
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithField("err", err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	log := s.logger.WithField("remote", conn.RemoteAddr().String())
	log.Info("debug client connected")

	go s.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.remove(c)
	log.Info("debug client disconnected")
}

func (s *Server) writeLoop(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.remove(c)
			return
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects all clients.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.remove(c)
	}
}

// BeforeStep implements emu.Observer.
func (s *Server) BeforeStep(*insts.Instruction, emu.RegFile) {}

// AfterStep broadcasts the state after every configured number of
// instructions.
func (s *Server) AfterStep(inst *insts.Instruction, regs emu.RegFile) {
	s.mu.Lock()
	s.count++
	count := s.count
	idle := len(s.clients) == 0
	s.mu.Unlock()

	if idle || count%s.every != 0 {
		return
	}

	s.broadcast(newEvent(count, inst, regs))
}

// Fault implements emu.Observer. Faults are always sent.
func (s *Server) Fault(f *emu.Fault) {
	s.mu.Lock()
	count := s.count
	s.mu.Unlock()

	ev := newEvent(count, f.Inst, f.Regs)
	ev.CS, ev.IP = f.CS, f.IP
	ev.Fault = f.Err.Error()
	s.broadcast(ev)
}

func newEvent(count uint64, inst *insts.Instruction, regs emu.RegFile) Event {
	ev := Event{
		Count: count,
		CS:    regs.CS,
		IP:    regs.IP,
		Flags: regs.Flags,
		Regs:  make(map[string]uint16, 12),
	}
	if inst != nil {
		ev.Inst = inst.String()
	}
	for r := emu.AX; r <= emu.DI; r++ {
		ev.Regs[r.String()] = regs.GP[r]
	}
	for _, r := range []emu.Reg{emu.ES, emu.CS, emu.SS, emu.DS} {
		ev.Regs[r.String()] = regs.Word(r)
	}
	return ev
}

func (s *Server) broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithField("err", err).Error("failed to encode debug event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}
