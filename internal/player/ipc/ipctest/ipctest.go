// Package ipctest provides a scripted in-process player socket for
// exercising IPC consumers without a real player binary.
package ipctest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
)

// Server speaks just enough of the JSON-line protocol to exercise a
// client: property reads, property writes, observers, and quit.
type Server struct {
	ln   net.Listener
	path string

	mu          sync.Mutex
	props       map[string]any
	unavail     map[string]bool
	commands    [][]any
	conns       []net.Conn
	swallow     int
	disconnects int

	injectEvent   bool
	injectGarbage bool
}

// NewServer starts a fake player on a fresh unix socket. The server is
// shut down via t.Cleanup.
func NewServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{
		ln:      ln,
		path:    path,
		props:   map[string]any{},
		unavail: map[string]bool{},
	}
	t.Cleanup(s.Stop)
	go s.accept()
	return s
}

// Path returns the socket path clients should dial.
func (s *Server) Path() string {
	return s.path
}

// Stop closes the listener and every live connection. Safe to call
// repeatedly.
func (s *Server) Stop() {
	_ = s.ln.Close()
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// SetProp sets a property value served to get_property requests.
func (s *Server) SetProp(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[name] = value
}

// SetUnavailable makes a property answer with "property unavailable".
func (s *Server) SetUnavailable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavail[name] = true
}

// SwallowReplies makes the server read and record the next n requests
// without answering them, simulating a stalled player.
func (s *Server) SwallowReplies(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swallow += n
}

// Disconnects reports how many client connections have gone away.
func (s *Server) Disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

// InjectEventLines makes the server emit an unsolicited event line
// before every reply.
func (s *Server) InjectEventLines() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injectEvent = true
}

// InjectGarbageLines makes the server emit a non-JSON line before every
// reply.
func (s *Server) InjectGarbageLines() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injectGarbage = true
}

// CommandNames returns the first element of every command received so
// far, in order.
func (s *Server) CommandNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.commands))
	for _, cmd := range s.commands {
		if name, ok := cmd[0].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// CountCommand returns how many received commands have the given name.
func (s *Server) CountCommand(name string) int {
	count := 0
	for _, got := range s.CommandNames() {
		if got == name {
			count++
		}
	}
	return count
}

func (s *Server) accept() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		s.disconnects++
		s.mu.Unlock()
	}()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req struct {
			Command   []any  `json:"command"`
			RequestID uint64 `json:"request_id"`
		}
		if err := json.Unmarshal(line, &req); err != nil || len(req.Command) == 0 {
			continue
		}

		s.mu.Lock()
		s.commands = append(s.commands, req.Command)
		injectEvent, injectGarbage := s.injectEvent, s.injectGarbage
		swallowed := false
		if s.swallow > 0 {
			s.swallow--
			swallowed = true
		}
		s.mu.Unlock()

		if swallowed {
			continue
		}

		if injectGarbage {
			fmt.Fprintf(conn, "not json\n")
		}
		if injectEvent {
			fmt.Fprintf(conn, `{"event":"property-change","id":1}`+"\n")
		}

		name, _ := req.Command[0].(string)
		switch name {
		case "quit":
			return
		case "get_property":
			prop, _ := req.Command[1].(string)
			s.mu.Lock()
			unavail := s.unavail[prop]
			value, ok := s.props[prop]
			s.mu.Unlock()
			if unavail || !ok {
				writeReply(conn, req.RequestID, "property unavailable", nil)
				continue
			}
			writeReply(conn, req.RequestID, "success", value)
		case "set_property":
			prop, _ := req.Command[1].(string)
			s.mu.Lock()
			s.props[prop] = req.Command[2]
			s.mu.Unlock()
			writeReply(conn, req.RequestID, "success", nil)
		default:
			writeReply(conn, req.RequestID, "success", nil)
		}
	}
}

func writeReply(conn net.Conn, id uint64, status string, data any) {
	payload, _ := json.Marshal(map[string]any{
		"error":      status,
		"data":       data,
		"request_id": id,
	})
	payload = append(payload, '\n')
	_, _ = conn.Write(payload)
}
