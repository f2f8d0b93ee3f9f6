//go:build windows

package ipc

import (
	"net"
	"os"
	"time"
)

// dial opens the player's named pipe. Named pipes accept the same
// byte-stream framing as unix sockets, so the rest of the client is
// platform independent.
func dial(path string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err == nil {
			return &pipeConn{f: f}, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func socketExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// pipeConn adapts an opened pipe handle to net.Conn. Deadlines are not
// supported by the underlying handle; reads rely on the player closing
// the pipe on exit.
type pipeConn struct {
	f *os.File
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *pipeConn) Close() error                { return p.f.Close() }

func (p *pipeConn) LocalAddr() net.Addr                { return pipeAddr(p.f.Name()) }
func (p *pipeConn) RemoteAddr() net.Addr               { return pipeAddr(p.f.Name()) }
func (p *pipeConn) SetDeadline(t time.Time) error      { return nil }
func (p *pipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (p *pipeConn) SetWriteDeadline(t time.Time) error { return nil }

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }
