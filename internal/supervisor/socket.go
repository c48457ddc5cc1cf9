package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Methods understood by a supervisor bridge on the socket transport.
const (
	MethodList    = "list"
	MethodRestart = "restart"

	CodeNotFound = "not_found"
)

// Request is one newline-delimited JSON request on the socket transport.
type Request struct {
	Method string `json:"method"`
	Name   string `json:"name,omitempty"`
}

// Response is the bridge's reply to a Request.
type Response struct {
	OK        bool     `json:"ok"`
	Code      string   `json:"code,omitempty"`
	Error     string   `json:"error,omitempty"`
	Processes []Record `json:"processes,omitempty"`
}

// SocketDialer connects to a supervisor bridge listening on a unix socket.
type SocketDialer struct {
	Path string
}

func (d *SocketDialer) Dial(ctx context.Context) (Session, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", d.Path)
	if err != nil {
		// ctx may be the Manager's dial timeout; the Manager decides whether
		// the caller canceled.
		return nil, opError("dial", d.Path, ErrConnection, err)
	}

	return &socketSession{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(bufio.NewReader(conn)),
	}, nil
}

type socketSession struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func (s *socketSession) call(ctx context.Context, req Request) (Response, error) {
	var resp Response

	// Unblock pending I/O once the caller's context is done. This also covers
	// deadlines, and ctx.Err is already set by the time I/O fails.
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := s.enc.Encode(req); err != nil {
		return resp, err
	}
	if err := s.dec.Decode(&resp); err != nil {
		return resp, err
	}

	return resp, nil
}

func (s *socketSession) List(ctx context.Context) ([]Record, error) {
	resp, err := s.call(ctx, Request{Method: MethodList})
	if err != nil {
		return nil, opError("list", "", ErrQuery, err)
	}
	if !resp.OK {
		return nil, opError("list", "", ErrQuery, errors.New(resp.Error))
	}

	return resp.Processes, nil
}

func (s *socketSession) Restart(ctx context.Context, name string) ([]Record, error) {
	resp, err := s.call(ctx, Request{Method: MethodRestart, Name: name})
	if err != nil {
		return nil, opError("restart", name, ErrRestart, err)
	}
	if !resp.OK {
		if resp.Code == CodeNotFound {
			return nil, opError("restart", name, ErrNotFound, errors.New(resp.Error))
		}
		return nil, opError("restart", name, ErrRestart, errors.New(resp.Error))
	}

	return resp.Processes, nil
}

func (s *socketSession) Close() error {
	return s.conn.Close()
}
