package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"firestige.xyz/pktgraph/internal/log"
)

const jsonrpcVersion = "2.0"

// Accept failures back off from minAcceptDelay up to maxAcceptDelay.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      any        `json:"id"`
	Result  any        `json:"result,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// Server serves line-delimited JSON-RPC over a Unix domain socket.
type Server struct {
	socketPath string
	handler    *Handler
	listener   net.Listener
	logger     log.Logger

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopped bool
	quit    chan struct{}
}

func NewServer(socketPath string, handler *Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     log.GetLogger().WithField("socket", socketPath),
		conns:      make(map[net.Conn]struct{}),
		quit:       make(chan struct{}),
	}
}

// Listen creates the socket. Serve must be called afterwards.
func (s *Server) Listen() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	s.listener = listener
	s.logger.Info("control server started")
	return nil
}

// Serve accepts connections until ctx is cancelled, then stops the server.
func (s *Server) Serve(ctx context.Context) error {
	go s.acceptLoop()
	<-ctx.Done()
	s.logger.WithField("reason", ctx.Err()).Info("control server stopping")
	return s.Stop()
}

// Start listens and serves. It blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) acceptLoop() {
	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.logger.WithError(err).WithField("retry_in", delay).Error("failed to accept connection")
			select {
			case <-s.quit:
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req JSONRPCRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.logger.WithError(err).Warn("failed to parse request")
			encoder.Encode(JSONRPCResponse{
				JSONRPC: jsonrpcVersion,
				Error:   &ErrorInfo{Code: ErrCodeParseError, Message: fmt.Sprintf("parse error: %v", err)},
			})
			continue
		}
		if req.JSONRPC != jsonrpcVersion || req.Method == "" {
			encoder.Encode(JSONRPCResponse{
				JSONRPC: jsonrpcVersion,
				ID:      req.ID,
				Error:   &ErrorInfo{Code: ErrCodeInvalidRequest, Message: "invalid request"},
			})
			continue
		}

		resp := s.handler.Handle(Request{Method: req.Method, Params: req.Params, ID: req.ID})
		if err := encoder.Encode(JSONRPCResponse{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Result:  resp.Result,
			Error:   resp.Error,
		}); err != nil {
			s.logger.WithError(err).Warn("failed to send response")
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.WithError(err).Debug("connection error")
	}
}

// Stop closes the listener and every open connection, then removes the socket.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	os.RemoveAll(s.socketPath)
	s.logger.Info("control server stopped")
	return nil
}
