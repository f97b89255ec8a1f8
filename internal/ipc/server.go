package ipc

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"anydrag/internal/drag"
)

// Engine is the drag engine surface the IPC server drives.
type Engine interface {
	StartMonitoring() error
	StopMonitoring()
	Status() drag.Status
	Dragging() bool
	CheckPermission() bool
}

// WindowCounter reports how many windows the last inventory snapshot held.
type WindowCounter interface {
	Size() int
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	engine       Engine
	windows      WindowCounter
	log          zerolog.Logger
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server listening on socketPath.
func NewServer(socketPath string, engine Engine, windows WindowCounter, reloadChan chan struct{}, log zerolog.Logger) *Server {
	// Remove stale socket from a previous run
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		engine:     engine,
		windows:    windows,
		log:        log,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info().Str("socket", s.socketPath).Msg("IPC server listening")

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.log.Warn().Err(err).Msg("IPC accept error")
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Warn().Err(err).Msg("IPC read error")
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal IPC response")
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Warn().Err(err).Msg("failed to send IPC response")
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandEnable:
		return s.handleEnable()
	case CommandDisable:
		return s.handleDisable()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandCheckPermission:
		return s.handleCheckPermission()
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleEnable() *Response {
	if err := s.engine.StartMonitoring(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to enable monitoring: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleDisable() *Response {
	s.engine.StopMonitoring()

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	st := s.engine.Status()

	status := StatusData{
		MonitoringEnabled:    st.MonitoringEnabled,
		AccessibilityGranted: st.AccessibilityGranted,
		Dragging:             s.engine.Dragging(),
		WindowCount:          s.windows.Size(),
		UptimeSeconds:        int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:        true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleCheckPermission() *Response {
	granted := s.engine.CheckPermission()

	resp, _ := NewOKResponse(PermissionData{Granted: granted})
	return resp
}

func (s *Server) handleReload() *Response {
	s.log.Info().Msg("IPC: received RELOAD command")

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
