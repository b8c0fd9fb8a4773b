package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

// Server is the client-facing WebSocket listener. Game semantics live in
// the Service; this layer only upgrades connections and tracks their
// lifecycle.
type Server struct {
	svc      *Service
	logger   *log.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New creates a server listening on addr.
func New(addr string, svc *Service, logger *log.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are native apps, not browsers; no origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.httpSrv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := NewConnection(ws, s.svc, s.logger)
	s.svc.metrics.ConnectionsActive.Inc()
	s.logger.Debug("client connected", "remote", r.RemoteAddr)

	conn.Start()
	go func() {
		<-conn.Done()
		s.svc.metrics.ConnectionsActive.Dec()
		if userID := conn.UserID(); userID != 0 {
			s.svc.DropSession(userID, conn)
		}
		s.logger.Debug("client disconnected", "remote", r.RemoteAddr, "user", conn.UserID())
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
