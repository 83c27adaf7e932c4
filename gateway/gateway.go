package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/scottjudy/deepcell-label/errors"
	"github.com/scottjudy/deepcell-label/metric"
	"github.com/scottjudy/deepcell-label/project"
)

// Config sizes the gateway
type Config struct {
	// Addr is the listen address
	Addr string
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
	// DefaultBucket is used for uploads that name no bucket
	DefaultBucket string
}

// Server bridges one project to websocket clients: outbound, every bus
// event as a JSON envelope; inbound, client commands dispatched into the
// actor loop. It also serves health and Prometheus scrape endpoints.
type Server struct {
	cfg           Config
	logger        *slog.Logger
	project       *project.Project
	metrics       *metric.Registry
	hub           *hub
	defaultBucket string

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New wires a gateway to a project. Relay actors are spawned onto every
// project bus, so broadcasts start flowing as soon as clients connect.
func New(cfg Config, p *project.Project, metrics *metric.Registry, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	var coreMetrics *metric.Metrics
	if metrics != nil {
		coreMetrics = metrics.CoreMetrics()
	}
	s := &Server{
		cfg:           cfg,
		logger:        logger.With("component", "Gateway"),
		project:       p,
		metrics:       metrics,
		hub:           newHub(p.ID(), coreMetrics, logger),
		defaultBucket: cfg.DefaultBucket,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The UI is served from anywhere during development; access
			// control happens upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, bus := range []string{"canvas", "image", "select", "cells", "divisions", "raw", "labeled", "spots"} {
		b := p.Bus(bus)
		if b == nil {
			continue
		}
		r := &relay{id: p.ID() + ".relay." + bus, bus: bus, hub: s.hub}
		if err := p.Registry().Spawn(p.ID(), r); err != nil {
			return nil, errors.WrapFatal(err, "Gateway", "New", "relay spawn")
		}
		b.Subscribe(r.ID())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("gateway listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.WrapFatal(err, "Gateway", "Run", "http serve")
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.WrapTransient(err, "Gateway", "Run", "http shutdown")
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"project": s.project.ID(),
		"edit":    s.project.Undo.EditIndex(),
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(conn)
	s.hub.add(c)
	s.logger.Info("client connected", "remote", conn.RemoteAddr())

	go c.writePump()
	go s.readPump(c)
}

// readPump decodes client commands and dispatches them into the project.
// A malformed frame gets an error envelope back; a broken connection ends
// the session.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		s.logger.Info("client disconnected", "remote", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("client read failed", "remote", c.conn.RemoteAddr(), "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(frame, &cmd); err != nil {
			s.reply(c, "ERROR", map[string]string{"message": "malformed command frame"})
			continue
		}
		if err := s.dispatch(cmd); err != nil {
			s.reply(c, "ERROR", map[string]string{"message": err.Error()})
		}
	}
}

// reply queues one direct frame for a single client
func (s *Server) reply(c *client, eventType string, payload any) {
	frame, err := json.Marshal(Envelope{
		Bus:       "gateway",
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}
