// Package web serves secdash view-models as JSON and a websocket snapshot
// stream.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/service"
	"github.com/user/secdash/internal/storage"
	"github.com/user/secdash/internal/util"
)

// SnapshotFeed provides the latest refresh snapshot and a stream of new
// ones.
type SnapshotFeed interface {
	Latest() *model.Snapshot
	Subscribe() (<-chan *model.Snapshot, func())
}

// Server is the web gateway.
type Server struct {
	svc     *service.Service
	feed    SnapshotFeed
	history *storage.SnapshotStorage
	config  *util.Config
	port    int
	hub     *Hub
	srv     *http.Server
}

// NewServer creates a new gateway. history may be nil.
func NewServer(svc *service.Service, feed SnapshotFeed, history *storage.SnapshotStorage, cfg *util.Config, port int) *Server {
	return &Server{
		svc:     svc,
		feed:    feed,
		history: history,
		config:  cfg,
		port:    port,
	}
}

// Handler builds the routed, CORS-wrapped handler. The websocket hub
// lives until ctx is done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	s.hub = NewHub(ctx, s.feed)
	go s.hub.Run()

	h := NewHandlers(s.svc, s.feed)
	a := NewAnalyticsHandlers(s.feed, s.history)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", h.Snapshot).Methods(http.MethodGet)
	api.HandleFunc("/hosts", h.Hosts).Methods(http.MethodGet)
	api.HandleFunc("/hosts/{ip}", h.HostDetail).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.Alerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/count", h.AlertCount).Methods(http.MethodGet)
	api.HandleFunc("/analysis", h.Analysis).Methods(http.MethodGet)
	api.HandleFunc("/reports", h.Reports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}/download", h.DownloadReport).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.UpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings/reset", h.ResetSettings).Methods(http.MethodPost)

	api.HandleFunc("/analytics/history", a.History).Methods(http.MethodGet)
	api.HandleFunc("/analytics/top", a.Top).Methods(http.MethodGet)
	api.HandleFunc("/analytics/mermaid", a.MermaidDiagram).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.hub.ServeWS)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(router)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(ctx),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	util.Info("Web gateway starting on port %d", s.port)

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
