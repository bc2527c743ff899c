// Package api serves TlvInfo EEPROM editing over HTTP.
//
// Every route under /api/v1 requires the X-API-Key header. Edits are made
// to the in-memory image of a device and reach storage only through the
// write endpoint, which also refreshes the checksum.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
)

// NewRouter builds the HTTP routes for server.
func NewRouter(server *Server) http.Handler {
	metrics := server.metrics
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(server.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))
		r.Get("/codes", metrics.InstrumentHandler("GET", "/api/v1/codes", server.handleCodes))
		r.Get("/board", metrics.InstrumentHandler("GET", "/api/v1/board", server.handleBoard))
		r.Get("/devices", metrics.InstrumentHandler("GET", "/api/v1/devices", server.handleDevices))

		r.Route("/devices/{dev}", func(r chi.Router) {
			r.Get("/", metrics.InstrumentHandler("GET", "/api/v1/devices/{dev}", server.handleShow))
			r.Get("/dump", metrics.InstrumentHandler("GET", "/api/v1/devices/{dev}/dump", server.handleDump))
			r.Post("/read", metrics.InstrumentHandler("POST", "/api/v1/devices/{dev}/read", server.handleRead))
			r.Post("/write", metrics.InstrumentHandler("POST", "/api/v1/devices/{dev}/write", server.handleWrite))
			r.Post("/erase", metrics.InstrumentHandler("POST", "/api/v1/devices/{dev}/erase", server.handleErase))
			r.Put("/tlv/{code}", metrics.InstrumentHandler("PUT", "/api/v1/devices/{dev}/tlv/{code}", server.handleSet))
			r.Delete("/tlv/{code}", metrics.InstrumentHandler("DELETE", "/api/v1/devices/{dev}/tlv/{code}", server.handleUnset))
			r.Get("/snapshots", metrics.InstrumentHandler("GET", "/api/v1/devices/{dev}/snapshots", server.handleSnapshots))
			r.Post("/snapshots/{id}/restore",
				metrics.InstrumentHandler("POST", "/api/v1/devices/{dev}/snapshots/{id}/restore", server.handleRestore))
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting tlvinfo REST API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
