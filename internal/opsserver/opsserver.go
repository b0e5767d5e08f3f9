// Package opsserver exposes the operational HTTP surface: a liveness probe,
// a readiness probe that touches the database, Prometheus metrics, and a
// small status document. It is meant for localhost or an internal network,
// not for end users.
package opsserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"daddygpt/internal/store"
)

// Status is the live bot state reported by /status.
type Status struct {
	BotUsername string    `json:"bot_username"`
	Model       string    `json:"model"`
	StartedAt   time.Time `json:"started_at"`
}

// Server wraps a Gin engine with the ops routes mounted.
type Server struct {
	addr   string
	engine *gin.Engine
	http   *http.Server
}

// New builds the ops server. status is read per request, so fields filled
// in after construction (like the bot username) show up without a restart.
func New(addr string, st *store.Store, status *Status) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLog(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if _, err := st.AdminCount(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		counts, err := st.CountAll()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"bot_username": status.BotUsername,
			"model":        status.Model,
			"started_at":   status.StartedAt,
			"uptime":       time.Since(status.StartedAt).Round(time.Second).String(),
			"counts":       counts,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		addr:   addr,
		engine: r,
		http:   &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Handler returns the underlying engine, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until ctx is done, then drains with a short grace period.
func (s *Server) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", s.addr).Msg("ops server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("ops server failed")
	}
}
