// Package server answers dashboard queries over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opscart/cnc-uptime-analyzer/pkg/analyzer"
	"github.com/opscart/cnc-uptime-analyzer/pkg/datasource"
	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/opscart/cnc-uptime-analyzer/pkg/query"
	"github.com/opscart/cnc-uptime-analyzer/pkg/reporter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Config wires the server's collaborators
type Config struct {
	Stream   datasource.SampleStream
	Analysis analyzer.Options
	Location *time.Location

	// Observer receives every analysis, typically a metrics.Recorder
	Observer analyzer.Observer

	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer

	// RateLimiter guards the query endpoints when set
	RateLimiter gin.HandlerFunc

	// TrustedProxies lists the IPs or CIDRs whose forwarding headers are
	// believed when resolving the client IP; empty trusts none
	TrustedProxies []string

	Logger logrus.FieldLogger
}

// Server serves analyses computed fresh for every request
type Server struct {
	stream   datasource.SampleStream
	loc      *time.Location
	observer analyzer.Observer
	log      logrus.FieldLogger

	mu   sync.RWMutex
	opts analyzer.Options

	engine *gin.Engine
}

// New builds the server and its routes
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	s := &Server{
		stream:   cfg.Stream,
		loc:      cfg.Location,
		observer: cfg.Observer,
		log:      cfg.Logger,
		opts:     cfg.Analysis,
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		s.log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	queries := r.Group("/")
	if cfg.RateLimiter != nil {
		queries.Use(cfg.RateLimiter)
	}
	queries.GET("/api/v1/analysis", s.analysis)
	queries.GET("/report", s.report)

	s.engine = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// UpdateOptions swaps the analysis options for subsequent requests
func (s *Server) UpdateOptions(opts analyzer.Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{
		"missing_program": opts.Aggregate.Missing,
		"ordering":        opts.Ordering,
	}).Info("analysis options updated")
}

func (s *Server) options() analyzer.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type analysisResponse struct {
	Title string `json:"title"`
	*models.Analysis
}

func (s *Server) analysis(c *gin.Context) {
	result, ok := s.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analysisResponse{Title: result.Window.Title(), Analysis: result})
}

func (s *Server) report(c *gin.Context) {
	format, err := reporter.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, ok := s.run(c)
	if !ok {
		return
	}

	rep := reporter.New(format)
	report, err := rep.Generate(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := rep.Write(report, &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := datasource.Ping(ctx, s.stream); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"source": datasource.NameOf(s.stream),
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "source": datasource.NameOf(s.stream)})
}

// run parses the window, analyzes it and writes the error response on failure
func (s *Server) run(c *gin.Context) (*models.Analysis, bool) {
	window, err := query.BuildWindow(
		c.Query("start_date"),
		c.Query("end_date"),
		c.Query("start_time"),
		c.Query("end_time"),
		s.loc,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	a := analyzer.New(s.stream, s.options(), s.log)
	if s.observer != nil {
		a.WithObserver(s.observer)
	}

	result, err := a.Analyze(c.Request.Context(), window)
	if err != nil {
		status := statusFor(err)
		s.log.WithError(err).WithField("status", status).Warn("analysis failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return result, true
}

func statusFor(err error) int {
	var orderErr *analyzer.DataOrderingError
	switch {
	case errors.Is(err, query.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.As(err, &orderErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		}).Debug("request")
	}
}
