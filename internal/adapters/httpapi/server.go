package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/razor389/prop-simulator/internal/adapters/tradelog"
	"github.com/razor389/prop-simulator/internal/application/stats"
	"github.com/razor389/prop-simulator/internal/domain"
	"github.com/razor389/prop-simulator/internal/ports"
)

// Simulator es lo que el server necesita del engine.
type Simulator interface {
	Run(ctx context.Context, cfg domain.SimulationConfig) (*domain.RunResult, error)
}

// Config contiene la configuración del server HTTP.
type Config struct {
	Addr           string
	RatePerSec     float64 // 0 = sin límite
	Burst          int
	MaxUploadBytes int64
	MaxIterations  int // 0 = sin tope
}

// Server expone el simulador por HTTP.
type Server struct {
	cfg      Config
	sim      Simulator
	registry ports.AccountRegistry
	storage  ports.Storage // puede ser nil
	metrics  http.Handler  // puede ser nil
	limiter  *rate.Limiter
}

// New crea el server. storage y metricsHandler son opcionales.
func New(cfg Config, sim Simulator, registry ports.AccountRegistry, storage ports.Storage, metricsHandler http.Handler) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	s := &Server{
		cfg:      cfg,
		sim:      sim,
		registry: registry,
		storage:  storage,
		metrics:  metricsHandler,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return s
}

// Handler construye el router gin.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.GET("/accounts", s.handleAccounts)
	r.POST("/simulate", s.rateLimit(), s.handleSimulate)

	runs := r.Group("/runs")
	runs.GET("", s.handleListRuns)
	runs.GET("/:id", s.handleGetRun)
	runs.GET("/:id/trials", s.handleGetTrials)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

// Run sirve hasta que ctx se cancele y luego hace shutdown ordenado.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi.Run: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi.Run: shutdown: %w", err)
	}
	return nil
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}

func (s *Server) handleAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": s.registry.Keys()})
}

func (s *Server) handleSimulate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	req, log, err := s.decodeSimulate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.cfg.MaxIterations > 0 && req.Iterations > s.cfg.MaxIterations {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("iterations %d exceeds the server limit of %d", req.Iterations, s.cfg.MaxIterations),
		})
		return
	}

	res, err := s.sim.Run(c.Request.Context(), req.toConfig(log, stats.DefaultBins))
	if err != nil && !errors.Is(err, domain.ErrEmptyResult) {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRunDTO(res, req.IncludeBalances))
}

// decodeSimulate acepta JSON o multipart ("config" + "csv_file").
func (s *Server) decodeSimulate(c *gin.Context) (SimulateRequest, *domain.TradeLog, error) {
	var req SimulateRequest

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		raw := c.PostForm("config")
		if raw == "" {
			return req, nil, errors.New("multipart request needs a \"config\" field")
		}
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return req, nil, fmt.Errorf("invalid config: %w", err)
		}
		fh, err := c.FormFile("csv_file")
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		if err != nil {
			return req, nil, fmt.Errorf("csv_file: %w", err)
		}
		f, err := fh.Open()
		if err != nil {
			return req, nil, fmt.Errorf("csv_file: %w", err)
		}
		defer f.Close()
		log, err := tradelog.Parse(f)
		if err != nil {
			return req, nil, err
		}
		return req, log, nil
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		return req, nil, fmt.Errorf("invalid body: %w", err)
	}
	if req.CSVData == "" {
		return req, nil, nil
	}
	log, err := tradelog.Parse(strings.NewReader(req.CSVData))
	if err != nil {
		return req, nil, err
	}
	return req, log, nil
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage disabled"})
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := s.storage.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	out := make([]RunDTO, 0, len(runs))
	for i := range runs {
		out = append(out, toRunDTO(&runs[i], false))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage disabled"})
		return
	}
	run, err := s.storage.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRunDTO(run, false))
}

func (s *Server) handleGetTrials(c *gin.Context) {
	if s.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage disabled"})
		return
	}
	id := c.Param("id")
	if _, err := s.storage.GetRun(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	outcomes, err := s.storage.GetTrialOutcomes(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "trials": toTrialDTOs(outcomes)})
}

// statusFor traduce los errores de dominio a códigos HTTP.
func statusFor(err error) int {
	switch {
	case domain.IsFatal(err), errors.Is(err, domain.ErrData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
