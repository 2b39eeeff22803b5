package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"reunite.city/matcher/internal/db"
	"reunite.city/matcher/internal/match"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// Engine is the slice of the matching engine the API consumes; handler tests
// substitute fakes.
type Engine interface {
	GenerateForReport(ctx context.Context, reportUUID string) ([]*db.Match, error)
	SyncReport(ctx context.Context, upsert db.ReportUpsert) (*db.Report, []*db.Match, error)
	Transition(ctx context.Context, matchUUID string, action match.Action, actorID, reason string) (*db.Match, error)
	ApplyBulk(ctx context.Context, actorID string, matchUUIDs []string, action match.Action, reason string) (*match.BulkResult, error)
	MarkViewed(ctx context.Context, matchUUID string) (*db.Match, error)
	Accept(ctx context.Context, matchUUID, actorID string) (*db.Match, error)
	Reject(ctx context.Context, matchUUID, actorID string) (*db.Match, error)
}

// MatchReader is the read-only query surface behind the list/get endpoints.
type MatchReader interface {
	GetMatchByUUID(ctx context.Context, matchUUID string) (*db.Match, error)
	ListMatches(ctx context.Context, filter db.MatchListFilter) (int64, []*db.Match, error)
	ListMatchesForReport(ctx context.Context, reportUUID string) ([]*db.Match, error)
	QueryMatchStats(ctx context.Context) (*db.MatchStats, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	engine Engine
	reader MatchReader
	logger zerolog.Logger
	opts   Options
}

func NewServer(engine Engine, reader MatchReader, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8091
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		engine: engine,
		reader: reader,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.engine == nil || s.reader == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	s.registerRoutes(e)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("matcher api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("matcher api server stopped")
	return nil
}

func (s *Server) registerRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)

	// Moderator surface.
	api.GET("/matches", s.handleListMatches)
	api.GET("/matches/:match_uuid", s.handleGetMatch)
	api.POST("/matches/:match_uuid/transition", s.handleTransition)
	api.POST("/matches/bulk", s.handleBulk)
	api.POST("/reports/:report_uuid/rematch", s.handleRematch)

	// Reports collaborator surface.
	api.POST("/reports/ingest", s.handleIngestReport)

	// End-user surface.
	api.GET("/reports/:report_uuid/matches", s.handleMatchesForReport)
	api.POST("/matches/:match_uuid/viewed", s.handleMarkViewed)
	api.POST("/matches/:match_uuid/accept", s.handleAccept)
	api.POST("/matches/:match_uuid/reject", s.handleReject)
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "matcher",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.reader.QueryMatchStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

// validUUID screens ids before they reach a ::uuid cast in storage, so a
// malformed id is a validation failure rather than a query error.
func validUUID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}

// uuidParam returns the named path parameter when it is a well-formed UUID.
func uuidParam(c echo.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" || !validUUID(value) {
		return "", false
	}
	return value, true
}

func parseViewedFilter(raw string) (*bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, fmt.Errorf("must be true or false")
	}
	return &value, nil
}

func parseScoreFilter(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a number")
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("must be between 0 and 1")
	}
	return value, nil
}
