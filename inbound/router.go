package inbound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-ado-alerts/command"
	"github.com/goliatone/go-ado-alerts/core"
	"github.com/goliatone/go-ado-alerts/query"
	"github.com/goliatone/go-ado-alerts/webhooks"
	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	HealthPath  = "/healthz"
	MetricsPath = "/debug/vars"

	MessageFetchFailed     = "Failed to fetch alerts."
	MessageInternal        = "Internal server error."
	MessagePayloadTooLarge = "Payload too large."
)

// HealthCheck reports whether the backing database is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Path           string
	Ingest         gocmd.Commander[command.IngestWebhookMessage]
	Recent         gocmd.Querier[query.ListRecentAlertsMessage, []core.AlertRecord]
	Health         HealthCheck
	MetricsHandler http.Handler
	MaxBodyBytes   int64
	Logger         core.Logger
}

type Router struct {
	path         string
	ingest       gocmd.Commander[command.IngestWebhookMessage]
	recent       gocmd.Querier[query.ListRecentAlertsMessage, []core.AlertRecord]
	health       HealthCheck
	metrics      http.Handler
	maxBodyBytes int64
	logger       core.Logger
}

func NewRouter(cfg Config) (*Router, error) {
	if cfg.Ingest == nil {
		return nil, core.ConfigurationError("inbound: ingest command is required", nil)
	}
	if cfg.Recent == nil {
		return nil, core.ConfigurationError("inbound: recent alerts query is required", nil)
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = core.DefaultWebhookPath
	}
	if !strings.HasPrefix(path, "/") {
		return nil, core.ConfigurationError(
			fmt.Sprintf("inbound: webhook path must start with /, got %q", path),
			map[string]any{"path": path},
		)
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = core.DefaultMaxBodyBytes
	}
	return &Router{
		path:         path,
		ingest:       cfg.Ingest,
		recent:       cfg.Recent,
		health:       cfg.Health,
		metrics:      cfg.MetricsHandler,
		maxBodyBytes: maxBody,
		logger:       glog.Ensure(cfg.Logger),
	}, nil
}

func (r *Router) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Register mounts the webhook, health and metrics routes.
func (r *Router) Register(routes gin.IRoutes) {
	routes.POST(r.path, r.handleIngest)
	routes.GET(r.path, r.handleListRecent)
	routes.GET(HealthPath, r.handleHealth)
	if r.metrics != nil {
		routes.GET(MetricsPath, gin.WrapH(r.metrics))
	}
}

// NewEngine returns a gin engine with recovery, request logging and the
// routes mounted.
func NewEngine(cfg Config) (*gin.Engine, error) {
	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(router.logger))
	router.Register(engine)
	return engine, nil
}

func (r *Router) handleIngest(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, r.maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		r.logger.Warn("webhook body over limit", "limit_bytes", tooLarge.Limit)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": MessagePayloadTooLarge, "error": err.Error()})
		return
	}
	if err != nil {
		r.logger.Warn("failed to read webhook body", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"message": webhooks.MessageInvalidPayload, "error": err.Error()})
		return
	}

	msg := command.IngestWebhookMessage{Request: core.InboundRequest{
		ProviderID: core.ProviderAzureDevOps,
		Surface:    core.SurfaceWebhook,
		Headers:    RequestHeaders(c.Request.Header),
		Body:       body,
		Metadata: map[string]any{
			"remote_addr": c.ClientIP(),
			"path":        c.FullPath(),
		},
	}}
	collector := gocmd.NewResult[core.InboundResult]()
	execErr := r.ingest.Execute(gocmd.ContextWithResult(ctx, collector), msg)
	result, stored := collector.Load()
	if !stored {
		r.logger.Error("webhook ingest failed", "error", errorText(execErr))
		c.JSON(http.StatusInternalServerError, gin.H{"message": MessageInternal, "error": errorText(execErr)})
		return
	}

	switch {
	case result.StatusCode == http.StatusBadRequest:
		c.JSON(result.StatusCode, gin.H{"message": result.Message, "error": errorText(execErr)})
	case result.StatusCode >= http.StatusBadRequest:
		c.JSON(result.StatusCode, gin.H{"message": result.Message})
	default:
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
	}
}

func (r *Router) handleListRecent(c *gin.Context) {
	records, err := r.recent.Query(c.Request.Context(), query.ListRecentAlertsMessage{})
	if err != nil {
		r.logger.Error("error fetching alerts", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": MessageFetchFailed, "error": errorText(err)})
		return
	}
	if records == nil {
		records = []core.AlertRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (r *Router) handleHealth(c *gin.Context) {
	if r.health != nil {
		if err := r.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// RequestHeaders flattens request headers to lower-case keys holding the first
// value.
func RequestHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(key)] = values[0]
	}
	return out
}

// RequestLogger logs one debug line per request.
func RequestLogger(logger core.Logger) gin.HandlerFunc {
	logger = glog.Ensure(logger)
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	}
}
