package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/tone"
	"github.com/teemow/mailchat/internal/voice"
)

// Default API server settings.
const (
	DefaultAPIAddr   = ":8080"
	DefaultRateLimit = 10
	DefaultRateBurst = 20
	maxAudioBytes    = 25 << 20
)

const voiceFallbackMessage = "No Whisperit credentials found. Falling back to browser speech recognition."

// RouterConfig configures NewRouter.
type RouterConfig struct {
	RateLimit float64
	RateBurst int
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

type sendRequest struct {
	ThreadID     string `json:"threadId" binding:"required"`
	Body         string `json:"body" binding:"required,min=1,max=10000"`
	OptimizeTone string `json:"optimizeTone" binding:"omitempty,oneof=neutral friendly direct executive"`
}

type ingestRequest struct {
	ThreadID    string   `json:"threadId" binding:"required"`
	FromAddress string   `json:"fromAddress" binding:"required,email"`
	ToAddresses []string `json:"toAddresses" binding:"required,min=1,dive,email"`
	Subject     string   `json:"subject" binding:"required,min=1"`
	BodyText    string   `json:"bodyText" binding:"required,min=1"`
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors name fields as they appear in
// the request body.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

type api struct {
	sc     *ServerContext
	logger *slog.Logger
}

// NewRouter builds the HTTP API: the /api routes behind the per-IP rate
// limiter plus the health endpoints.
func NewRouter(sc *ServerContext, health *HealthChecker, cfg RouterConfig) *gin.Engine {
	useJSONFieldNames()

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics(cfg.Metrics), requestLogger(cfg.Logger))

	if health != nil {
		health.Register(r)
	}

	a := &api{sc: sc, logger: cfg.Logger}
	g := r.Group("/api", NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware())
	{
		g.GET("/threads", a.listThreads)
		g.GET("/threads/:threadId/messages", a.listMessages)
		g.POST("/messages/send", a.sendMessage)
		g.POST("/ingest", a.ingest)
		g.POST("/voice/transcribe", a.transcribe)
	}
	return r
}

func (a *api) service() *inbox.Service { return a.sc.Service() }

func (a *api) listThreads(c *gin.Context) {
	threads, err := a.service().ListThreads(c.Request.Context())
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (a *api) listMessages(c *gin.Context) {
	messages, err := a.service().ListThreadMessages(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (a *api) sendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, bindingDetails(err))
		return
	}

	res, err := a.service().SendThreadMessage(c.Request.Context(), req.ThreadID, req.Body, tone.ParseTone(req.OptimizeTone))
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}

	body := gin.H{"message": res.Message}
	if res.DeliveryError != "" {
		body["deliveryError"] = res.DeliveryError
	}
	c.JSON(http.StatusOK, body)
}

func (a *api) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, bindingDetails(err))
		return
	}

	msg, err := a.service().IngestInboundMessage(c.Request.Context(), inbox.IngestRequest{
		ThreadID:    req.ThreadID,
		FromAddress: req.FromAddress,
		ToAddresses: req.ToAddresses,
		Subject:     req.Subject,
		BodyText:    req.BodyText,
	})
	if err != nil {
		abortWithError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (a *api) transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Audio file is required."})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Audio file is required."})
		return
	}
	defer f.Close()

	transcript, err := a.sc.Transcriber().Transcribe(c.Request.Context(), f, fh.Filename)
	switch {
	case errors.Is(err, voice.ErrDisabled), err == nil && transcript == "":
		c.JSON(http.StatusOK, gin.H{"transcript": "", "message": voiceFallbackMessage})
	case err != nil:
		a.logger.Warn("transcription failed", slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: "Transcription failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"transcript": transcript})
	}
}

// APIServer runs the gin router on an http.Server.
type APIServer struct {
	httpServer *http.Server
}

// NewAPIServer wraps handler in an http.Server bound to addr.
func NewAPIServer(addr string, handler http.Handler) *APIServer {
	if addr == "" {
		addr = DefaultAPIAddr
	}
	return &APIServer{httpServer: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}}
}

// Start serves until Shutdown is called.
func (s *APIServer) Start() error {
	slog.Info("starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
