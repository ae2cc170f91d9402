package server

import (
	"context"
	"sort"
	"sync"

	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/voice"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// ServerContext holds the shared dependencies of the HTTP API and the MCP
// tools.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	service     *inbox.Service
	transcriber voice.Transcriber
	checks      map[string]CheckFunc
	readOnly    bool
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a server context. transcriber may be nil, in
// which case voice transcription reports itself as not configured.
func NewServerContext(ctx context.Context, service *inbox.Service, transcriber voice.Transcriber) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if transcriber == nil {
		transcriber = voice.NewClient(voice.Config{})
	}
	return &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		service:     service,
		transcriber: transcriber,
		checks:      make(map[string]CheckFunc),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Service returns the inbox service.
func (sc *ServerContext) Service() *inbox.Service {
	return sc.service
}

// Transcriber returns the speech-to-text backend.
func (sc *ServerContext) Transcriber() voice.Transcriber {
	return sc.transcriber
}

// SetInstrumentation attaches metrics and the audit logger used by the MCP
// tools. Either may be nil.
func (sc *ServerContext) SetInstrumentation(m *instrumentation.Metrics, audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
	sc.auditLogger = audit
}

// Metrics returns the metrics recorder, or nil if instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil if not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetReadOnly disables write tools.
func (sc *ServerContext) SetReadOnly(readOnly bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.readOnly = readOnly
}

// ReadOnly reports whether write tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.readOnly
}

// AddCheck registers a readiness check under name.
func (sc *ServerContext) AddCheck(name string, fn CheckFunc) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.checks[name] = fn
}

// checkNames returns the registered check names in order.
func (sc *ServerContext) checkNames() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	names := make([]string, 0, len(sc.checks))
	for name := range sc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sc *ServerContext) check(name string) CheckFunc {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.checks[name]
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
