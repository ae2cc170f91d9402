package connector

import (
	"context"
	"strings"
	"time"

	"github.com/teemow/mailchat/internal/instrumentation"
)

// Instrumented decorates a Connector with provider spans and metrics.
type Instrumented struct {
	Connector
	metrics *instrumentation.Metrics
}

// Instrument wraps c. A nil metrics still records spans.
func Instrument(c Connector, metrics *instrumentation.Metrics) *Instrumented {
	return &Instrumented{Connector: c, metrics: metrics}
}

func (i *Instrumented) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	name := strings.ToLower(string(i.Provider()))
	ctx, span := instrumentation.StartProviderSpan(ctx, name, op)

	start := time.Now()
	err := fn(ctx)
	instrumentation.EndSpan(span, err)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	i.metrics.RecordProviderOperation(ctx, name, op, status, time.Since(start))
	return err
}

// Connect implements Connector.
func (i *Instrumented) Connect(ctx context.Context) error {
	return i.observe(ctx, instrumentation.OperationConnect, i.Connector.Connect)
}

// Sync implements Connector.
func (i *Instrumented) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	var res *SyncResult
	err := i.observe(ctx, instrumentation.OperationSync, func(ctx context.Context) error {
		var err error
		res, err = i.Connector.Sync(ctx, opts)
		return err
	})
	return res, err
}

// Send implements Connector.
func (i *Instrumented) Send(ctx context.Context, payload SendPayload) (*SendResult, error) {
	var res *SendResult
	err := i.observe(ctx, instrumentation.OperationSend, func(ctx context.Context) error {
		var err error
		res, err = i.Connector.Send(ctx, payload)
		return err
	})
	return res, err
}

// Disconnect implements Connector.
func (i *Instrumented) Disconnect(ctx context.Context) error {
	return i.observe(ctx, instrumentation.OperationDisconnect, i.Connector.Disconnect)
}
