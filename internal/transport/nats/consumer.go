// Package nats consumes index and delete events published by owning modules.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/transport/wire"
)

// Indexer indexes and deletes tenant content.
type Indexer interface {
	IndexEntities(ctx context.Context, entities []entity.Entity) batch.Report
	DeleteByID(ctx context.Context, k kind.Kind, tenantID string, keys ...string) error
	DeleteByFilter(ctx context.Context, k kind.Kind, tenantID string, expr filter.Expression) error
}

// Config holds the subject layout.
type Config struct {
	SubjectPrefix string
	// Queue groups consumers so each message is handled by one replica.
	Queue   string
	Timeout time.Duration
}

// Consumer handles {prefix}.index and {prefix}.delete messages.
type Consumer struct {
	nc      *nats.Conn
	indexer Indexer
	cfg     Config
	logger  *zap.Logger
	subs    []*nats.Subscription
}

// NewConsumer creates a consumer. Call Start to subscribe.
func NewConsumer(nc *nats.Conn, indexer Indexer, cfg Config, logger *zap.Logger) *Consumer {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "semsearch"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Consumer{nc: nc, indexer: indexer, cfg: cfg, logger: logger}
}

// IndexSubject returns the subject carrying index events.
func (c *Consumer) IndexSubject() string { return c.cfg.SubjectPrefix + ".index" }

// DeleteSubject returns the subject carrying delete events.
func (c *Consumer) DeleteSubject() string { return c.cfg.SubjectPrefix + ".delete" }

// Start subscribes to both subjects.
func (c *Consumer) Start() error {
	handlers := map[string]func(context.Context, *nats.Msg) any{
		c.IndexSubject():  c.handleIndex,
		c.DeleteSubject(): c.handleDelete,
	}
	for subject, h := range handlers {
		sub, err := c.nc.QueueSubscribe(subject, c.cfg.Queue, c.wrap(subject, h))
		if err != nil {
			_ = c.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}
	c.logger.Info("NATS consumer started",
		zap.String("index_subject", c.IndexSubject()),
		zap.String("delete_subject", c.DeleteSubject()),
		zap.String("queue", c.cfg.Queue),
	)
	return nil
}

// Stop drains every subscription so in-flight messages finish.
func (c *Consumer) Stop() error {
	var errs []error
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	c.subs = nil
	return errors.Join(errs...)
}

// wrap extracts the trace context, runs h and replies with its result when the message asks for one.
func (c *Consumer) wrap(subject string, h func(context.Context, *nats.Msg) any) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		msgLogger := c.logger.With(zap.String("subject", subject))
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			msgLogger = msgLogger.With(zap.String("trace_id", sc.TraceID().String()))
		}
		ctx = logpkg.ContextWithLogger(ctx, msgLogger)

		reply := h(ctx, msg)
		if msg.Reply == "" {
			return
		}
		data, err := json.Marshal(reply)
		if err != nil {
			c.logger.Error("Failed to encode NATS reply", zap.String("subject", subject), zap.Error(err))
			return
		}
		if err := msg.Respond(data); err != nil {
			c.logger.Warn("Failed to send NATS reply", zap.String("subject", subject), zap.Error(err))
		}
	}
}

func (c *Consumer) handleIndex(ctx context.Context, msg *nats.Msg) any {
	var req wire.IndexRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return c.reject(msg.Subject, fmt.Errorf("%w: malformed message: %w", domain.ErrValidation, err))
	}
	if req.TenantID == "" {
		return c.reject(msg.Subject, domain.ErrTenantRequired)
	}

	entities, rejected := wire.Entities(req.Entities, req.TenantID)
	report := batch.NewReport(rejected)
	if len(entities) > 0 {
		report.Merge(c.indexer.IndexEntities(ctx, entities))
	}

	status := "ok"
	if report.Failed > 0 {
		status = "partial"
	}
	metrics.NATSMessagesTotal.WithLabelValues(msg.Subject, status).Inc()
	logpkg.FromContext(ctx, c.logger).Debug("Indexed entities from NATS",
		zap.String("tenant_id", req.TenantID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return wire.FromReport(report)
}

func (c *Consumer) handleDelete(ctx context.Context, msg *nats.Msg) any {
	var req wire.DeleteRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return c.rejectDelete(msg.Subject, fmt.Errorf("%w: malformed message: %w", domain.ErrValidation, err))
	}
	k, err := kind.Parse(req.Kind)
	if err != nil {
		return c.rejectDelete(msg.Subject, err)
	}

	switch {
	case len(req.Keys) > 0:
		err = c.indexer.DeleteByID(ctx, k, req.TenantID, req.Keys...)
	case req.Filter != nil:
		var expr filter.Expression
		if expr, err = req.Filter.ToExpression(); err == nil {
			err = c.indexer.DeleteByFilter(ctx, k, req.TenantID, expr)
		}
	default:
		err = fmt.Errorf("%w: keys or filter is required", domain.ErrValidation)
	}
	if err != nil {
		logpkg.FromContext(ctx, c.logger).Warn("NATS delete failed", zap.String("tenant_id", req.TenantID), zap.Error(err))
		return c.rejectDelete(msg.Subject, err)
	}

	metrics.NATSMessagesTotal.WithLabelValues(msg.Subject, "ok").Inc()
	return wire.DeleteResponse{Deleted: true}
}

func (c *Consumer) reject(subject string, err error) wire.ErrorReply {
	metrics.NATSMessagesTotal.WithLabelValues(subject, "rejected").Inc()
	c.logger.Warn("Rejected NATS message", zap.String("subject", subject), zap.Error(err))
	return wire.ErrorReply{Error: err.Error()}
}

func (c *Consumer) rejectDelete(subject string, err error) wire.DeleteResponse {
	metrics.NATSMessagesTotal.WithLabelValues(subject, "rejected").Inc()
	return wire.DeleteResponse{Error: err.Error()}
}
