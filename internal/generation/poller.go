package generation

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"epistola/internal/assemble"
	"epistola/internal/contentstore"
	"epistola/internal/render"
	"epistola/internal/store"
	"epistola/internal/template"
)

// PollerConfig holds configuration for the worker poller.
type PollerConfig struct {
	InstanceID   string
	Concurrency  int
	PollInterval time.Duration
	MaxBackoff   time.Duration // Maximum backoff when queue is empty (default: 30s)
}

// Poller is the worker-side pull-loop. It claims PENDING requests in
// batches, renders each one concurrently and writes back the terminal
// status. Claiming is a single conditional update in the store, so two
// pollers can never process the same request.
type Poller struct {
	store    Store
	content  contentstore.Store
	renderer *render.Renderer
	config   PollerConfig
	logger   *slog.Logger
	done     chan struct{}

	claimed   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
}

// NewPoller creates a worker poller.
func NewPoller(s Store, content contentstore.Store, renderer *render.Renderer, config PollerConfig, logger *slog.Logger) *Poller {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}

	meter := otel.Meter("epistola-worker")
	claimed, _ := meter.Int64Counter("epistola.requests.claimed")
	completed, _ := meter.Int64Counter("epistola.requests.completed")
	failed, _ := meter.Int64Counter("epistola.requests.failed")

	return &Poller{
		store:     s,
		content:   content,
		renderer:  renderer,
		config:    config,
		logger:    logger,
		done:      make(chan struct{}),
		claimed:   claimed,
		completed: completed,
		failed:    failed,
	}
}

// Run starts the main pull-loop. It blocks until the context is cancelled.
// On shutdown it stops claiming new work and lets in-flight renders finish.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller starting",
		"instance_id", p.config.InstanceID,
		"concurrency", p.config.Concurrency,
	)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Current backoff duration (increases on empty queue, resets on work found)
	currentBackoff := p.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	// Initial poll
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("context cancelled, waiting for in-flight renders to finish")
			wg.Wait()
			close(p.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			availableSlots := p.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			reqs, err := p.store.ClaimBatch(ctx, p.config.InstanceID, availableSlots)
			if err != nil {
				p.logger.Error("claim batch failed", "error", err)
				continue
			}

			if len(reqs) == 0 {
				// Empty queue - increase backoff (exponential, capped at MaxBackoff)
				currentBackoff = currentBackoff * 2
				if currentBackoff > p.config.MaxBackoff {
					currentBackoff = p.config.MaxBackoff
				}
				continue
			}

			// Found work - reset backoff to minimum
			currentBackoff = p.config.PollInterval
			p.claimed.Add(ctx, int64(len(reqs)))
			p.logger.Info("claimed requests", "count", len(reqs))

			for i := range reqs {
				sem <- struct{}{}

				wg.Add(1)
				go func(req store.GenerationRequest) {
					defer wg.Done()
					defer func() {
						<-sem
						triggerPoll()
					}()
					p.process(ctx, &req)
				}(reqs[i])
			}

			// If there are still free slots, poll again immediately
			if len(reqs) < availableSlots {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the poller has fully stopped.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// process renders one claimed request end to end. Terminal status writes
// run against context.Background so a SIGTERM mid-render still records the
// outcome (graceful drain).
func (p *Poller) process(ctx context.Context, req *store.GenerationRequest) {
	tracer := otel.Tracer("epistola-worker")
	spanCtx, span := tracer.Start(ctx, "process_request",
		trace.WithAttributes(
			attribute.String("request.id", req.ID.String()),
			attribute.String("tenant.id", req.TenantID.String()),
			attribute.String("template.id", req.TemplateID.String()),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	p.logger.Info("processing request", "request_id", req.ID)

	doc, err := p.render(spanCtx, req)
	if err != nil {
		span.RecordError(err)
		p.failed.Add(ctx, 1)
		p.logger.Warn("request failed", "request_id", req.ID, "error", err)
		if ferr := p.store.FailRequest(context.Background(), req.ID, err.Error()); ferr != nil {
			p.logger.Error("failed to record failure", "request_id", req.ID, "error", ferr)
		}
		return
	}

	if err := p.store.CompleteRequest(context.Background(), req.ID, doc.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a cancel. The request is already
			// terminal, so drop the orphaned output.
			p.logger.Info("request cancelled during render, discarding output", "request_id", req.ID)
			if _, derr := p.store.DeleteDocument(context.Background(), req.TenantID, doc.ID); derr != nil {
				p.logger.Warn("failed to discard cancelled document", "request_id", req.ID, "error", derr)
			}
			if _, derr := p.content.Delete(context.Background(), doc.StorageKey); derr != nil {
				p.logger.Warn("failed to discard cancelled output", "request_id", req.ID, "error", derr)
			}
			return
		}
		p.logger.Error("failed to complete request", "request_id", req.ID, "error", err)
		return
	}

	p.completed.Add(ctx, 1)
	p.logger.Info("request completed", "request_id", req.ID, "document_id", doc.ID)
}

// render resolves the version and theme, runs the renderer and assembler
// and persists the resulting document. The version behind an environment
// reference is resolved now, at claim time, not at submission.
func (p *Poller) render(ctx context.Context, req *store.GenerationRequest) (*store.Document, error) {
	version, err := p.resolveVersion(ctx, req)
	if err != nil {
		return nil, err
	}

	graph, err := template.ParseGraph(version.Graph)
	if err != nil {
		return nil, fmt.Errorf("invalid template graph: %w", err)
	}

	theme, err := p.resolveTheme(ctx, req, version)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return nil, fmt.Errorf("invalid request data: %w", err)
	}

	blocks, err := p.renderer.Render(ctx, graph, theme, data)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	var buf bytes.Buffer
	if err := assemble.Assemble(&buf, blocks, theme.PageSettings); err != nil {
		return nil, fmt.Errorf("assembly failed: %w", err)
	}

	docID := uuid.New()
	key := contentstore.DocumentKey(req.TenantID, docID)
	if err := p.content.Put(ctx, key, buf.Bytes(), "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store document content: %w", err)
	}

	filename := req.ID.String() + ".pdf"
	if req.Filename != nil {
		filename = *req.Filename
	}

	doc := &store.Document{
		ID:            docID,
		TenantID:      req.TenantID,
		TemplateID:    req.TemplateID,
		RequestID:     req.ID,
		Filename:      filename,
		CorrelationID: req.CorrelationID,
		ContentType:   "application/pdf",
		Size:          int64(buf.Len()),
		StorageKey:    key,
		CreatedAt:     time.Now().UTC(),
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		if _, derr := p.content.Delete(context.Background(), key); derr != nil {
			p.logger.Warn("failed to discard orphaned output", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}
	return doc, nil
}

func (p *Poller) resolveVersion(ctx context.Context, req *store.GenerationRequest) (*store.Version, error) {
	if req.VersionID != nil {
		version, err := p.store.GetVersion(ctx, *req.VersionID)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", *req.VersionID, err)
		}
		return version, nil
	}
	if req.Environment == nil {
		return nil, errors.New("request carries neither version nor environment")
	}
	version, err := p.store.GetActiveVersion(ctx, req.VariantID, *req.Environment)
	if err != nil {
		return nil, fmt.Errorf("no active version for environment %q: %w", *req.Environment, err)
	}
	return version, nil
}

// resolveTheme picks the theme a version renders with: an explicit theme
// id on the version wins, "inherit" (or empty) falls back to the
// template's theme, and no theme at all means bare defaults.
func (p *Poller) resolveTheme(ctx context.Context, req *store.GenerationRequest, version *store.Version) (*template.Theme, error) {
	var themeID *uuid.UUID

	switch version.ThemeRef {
	case "", store.ThemeRefInherit:
		tpl, err := p.store.GetTemplate(ctx, req.TenantID, req.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", req.TemplateID, err)
		}
		themeID = tpl.ThemeID
	default:
		id, err := uuid.Parse(version.ThemeRef)
		if err != nil {
			return nil, fmt.Errorf("invalid theme reference %q: %w", version.ThemeRef, err)
		}
		themeID = &id
	}

	if themeID == nil {
		return &template.Theme{}, nil
	}

	row, err := p.store.GetTheme(ctx, *themeID)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", *themeID, err)
	}
	return template.DecodeTheme(row)
}
