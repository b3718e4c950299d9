package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"
	"bounty-webhooks/internal/domain/subscribers"
	"bounty-webhooks/internal/platform/httpclient"
	"bounty-webhooks/internal/platform/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
)

// Appender es lo único que el motor necesita del log de entregas.
type Appender interface {
	Append(e deliveries.Entry)
}

type Options struct {
	Client *httpclient.Client
	Signer *Signer
	Log    Appender
	Logger logger.Logger

	MaxAttempts int           // default 3
	BaseBackoff time.Duration // default 1s; espera = base * 2^(intento-1)
}

// Engine envía un evento firmado a un suscriptor con reintentos acotados.
// No guarda estado entre llamadas: cada Deliver tiene su propio contador y backoff.
type Engine struct {
	client      *httpclient.Client
	signer      *Signer
	log         Appender
	logger      logger.Logger
	maxAttempts int
	baseBackoff time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(opts Options) *Engine {
	if opts.Client == nil {
		opts.Client = httpclient.New(httpclient.DefaultTimeout)
	}
	if opts.Signer == nil {
		opts.Signer = NewSigner("")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultBaseBackoff
	}
	return &Engine{
		client:      opts.Client,
		signer:      opts.Signer,
		log:         opts.Log,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

// Deliver hace hasta maxAttempts intentos y agrega exactamente una entrada al log.
// Nunca devuelve error: el resultado queda en la entrada.
func (e *Engine) Deliver(ctx context.Context, sub subscribers.Subscriber, ev events.Event) deliveries.Entry {
	return e.deliver(ctx, sub, ev, e.maxAttempts)
}

// SendTest envía un evento webhook.test con un único intento.
func (e *Engine) SendTest(ctx context.Context, sub subscribers.Subscriber) deliveries.Entry {
	at := e.now().UTC().Truncate(time.Millisecond)
	data, _ := json.Marshal(map[string]any{
		"webhookId": sub.ID,
		"message":   "test delivery",
	})
	ev := events.Event{
		ID:        events.EventID(0, events.EventTypeTest, at),
		Type:      events.EventTypeTest,
		Data:      data,
		Timestamp: at,
	}
	return e.deliver(ctx, sub, ev, 1)
}

func (e *Engine) deliver(ctx context.Context, sub subscribers.Subscriber, ev events.Event, maxAttempts int) deliveries.Entry {
	log := e.logger.With(map[string]any{
		"event_id":   ev.ID,
		"event_type": string(ev.Type),
		"webhook_id": sub.ID,
	})

	entry := deliveries.Entry{
		EventID:      ev.ID,
		EventType:    ev.Type,
		SubscriberID: sub.ID,
		URL:          sub.URL,
	}

	// se serializa una sola vez: lo firmado es exactamente lo enviado
	body, err := ev.Payload()
	if err != nil {
		log.Error("webhook payload encode failed", map[string]any{"error": err})
		entry.Status = deliveries.StatusFailed
		entry.Error = err.Error()
		return e.record(entry)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		HeaderSignature: SignatureHeader(e.signer.Sign(sub, body)),
		HeaderEventType: string(ev.Type),
		HeaderEventID:   ev.ID,
		HeaderWebhookID: sub.ID,
	}

	var (
		status  int
		lastErr error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		entry.Attempts = attempt

		status, lastErr = e.client.Post(ctx, sub.URL, headers, body)
		if lastErr == nil {
			entry.Status = deliveries.StatusSuccess
			entry.StatusCode = intPtr(status)
			log.Info("webhook delivered", map[string]any{
				"attempt": attempt,
				"status":  status,
			})
			return e.record(entry)
		}

		log.Warn("webhook attempt failed", map[string]any{
			"attempt": attempt,
			"status":  status,
			"error":   lastErr,
		})

		if attempt == maxAttempts {
			break
		}

		backoff := e.baseBackoff * time.Duration(1<<(attempt-1))
		if err := e.sleep(ctx, backoff); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	entry.Status = deliveries.StatusFailed
	if status > 0 {
		entry.StatusCode = intPtr(status)
	}
	if lastErr != nil {
		entry.Error = lastErr.Error()
	}
	log.Error("webhook delivery failed", map[string]any{
		"attempts": entry.Attempts,
		"error":    lastErr,
	})
	return e.record(entry)
}

func (e *Engine) record(entry deliveries.Entry) deliveries.Entry {
	entry.Timestamp = e.now().UTC()
	if e.log != nil {
		e.log.Append(entry)
	}
	return entry
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func intPtr(v int) *int { return &v }
