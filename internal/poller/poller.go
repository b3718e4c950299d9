package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"
	"bounty-webhooks/internal/domain/state"
	"bounty-webhooks/internal/domain/subscribers"
	"bounty-webhooks/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

var ErrCycleRunning = errors.New("poll cycle already running")

const (
	DefaultInterval = 60 * time.Second
	saveTimeout     = 30 * time.Second
)

type Feed interface {
	Fetch(ctx context.Context) ([]bounties.Record, error)
}

// SubscriberSource se lee una sola vez por ciclo.
type SubscriberSource interface {
	ListActive(ctx context.Context) ([]subscribers.Subscriber, error)
}

// Deliverer envía un evento a un suscriptor y registra el resultado en el log.
type Deliverer interface {
	Deliver(ctx context.Context, sub subscribers.Subscriber, ev events.Event) deliveries.Entry
}

type Options struct {
	Feed        Feed
	Snapshots   *bounties.Store
	Log         *deliveries.Log
	Subscribers SubscriberSource
	Deliverer   Deliverer
	State       state.Store // opcional: sin store no se persiste
	Events      *events.Factory
	Logger      logger.Logger

	// Concurrency es el máximo de entregas en paralelo para un mismo evento.
	// <= 1 => secuencial.
	Concurrency int
}

// Stats son contadores acumulados desde el arranque.
type Stats struct {
	Cycles           int64      `json:"cycles"`
	FailedCycles     int64      `json:"failedCycles"`
	EventsEmitted    int64      `json:"eventsEmitted"`
	DeliveriesOK     int64      `json:"deliveriesOk"`
	DeliveriesFailed int64      `json:"deliveriesFailed"`
	LastPollAt       *time.Time `json:"lastPollAt,omitempty"`
	LastError        string     `json:"lastError,omitempty"`
	Running          bool       `json:"running"`
}

// Poller ejecuta ciclos fetch -> detect -> dispatch -> persist. Nunca corre
// dos ciclos a la vez.
type Poller struct {
	feed        Feed
	snapshots   *bounties.Store
	log         *deliveries.Log
	subscribers SubscriberSource
	deliverer   Deliverer
	state       state.Store
	events      *events.Factory
	logger      logger.Logger
	concurrency int

	cycle   sync.Mutex
	trigger chan struct{}
	now     func() time.Time

	running atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

func New(opts Options) *Poller {
	if opts.Snapshots == nil {
		opts.Snapshots = bounties.NewStore()
	}
	if opts.Log == nil {
		opts.Log = deliveries.NewLog(deliveries.MaxEntries)
	}
	if opts.Events == nil {
		opts.Events = events.NewFactory()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Poller{
		feed:        opts.Feed,
		snapshots:   opts.Snapshots,
		log:         opts.Log,
		subscribers: opts.Subscribers,
		deliverer:   opts.Deliverer,
		state:       opts.State,
		events:      opts.Events,
		logger:      opts.Logger.With(map[string]any{"component": "poller"}),
		concurrency: opts.Concurrency,
		trigger:     make(chan struct{}, 1),
		now:         time.Now,
	}
}

// Restore carga el estado persistido en el store de snapshots y el log.
func (p *Poller) Restore(ctx context.Context) error {
	if p.state == nil {
		return nil
	}
	st, err := p.state.Load(ctx)
	if err != nil {
		return err
	}

	p.snapshots.Replace(st.KnownBounties)
	p.log.Replace(st.DeliveryLog)

	p.logger.Info("state restored", map[string]any{
		"known_bounties": p.snapshots.Count(),
		"deliveries":     p.log.Len(),
	})
	return nil
}

// Run corre un ciclo inicial y luego uno por tick o por Trigger, hasta que ctx
// se cancele. Un tick que llega durante un ciclo largo se descarta.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	p.logger.Info("poller started", map[string]any{"interval": interval.String()})
	_ = p.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped", nil)
			return
		case <-ticker.C:
			_ = p.RunCycle(ctx)
		case <-p.trigger:
			_ = p.RunCycle(ctx)
		}
	}
}

// Trigger pide un ciclo inmediato. No bloquea; pedidos repetidos se combinan.
func (p *Poller) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunCycle ejecuta un ciclo completo. Devuelve ErrCycleRunning si ya hay uno en
// curso y el error de fetch si el feed falló (en ese caso no se modifica nada).
// Errores de entrega o de persistencia no se devuelven: quedan en log y Stats.
//
// Cancelar ctx no corta un ciclo empezado: un snapshot avanzado sin sus
// entregas perdería el evento. main espera a Run antes del flush final.
func (p *Poller) RunCycle(ctx context.Context) error {
	if !p.cycle.TryLock() {
		return ErrCycleRunning
	}
	defer p.cycle.Unlock()

	ctx = context.WithoutCancel(ctx)

	p.running.Store(true)
	defer p.running.Store(false)

	started := p.now()

	records, err := p.feed.Fetch(ctx)
	if err != nil {
		p.logger.Error("bounty fetch failed", map[string]any{"error": err})
		p.finish(started, err, &cycleCounts{})
		return err
	}

	subs, err := p.subscribers.ListActive(ctx)
	if err != nil {
		p.logger.Error("subscriber list failed", map[string]any{"error": err})
		p.finish(started, err, &cycleCounts{})
		return err
	}

	var counts cycleCounts
	for _, rec := range records {
		prev, _ := p.snapshots.Get(rec.ID)
		types := bounties.Detect(prev, rec)

		// siempre, aunque no haya eventos
		p.snapshots.Put(rec.Snapshot())

		for _, t := range types {
			ev := p.events.New(t, rec.ID, rec.Raw)
			counts.events++

			p.logger.Info("event detected", map[string]any{
				"event_id":   ev.ID,
				"event_type": string(ev.Type),
				"bounty_id":  rec.ID,
			})

			p.dispatch(ctx, subs, ev, &counts)
		}
	}

	persistErr := p.Flush(ctx)
	p.finish(started, persistErr, &counts)

	p.logger.Info("poll cycle finished", map[string]any{
		"bounties":       len(records),
		"events":         counts.events,
		"deliveries_ok":  counts.ok.Load(),
		"deliveries_err": counts.failed.Load(),
		"duration_ms":    p.now().Sub(started).Milliseconds(),
	})
	return nil
}

// Flush recorta el log y persiste snapshots + log en una sola escritura.
// La llama RunCycle al cerrar cada ciclo y main al apagar.
func (p *Poller) Flush(ctx context.Context) error {
	p.log.Trim()
	if p.state == nil {
		return nil
	}

	// el guardado termina aunque el proceso se esté apagando
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	err := p.state.Save(sctx, state.State{
		KnownBounties: p.snapshots.All(),
		DeliveryLog:   p.log.Entries(),
	})
	if err != nil {
		p.logger.Error("state persist failed", map[string]any{"error": err})
	}
	return err
}

// FlushIdle espera a que no haya ciclo en curso y persiste.
func (p *Poller) FlushIdle(ctx context.Context) error {
	p.cycle.Lock()
	defer p.cycle.Unlock()
	return p.Flush(ctx)
}

type cycleCounts struct {
	events int64
	ok     atomic.Int64
	failed atomic.Int64
}

func (p *Poller) dispatch(ctx context.Context, subs []subscribers.Subscriber, ev events.Event, counts *cycleCounts) {
	deliver := func(sub subscribers.Subscriber) {
		entry := p.deliverer.Deliver(ctx, sub, ev)
		if entry.Status == deliveries.StatusSuccess {
			counts.ok.Add(1)
		} else {
			counts.failed.Add(1)
		}
	}

	if p.concurrency <= 1 {
		for _, sub := range subs {
			if sub.Wants(ev.Type) {
				deliver(sub)
			}
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, sub := range subs {
		if !sub.Wants(ev.Type) {
			continue
		}
		g.Go(func() error {
			deliver(sub)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) finish(started time.Time, err error, counts *cycleCounts) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	at := started.UTC()
	p.stats.Cycles++
	p.stats.LastPollAt = &at
	p.stats.EventsEmitted += counts.events
	p.stats.DeliveriesOK += counts.ok.Load()
	p.stats.DeliveriesFailed += counts.failed.Load()
	if err != nil {
		p.stats.FailedCycles++
		p.stats.LastError = err.Error()
	} else {
		p.stats.LastError = ""
	}
}

func (p *Poller) Stats() Stats {
	p.statsMu.Lock()
	s := p.stats
	p.statsMu.Unlock()

	if s.LastPollAt != nil {
		at := *s.LastPollAt
		s.LastPollAt = &at
	}
	s.Running = p.running.Load()
	return s
}

// KnownBounties es el tamaño del store de snapshots (para /health).
func (p *Poller) KnownBounties() int {
	return p.snapshots.Count()
}
