package state

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/worktime/internal/eventstore"
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// Source names where a recovered state came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceEvents Source = "events"
	SourceMirror Source = "mirror"
	SourceFresh  Source = "fresh"
)

// Recovery is the outcome of Persister.Load.
type Recovery struct {
	State  session.State
	Source Source
	// Discarded is the day key of a stale record that was dropped, if any.
	Discarded session.DayKey
}

// Options configures a Persister.
type Options struct {
	Key           string
	Mirror        Store
	MirrorTimeout time.Duration
	Events        eventstore.Store
	Recorder      metrics.Recorder
	Logger        *slog.Logger
}

// Persister writes session records to the local store and mirrors them.
type Persister struct {
	local    Store
	mirror   Store
	events   eventstore.Store
	key      string
	timeout  time.Duration
	recorder metrics.Recorder
	logger   *slog.Logger

	mirrorWG   sync.WaitGroup
	mirrorMu   sync.Mutex
	mirrorSeq  atomic.Uint64
	mirrorDone uint64
}

// NewPersister creates a Persister over the authoritative local store.
func NewPersister(local Store, opts Options) *Persister {
	if opts.Key == "" {
		opts.Key = RecordKey("")
	}
	if opts.MirrorTimeout <= 0 {
		opts.MirrorTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Persister{
		local:    local,
		mirror:   opts.Mirror,
		events:   opts.Events,
		key:      opts.Key,
		timeout:  opts.MirrorTimeout,
		recorder: metrics.OrNoop(opts.Recorder),
		logger:   opts.Logger,
	}
}

// Save writes st to the local store. On success the record is copied to the
// mirror in the background; mirror failures are only logged and counted.
func (p *Persister) Save(ctx context.Context, st session.State, now time.Time) error {
	data, err := Encode(st, now)
	if err != nil {
		return err
	}
	begin := time.Now()
	err = p.local.Put(ctx, p.key, data)
	p.recorder.ObservePersistDuration(time.Since(begin), err == nil)
	if err != nil {
		return err
	}
	p.mirrorAsync(func(ctx context.Context) error { return p.mirror.Put(ctx, p.key, data) })
	return nil
}

// Purge removes the persisted record locally and on the mirror.
func (p *Persister) Purge(ctx context.Context) error {
	if err := p.local.Delete(ctx, p.key); err != nil {
		return err
	}
	p.mirrorAsync(func(ctx context.Context) error { return p.mirror.Delete(ctx, p.key) })
	return nil
}

// Load recovers today's state. A record from another day is discarded and
// purged together with older event streams.
func (p *Persister) Load(ctx context.Context, today session.DayKey, emergencyDefault bool) (Recovery, error) {
	if st, ok := p.loadLocal(ctx); ok {
		if st.DayKey == today {
			return Recovery{State: st, Source: SourceLocal}, nil
		}
		return p.discard(ctx, today, emergencyDefault, st.DayKey)
	}

	if st, ok := p.loadEvents(ctx, today, emergencyDefault); ok {
		return Recovery{State: st, Source: SourceEvents}, nil
	}

	if st, ok := p.loadMirror(ctx); ok {
		if st.DayKey != today {
			return p.discard(ctx, today, emergencyDefault, st.DayKey)
		}
		p.backfillEvents(ctx, st)
		return Recovery{State: st, Source: SourceMirror}, nil
	}

	return Recovery{State: session.NewState(today, emergencyDefault), Source: SourceFresh}, nil
}

// Wait blocks until in-flight mirror writes finish.
func (p *Persister) Wait() {
	p.mirrorWG.Wait()
}

func (p *Persister) loadLocal(ctx context.Context) (session.State, bool) {
	data, err := p.local.Get(ctx, p.key)
	if err != nil {
		if !stderrors.Is(err, ErrNotFound) {
			p.logger.Warn("Local session record unreadable", logfields.Store("local"), logfields.Error(err))
		}
		return session.State{}, false
	}
	st, err := Decode(data)
	if err != nil {
		p.logger.Warn("Local session record rejected", logfields.Store("local"), logfields.Error(err))
		return session.State{}, false
	}
	return st, true
}

func (p *Persister) loadEvents(ctx context.Context, today session.DayKey, emergencyDefault bool) (session.State, bool) {
	if p.events == nil {
		return session.State{}, false
	}
	st, err := eventstore.Rebuild(ctx, p.events, today, emergencyDefault)
	if err != nil {
		p.logger.Warn("Event log replay failed", logfields.DayKey(string(today)), logfields.Error(err))
		return session.State{}, false
	}
	if len(st.Events) == 0 {
		return session.State{}, false
	}
	p.logger.Info("Session rebuilt from event log",
		logfields.DayKey(string(today)),
		slog.Int("events", len(st.Events)))
	return st, true
}

func (p *Persister) loadMirror(ctx context.Context) (session.State, bool) {
	if p.mirror == nil {
		return session.State{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.mirror.Get(ctx, p.key)
	if err != nil {
		if !stderrors.Is(err, ErrNotFound) {
			p.recorder.IncMirrorFailure()
			p.logger.Warn("Mirror read failed", logfields.Store("mirror"), logfields.Error(err))
		}
		return session.State{}, false
	}
	st, err := Decode(data)
	if err != nil {
		p.logger.Warn("Mirror session record rejected", logfields.Store("mirror"), logfields.Error(err))
		return session.State{}, false
	}
	return st, true
}

func (p *Persister) backfillEvents(ctx context.Context, st session.State) {
	if p.events == nil {
		return
	}
	for _, ev := range st.Events {
		if err := p.events.Append(ctx, st.DayKey, ev); err != nil {
			p.logger.Warn("Event log backfill failed", logfields.DayKey(string(st.DayKey)), logfields.Error(err))
			return
		}
	}
}

func (p *Persister) discard(ctx context.Context, today session.DayKey, emergencyDefault bool, stale session.DayKey) (Recovery, error) {
	p.logger.Info("Stale session discarded",
		slog.String("stale_day_key", string(stale)),
		logfields.DayKey(string(today)))

	fresh := Recovery{State: session.NewState(today, emergencyDefault), Source: SourceFresh, Discarded: stale}
	if err := p.Purge(ctx); err != nil {
		return fresh, err
	}
	if p.events != nil {
		// A stale day after today means the clock went backwards.
		if err := p.events.Purge(ctx, stale); err != nil {
			return fresh, err
		}
		if _, err := p.events.PurgeBefore(ctx, today); err != nil {
			return fresh, err
		}
	}
	return fresh, nil
}

// mirrorAsync runs op against the mirror in its own goroutine. Writes are
// sequenced so a slow older write never lands after a newer one.
func (p *Persister) mirrorAsync(op func(context.Context) error) {
	if p.mirror == nil {
		return
	}
	seq := p.mirrorSeq.Add(1)
	p.mirrorWG.Add(1)
	go func() {
		defer p.mirrorWG.Done()
		p.mirrorMu.Lock()
		defer p.mirrorMu.Unlock()
		if seq <= p.mirrorDone {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := op(ctx); err != nil {
			p.recorder.IncMirrorFailure()
			p.logger.Warn("Mirror write failed",
				logfields.Store("mirror"),
				slog.String("category", string(errors.GetCategory(err))),
				logfields.Error(err))
		}
		p.mirrorDone = seq
	}()
}
