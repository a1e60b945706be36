package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/logger"
	"github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/monitoring"
	"github.com/kilianp07/evsync/core/pending"
	"github.com/kilianp07/evsync/core/remote"
	"github.com/kilianp07/evsync/internal/eventbus"
)

// ErrInvalidArgument is returned for nil or malformed input.
var ErrInvalidArgument = errors.New("invalid argument")

// Mode selects how a public operation transmits its payload.
type Mode int

const (
	// Enqueue queues the payload for the next scheduled run and returns
	// immediately.
	Enqueue Mode = iota
	// Direct sends the payload inline and returns the remote outcome.
	Direct
)

func (m Mode) String() string {
	if m == Direct {
		return "direct"
	}
	return "enqueue"
}

// Engine synchronises EVSE data, status and charge detail records with the
// remote side. Create engines with New.
type Engine struct {
	cfg      Config
	client   remote.Client
	mapper   remote.EntityMapper
	policy   remote.InclusionPolicy
	source   StatusSource
	store    *pending.Store
	log      logger.Logger
	faults   monitoring.FaultSink
	bus      *eventbus.Bus[eventbus.Event]
	recorder metrics.OutcomeRecorder
	runtimes *metrics.RuntimeStats
	now      func() time.Time

	// run slots, one per trigger
	dataSlot    sync.Mutex
	flushSlot   sync.Mutex
	refreshSlot sync.Mutex

	// dataMu serialises static data uploads so the full set is sent once.
	dataMu      sync.Mutex
	fullSetDone bool
	dataRuns    uint64

	status *semaphore.Weighted

	serviceCheck  *trigger
	statusFlush   *trigger
	statusRefresh *trigger

	runsMu sync.Mutex
	runs   map[events.Path]uint64

	closed  atomic.Bool
	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an engine sending to client. cfg is completed with defaults.
func New(cfg Config, client remote.Client, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil remote client", ErrInvalidArgument)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		client:   client,
		mapper:   remote.DefaultMapper{},
		policy:   remote.IncludeAll,
		store:    pending.New(),
		log:      logger.Nop{},
		faults:   monitoring.NopFaultSink{},
		recorder: metrics.NopSink{},
		runtimes: metrics.NewRuntimeStats(0),
		now:      time.Now,
		status:   semaphore.NewWeighted(1),
		runs:     make(map[events.Path]uint64),
	}
	for _, o := range opts {
		o(e)
	}
	e.serviceCheck = newTrigger(TimerServiceCheck, cfg.ServiceCheckEvery, e.now)
	e.statusFlush = newTrigger(TimerStatusFlush, cfg.StatusFlushEvery, e.now)
	e.statusRefresh = newTrigger(TimerStatusRefresh, cfg.StatusRefreshEvery, e.now)
	return e, nil
}

// AdapterID returns the identifier reported with faults and events.
func (e *Engine) AdapterID() string { return e.cfg.AdapterID }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Start launches the triggers. They stop when ctx is done or Close is
// called. Start is a no-op on a started or closed engine.
func (e *Engine) Start(ctx context.Context) {
	if e.closed.Load() || !e.started.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.spawn(ctx, e.serviceCheck, func(ctx context.Context) { e.ServiceCheck(ctx) })
	e.spawn(ctx, e.statusFlush, func(ctx context.Context) { e.FlushStatus(ctx) })
	if e.refreshEnabled() {
		e.spawn(ctx, e.statusRefresh, func(ctx context.Context) { e.RefreshStatus(ctx) })
	}
	e.log.Infof("sync engine %s started", e.cfg.AdapterID)
}

func (e *Engine) spawn(ctx context.Context, t *trigger, fn func(context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		t.run(ctx, func(ctx context.Context) {
			defer e.recoverTimer(t.name)
			fn(ctx)
		})
	}()
}

// Close stops the triggers and waits for running callbacks. Afterwards
// every public operation reports OutOfService. Pending changes are dropped.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	d := e.store.Len()
	if d != (pending.Depths{}) {
		e.log.Warnw("sync engine closed with pending changes", map[string]any{
			"adapter": e.cfg.AdapterID,
			"add":     d.Add,
			"update":  d.Update,
			"remove":  d.Remove,
			"status":  d.StatusFast + d.StatusDelayed,
			"cdr":     d.CDRs,
		})
	}
	return nil
}

// Stats summarises the engine activity.
type Stats struct {
	FullSetDone bool
	DataRuns    uint64
	Runs        map[events.Path]uint64
	Runtimes    map[events.Path]metrics.Summary
	Queues      pending.Depths
}

// Stats returns a snapshot of the engine activity.
func (e *Engine) Stats() Stats {
	e.dataMu.Lock()
	s := Stats{FullSetDone: e.fullSetDone, DataRuns: e.dataRuns}
	e.dataMu.Unlock()

	e.runsMu.Lock()
	s.Runs = make(map[events.Path]uint64, len(e.runs))
	for p, n := range e.runs {
		s.Runs[p] = n
	}
	e.runsMu.Unlock()

	s.Runtimes = make(map[events.Path]metrics.Summary)
	for _, p := range e.runtimes.Paths() {
		s.Runtimes[p] = e.runtimes.Summary(p)
	}
	s.Queues = e.store.Len()
	return s
}

func (e *Engine) refreshEnabled() bool {
	return !e.cfg.DisableStatusRefresh && !e.cfg.DisablePushStatus && e.source != nil
}

// SetStaticData publishes the complete static data of scope. In Direct
// mode the EVSEs are sent as a full set; queued EVSEs are uploaded as adds.
func (e *Engine) SetStaticData(ctx context.Context, scope model.Scope, mode Mode) (ack.Acknowledgement, error) {
	return e.staticData(ctx, scope, mode, opSet)
}

// AddStaticData publishes EVSEs that are new to the remote side. Their
// status updates are held back until the upload succeeded.
func (e *Engine) AddStaticData(ctx context.Context, scope model.Scope, mode Mode) (ack.Acknowledgement, error) {
	return e.staticData(ctx, scope, mode, opAdd)
}

// UpdateStaticData publishes changed static data.
func (e *Engine) UpdateStaticData(ctx context.Context, scope model.Scope, mode Mode) (ack.Acknowledgement, error) {
	return e.staticData(ctx, scope, mode, opUpdate)
}

// DeleteStaticData removes EVSEs from the remote side.
func (e *Engine) DeleteStaticData(ctx context.Context, scope model.Scope, mode Mode) (ack.Acknowledgement, error) {
	return e.staticData(ctx, scope, mode, opDelete)
}

type staticOp int

const (
	opSet staticOp = iota
	opAdd
	opUpdate
	opDelete
)

func (e *Engine) staticData(ctx context.Context, scope model.Scope, mode Mode, op staticOp) (ack.Acknowledgement, error) {
	if e.closed.Load() {
		return ack.OutOfService(0), nil
	}
	if scope == nil {
		return ack.Acknowledgement{}, fmt.Errorf("%w: nil scope", ErrInvalidArgument)
	}
	evses := model.Flatten(scope)
	for _, ev := range evses {
		if err := ev.ID.Validate(); err != nil {
			return ack.Acknowledgement{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	if e.cfg.DisablePushData || len(evses) == 0 {
		return ack.NoOperation(), nil
	}

	if mode == Direct {
		var snap pending.Snapshot
		switch op {
		case opSet, opAdd:
			snap.Add = evses
		case opUpdate:
			snap.Update = evses
		case opDelete:
			snap.Remove = evses
		}
		a, _ := e.dispatchData(ctx, snap, op == opSet)
		return a, nil
	}

	for _, ev := range evses {
		switch op {
		case opSet, opAdd:
			e.store.EnqueueAdd(ev)
		case opUpdate:
			e.store.EnqueueUpdate(ev)
		case opDelete:
			e.store.EnqueueRemove(ev)
		}
	}
	e.serviceCheck.arm(e.cfg.ServiceCheckEvery)
	return ack.Enqueued(), nil
}

// UpdateStatus publishes status changes. Updates of EVSEs waiting for their
// initial upload are always queued until that upload completes, even in
// Direct mode.
func (e *Engine) UpdateStatus(ctx context.Context, updates []model.EVSEStatusUpdate, mode Mode) (ack.Acknowledgement, error) {
	if e.closed.Load() {
		return ack.OutOfService(0), nil
	}
	for _, u := range updates {
		if err := u.ID().Validate(); err != nil {
			return ack.Acknowledgement{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	if e.cfg.DisablePushStatus || len(updates) == 0 {
		return ack.NoOperation(), nil
	}

	if mode == Direct {
		var send []model.EVSEStatusUpdate
		var held int
		for _, u := range updates {
			if e.store.PendingAdd(u.ID()) {
				e.store.EnqueueStatus(u)
				held++
				continue
			}
			send = append(send, u)
		}
		var warnings []string
		if held > 0 {
			warnings = append(warnings, fmt.Sprintf("%d status updates queued until their EVSE is uploaded", held))
		}
		if len(send) == 0 {
			return ack.Enqueued().WithWarnings(warnings...), nil
		}
		a := e.pushStatusDirect(ctx, send)
		return a.WithWarnings(warnings...), nil
	}

	fast := false
	for _, u := range updates {
		if e.store.EnqueueStatus(u) {
			fast = true
		}
	}
	if fast {
		e.statusFlush.arm(e.cfg.StatusFlushEvery)
	}
	return ack.Enqueued(), nil
}

// SendCDRs forwards charge detail records.
func (e *Engine) SendCDRs(ctx context.Context, records []model.ChargeDetailRecord, mode Mode) (ack.Acknowledgement, error) {
	if e.closed.Load() {
		return ack.OutOfService(0), nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return ack.Acknowledgement{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	if e.cfg.DisableSendCDRs || len(records) == 0 {
		return ack.NoOperation(), nil
	}
	if mode == Direct {
		a, _ := e.dispatchCDRs(ctx, records, false)
		return a, nil
	}
	for _, r := range records {
		e.store.EnqueueCDR(r)
	}
	e.serviceCheck.arm(e.cfg.ServiceCheckEvery)
	return ack.Enqueued(), nil
}

// Authorize asks the remote side whether token may start a session.
func (e *Engine) Authorize(ctx context.Context, token string) (ack.AuthResult, error) {
	if e.closed.Load() {
		return ack.AuthResult{Kind: ack.AuthOutOfService, Token: token}, nil
	}
	if token == "" {
		return ack.AuthResult{}, fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}
	if e.cfg.DisableAuthentication {
		return ack.AuthResult{Kind: ack.AuthError, Token: token, Description: "authentication disabled"}, nil
	}

	start := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	var resp *remote.AuthResponse
	err := e.guard("authorize", func() error {
		var err error
		resp, err = e.client.Authorize(ctx, token)
		return err
	})
	res := ack.AuthResult{Token: token, Runtime: e.now().Sub(start)}
	switch {
	case err != nil:
		res.Kind = ack.AuthError
		res.Description = monitoring.RootCause(err).Error()
	case resp == nil:
		res.Kind = ack.AuthError
		res.Description = remote.ErrNoResponse.Error()
	default:
		res.ProviderID = resp.ProviderID
		res.Description = resp.Description
		switch resp.Status {
		case remote.AuthAuthorized:
			res.Kind = ack.Authorized
		case remote.AuthNotAuthorized:
			res.Kind = ack.NotAuthorized
		case remote.AuthBlocked:
			res.Kind = ack.Blocked
		default:
			res.Kind = ack.AuthError
			if res.Description == "" {
				res.Description = fmt.Sprintf("unknown authorization status %q", resp.Status)
			}
		}
	}
	e.log.Debugw("authorization", map[string]any{"result": res.Kind.String(), "runtime": res.Runtime.String()})
	return res, nil
}
