package quota

import (
	"context"
	"fmt"
	"time"
)

// Gate is the admission-control surface for gated collection operations.
//
// The protocol is check-then-act-then-commit: callers ask Check before an
// expensive provider call and Commit only after it succeeds. Nothing is
// reserved between the two, so two processes sharing one store can both pass
// the same check and overrun the budget. The collector runs as a single
// periodic batch job, where that is an accepted limitation; concurrent
// deployments need a reservation step this package does not provide.
type Gate struct {
	store   Store
	clock   Clock
	logger  Logger
	metrics Metrics

	limitPU       int
	limitRequests int
}

// Config holds optional gate collaborators. Zero values get safe defaults.
type Config struct {
	// Clock supplies the wall clock (default: SystemClock).
	Clock Clock

	// Logger receives structured governor events (default: NoopLogger).
	Logger Logger

	// Metrics receives check/commit/rollover counts (default: NoopMetrics).
	Metrics Metrics

	// MonthlyLimitPU and MonthlyLimitRequests override the persisted plan
	// limits when positive. The override wins over whatever the store
	// holds, so a plan change takes effect without editing the document.
	MonthlyLimitPU       int
	MonthlyLimitRequests int
}

// NewGate creates a gate over the given store.
func NewGate(store Store, cfg Config) (*Gate, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = &NoopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoopMetrics{}
	}
	return &Gate{
		store:         store,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		limitPU:       cfg.MonthlyLimitPU,
		limitRequests: cfg.MonthlyLimitRequests,
	}, nil
}

// Check reports whether an operation with the given estimated cost fits the
// remaining monthly budget. It never consumes quota and is safe to call
// speculatively. A denied decision is the normal admission signal, not an
// error; the caller's correct response is to skip or downgrade the
// operation.
func (g *Gate) Check(ctx context.Context, costPU int, opts ...CheckOption) (Decision, error) {
	if costPU < 0 {
		return Decision{}, ErrInvalidCost
	}
	options := checkOptions{minRequests: 1}
	for _, opt := range opts {
		opt(&options)
	}

	st, err := g.loadState(ctx)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		RemainingPU:       RemainingPU(st),
		RemainingRequests: RemainingRequests(st),
	}
	switch {
	case d.RemainingPU < costPU:
		d.Reason = fmt.Sprintf("insufficient processing units: need %d, have %d of %d",
			costPU, d.RemainingPU, st.MonthlyLimitPU)
	case d.RemainingRequests < options.minRequests:
		d.Reason = fmt.Sprintf("insufficient requests: need %d, have %d of %d",
			options.minRequests, d.RemainingRequests, st.MonthlyLimitRequests)
	default:
		d.Allowed = true
	}

	g.metrics.RecordCheck(d.Allowed, costPU)
	if !d.Allowed {
		g.logger.Warn("quota check denied",
			Field{Key: "cost_pu", Value: costPU},
			Field{Key: "reason", Value: d.Reason},
		)
	}
	return d, nil
}

// Commit records the actual consumption of a completed operation: adds the
// resolved cost to the monthly PU counter, charges one request, and advances
// the daily collection counter. The true usage is recorded even when it
// pushes a counter past its limit, so the ledger reflects reality; the
// monthly limit is advisory for any single commit.
func (g *Gate) Commit(ctx context.Context, op Operation, opts ...CommitOption) error {
	options := commitOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	cost := op.EstimatedCost()
	if options.cost != nil {
		cost = *options.cost
	}
	if cost < 0 {
		return ErrInvalidCost
	}

	st, err := g.loadState(ctx)
	if err != nil {
		return err
	}

	st.ProcessingUnitsUsed += cost
	st.RequestsUsed++

	today := g.clock.Now().Format(DateFormat)
	if st.LastCollectionDate != today {
		st.CollectionsToday = 1
		st.LastCollectionDate = today
	} else {
		st.CollectionsToday++
	}

	if err := g.saveState(ctx, st); err != nil {
		return fmt.Errorf("saving quota state: %w", err)
	}

	g.metrics.RecordCommit(string(op), cost)
	g.logger.Info("quota committed",
		Field{Key: "operation", Value: string(op)},
		Field{Key: "cost_pu", Value: cost},
		Field{Key: "pu_used", Value: st.ProcessingUnitsUsed},
		Field{Key: "pu_remaining", Value: RemainingPU(st)},
	)
	return nil
}

// Status returns the current budget standing. It loads fresh state on every
// call and never mutates counters.
func (g *Gate) Status(ctx context.Context) (*Status, error) {
	st, err := g.loadState(ctx)
	if err != nil {
		return nil, err
	}
	now := g.clock.Now()
	return &Status{
		PUUsed:            st.ProcessingUnitsUsed,
		PURemaining:       RemainingPU(st),
		PULimit:           st.MonthlyLimitPU,
		RequestsUsed:      st.RequestsUsed,
		RequestsRemaining: RemainingRequests(st),
		RequestsLimit:     st.MonthlyLimitRequests,
		PercentUsed:       PercentUsed(st),
		DaysRemaining:     DaysRemainingInMonth(now),
		SafeDailyPU:       SafeDailyPU(st, now),
		CollectionsToday:  st.CollectionsToday,
	}, nil
}

// loadState reads the persisted document, creating the default state on
// first use and resetting counters when the recorded month is stale. Both
// the creation and the reset are persisted before counters are read, so a
// subsequent independent load observes the same document.
func (g *Gate) loadState(ctx context.Context) (*State, error) {
	start := time.Now()
	st, err := g.store.Load(ctx)
	g.metrics.RecordStoreOperation("load", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("loading quota state: %w", err)
	}

	now := g.clock.Now()
	if st == nil {
		st = NewState(now)
		g.applyLimits(st)
		if err := g.saveState(ctx, st); err != nil {
			return nil, fmt.Errorf("initializing quota state: %w", err)
		}
		g.logger.Info("quota state initialized",
			Field{Key: "month", Value: st.CurrentMonth},
			Field{Key: "monthly_limit_pu", Value: st.MonthlyLimitPU},
		)
		return st, nil
	}

	g.applyLimits(st)

	month := now.Format(MonthFormat)
	if st.CurrentMonth != month {
		previous := st.CurrentMonth
		st.CurrentMonth = month
		st.ProcessingUnitsUsed = 0
		st.RequestsUsed = 0
		st.CollectionsToday = 0
		if err := g.saveState(ctx, st); err != nil {
			return nil, fmt.Errorf("persisting month rollover: %w", err)
		}
		g.metrics.RecordRollover(month)
		g.logger.Info("new month detected, quota reset",
			Field{Key: "previous_month", Value: previous},
			Field{Key: "month", Value: month},
		)
	}
	return st, nil
}

// applyLimits overlays configured limit overrides on the loaded document.
func (g *Gate) applyLimits(st *State) {
	if g.limitPU > 0 {
		st.MonthlyLimitPU = g.limitPU
	}
	if g.limitRequests > 0 {
		st.MonthlyLimitRequests = g.limitRequests
	}
}

// saveState persists the document and records the store-op metric.
func (g *Gate) saveState(ctx context.Context, st *State) error {
	start := time.Now()
	err := g.store.Save(ctx, st)
	g.metrics.RecordStoreOperation("save", time.Since(start), err)
	return err
}
