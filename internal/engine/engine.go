package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/netrel/internal/autocorr"
	"github.com/gyaneshwarpardhi/netrel/internal/config"
	"github.com/gyaneshwarpardhi/netrel/internal/fragility"
	"github.com/gyaneshwarpardhi/netrel/internal/metrics"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
	"github.com/gyaneshwarpardhi/netrel/internal/threat"
	"github.com/gyaneshwarpardhi/netrel/internal/topology"
)

var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrQueueFull       = errors.New("analysis queue full")
	ErrTimeout         = errors.New("analysis timeout")
	ErrShutdown        = errors.New("engine shut down")
)

// Analysis kinds, used as metric labels.
const (
	KindReport       = "report"
	KindDistribution = "distribution"
	KindFragility    = "fragility"
	KindThreats      = "threats"
	KindDurbinWatson = "durbin_watson"
)

// NetworkSummary describes a loaded network.
type NetworkSummary struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Nodes       int    `json:"nodes"`
	Links       int    `json:"links"`
}

// ThreatResult is the outcome of one threat simulation.
type ThreatResult struct {
	Seed          uint64                    `json:"seed"`
	Events        []threat.Event            `json:"events"`
	Probabilities reliability.Probabilities `json:"probabilities"`
	Baseline      float64                   `json:"baseline_reliability"`
	Report        *reliability.Report       `json:"report"`
}

// state is everything a config reload replaces. It is immutable once stored.
type state struct {
	catalog   *topology.Catalog
	evaluator reliability.Evaluator
	tracker   fragility.Tracker
	threats   *threat.Simulator
}

// Engine runs analyses on a bounded worker pool against the active network catalog.
type Engine struct {
	state   atomic.Pointer[state]
	pool    *workerPool[*analysisWork]
	timeout time.Duration

	mu     sync.RWMutex // guards closed against concurrent Submit and Drain
	closed bool
}

type analysisWork struct {
	ctx     context.Context
	kind    string
	run     func(context.Context) (any, error)
	resultC chan analysisResult
}

type analysisResult struct {
	value any
	err   error
}

// New creates an Engine for cfg and cat and starts the worker pool.
func New(ctx context.Context, cfg *config.Config, cat *topology.Catalog) (*Engine, error) {
	e := &Engine{
		timeout: time.Duration(cfg.Analysis.TimeoutMs) * time.Millisecond,
	}
	if err := e.Swap(cfg, cat); err != nil {
		return nil, err
	}
	workers, depth := cfg.Analysis.Workers, cfg.Analysis.QueueDepth
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	if depth <= 0 {
		depth = config.DefaultQueueDepth
	}
	e.pool = newWorkerPool(ctx, workers, depth, e.execute)
	return e, nil
}

// Swap atomically replaces the catalog and analysis settings (used on hot-reload).
// Pool sizing and the timeout keep their startup values.
func (e *Engine) Swap(cfg *config.Config, cat *topology.Catalog) error {
	mode, err := fragility.ParseMode(cfg.Analysis.FragilityMode)
	if err != nil {
		return err
	}
	ev := reliability.NewEvaluator(cfg.Analysis.MaxNodes)
	e.state.Store(&state{
		catalog:   cat,
		evaluator: ev,
		tracker: fragility.Tracker{
			CriticalThreshold: cfg.Analysis.CriticalThreshold,
			Mode:              mode,
			Evaluator:         ev,
		},
		threats: threat.FromConfig(cfg.Threats),
	})
	metrics.NetworksLoaded.Set(float64(cat.Len()))
	return nil
}

// Apply validates cfg, builds its catalog and swaps both in.
// The active state is untouched on error.
func (e *Engine) Apply(cfg *config.Config) (*topology.Catalog, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cat, err := topology.BuildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if err := e.Swap(cfg, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// OnConfigChange applies a reloaded config. It is registered with
// config.Loader.OnChange.
func (e *Engine) OnConfigChange(cfg *config.Config) {
	cat, err := e.Apply(cfg)
	if err != nil {
		slog.Warn("hot-reload skipped: config invalid", "err", err)
		return
	}
	slog.Info("networks hot-reloaded", "version", cfg.Version, "networks", cat.Len())
}

// Networks lists the loaded networks in declaration order.
func (e *Engine) Networks() []NetworkSummary {
	nets := e.state.Load().catalog.Networks()
	out := make([]NetworkSummary, 0, len(nets))
	for _, n := range nets {
		out = append(out, NetworkSummary{
			ID:          n.ID,
			Description: n.Description,
			Nodes:       n.NodeCount(),
			Links:       n.LinkCount(),
		})
	}
	return out
}

// Report computes the full reliability report of a loaded network.
func (e *Engine) Report(ctx context.Context, networkID string) (*reliability.Report, error) {
	st := e.state.Load()
	n, err := st.network(networkID)
	if err != nil {
		return nil, err
	}
	rep, err := submit(ctx, e, KindReport, func(context.Context) (*reliability.Report, error) {
		return st.report(n.Probabilities(), n.Adjacency())
	})
	if err != nil {
		return nil, err
	}
	metrics.SystemReliability.WithLabelValues(n.ID).Set(rep.SystemReliability)
	return rep, nil
}

// Evaluate computes the report of an ad-hoc network.
func (e *Engine) Evaluate(ctx context.Context, p reliability.Probabilities, adj reliability.Adjacency) (*reliability.Report, error) {
	st := e.state.Load()
	return submit(ctx, e, KindReport, func(context.Context) (*reliability.Report, error) {
		return st.report(p, adj)
	})
}

// Distribution lists every joint state of a loaded network.
func (e *Engine) Distribution(ctx context.Context, networkID string) ([]reliability.StateProbability, error) {
	st := e.state.Load()
	n, err := st.network(networkID)
	if err != nil {
		return nil, err
	}
	return submit(ctx, e, KindDistribution, func(context.Context) ([]reliability.StateProbability, error) {
		dist, err := st.evaluator.ProbabilityDistribution(n.Probabilities())
		if err == nil {
			metrics.StatesEnumerated.Add(float64(len(dist)))
		}
		return dist, err
	})
}

// Fragility removes nodes of a loaded network in order. A positive threshold
// overrides the configured critical threshold.
func (e *Engine) Fragility(ctx context.Context, networkID string, order []string, threshold int) ([]fragility.StepResult, error) {
	st := e.state.Load()
	n, err := st.network(networkID)
	if err != nil {
		return nil, err
	}
	tracker := st.tracker
	if threshold > 0 {
		tracker.CriticalThreshold = threshold
	}
	return submit(ctx, e, KindFragility, func(context.Context) ([]fragility.StepResult, error) {
		steps, err := tracker.Track(n.Adjacency(), n.Probabilities(), order)
		if err == nil && tracker.Mode == fragility.ModeExact {
			for _, s := range steps {
				metrics.StatesEnumerated.Add(float64(reliability.StateCount(s.RemainingCount)))
			}
		}
		return steps, err
	})
}

// Threats runs one threat simulation seeded with seed against a loaded network and
// reports the perturbed network.
func (e *Engine) Threats(ctx context.Context, networkID string, seed uint64) (*ThreatResult, error) {
	st := e.state.Load()
	n, err := st.network(networkID)
	if err != nil {
		return nil, err
	}
	return submit(ctx, e, KindThreats, func(context.Context) (*ThreatResult, error) {
		p, adj := n.Probabilities(), n.Adjacency()
		baseline, err := st.evaluator.SystemReliability(p, adj)
		if err != nil {
			return nil, err
		}
		perturbed, events := st.threats.Simulate(threat.NewRand(seed), p)
		rep, err := st.report(perturbed, adj)
		if err != nil {
			return nil, err
		}
		return &ThreatResult{
			Seed:          seed,
			Events:        events,
			Probabilities: perturbed,
			Baseline:      baseline,
			Report:        rep,
		}, nil
	})
}

// DurbinWatson runs the diagnostic inline; it is linear in the input.
func (e *Engine) DurbinWatson(residuals []float64) (autocorr.Result, error) {
	start := time.Now()
	res, err := autocorr.DurbinWatson(residuals)
	observe(KindDurbinWatson, start, err)
	return res, err
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown drains the pool gracefully. Later submissions fail with ErrShutdown.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.pool.Drain()
}

// submit queues fn and waits for its result, the timeout, or ctx.
func submit[R any](ctx context.Context, e *Engine, kind string, fn func(context.Context) (R, error)) (R, error) {
	var zero R
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	w := &analysisWork{
		ctx:     ctx,
		kind:    kind,
		run:     func(ctx context.Context) (any, error) { return fn(ctx) },
		resultC: make(chan analysisResult, 1),
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return zero, ErrShutdown
	}
	ok := e.pool.Submit(w)
	e.mu.RUnlock()
	if !ok {
		metrics.AnalysesDropped.Inc()
		return zero, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
	}
	metrics.AnalysesEnqueued.Inc()
	metrics.QueueUtilization.Set(e.QueueUtilization())

	select {
	case res := <-w.resultC:
		if res.err != nil {
			return zero, res.err
		}
		return res.value.(R), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %v", ErrTimeout, e.timeout)
		}
		return zero, ctx.Err()
	}
}

func (e *Engine) execute(_ context.Context, w *analysisWork) {
	defer metrics.QueueUtilization.Set(e.QueueUtilization())
	// The caller has already given up.
	if err := w.ctx.Err(); err != nil {
		w.resultC <- analysisResult{err: err}
		return
	}
	start := time.Now()
	v, err := w.run(w.ctx)
	observe(w.kind, start, err)
	w.resultC <- analysisResult{value: v, err: err}
}

func observe(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.Evaluations.WithLabelValues(kind, status).Inc()
	metrics.EvaluationDuration.WithLabelValues(kind).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

func (st *state) network(id string) (*topology.Network, error) {
	n := st.catalog.Network(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, id)
	}
	return n, nil
}

// report evaluates 2n+1 networks of n nodes each.
func (st *state) report(p reliability.Probabilities, adj reliability.Adjacency) (*reliability.Report, error) {
	rep, err := st.evaluator.Report(p, adj)
	if err != nil {
		return nil, err
	}
	metrics.StatesEnumerated.Add(float64(uint64(2*len(p)+1) * reliability.StateCount(len(p))))
	return rep, nil
}
