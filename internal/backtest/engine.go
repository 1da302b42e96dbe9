// Package backtest drives bar-by-bar replays through the fill model and
// position calculator and produces a BacktestResult.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/clock"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/fill"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/orderbook"
	"backtest-lab/internal/position"
	"backtest-lab/internal/random"
	"backtest-lab/internal/replay"
	"backtest-lab/internal/strategy"
)

// Engine errors
var (
	ErrEmptyBarSeries = replay.ErrEmptySeries
	ErrStrategyFailed = errors.New("strategy failed")
)

// Phase is a state of the run state machine.
type Phase string

// Run phases. Per bar the engine cycles ADVANCE_CLOCK through CHECK_EXITS.
const (
	PhaseInit            Phase = "INIT"
	PhaseRunning         Phase = "RUNNING"
	PhaseAdvanceClock    Phase = "ADVANCE_CLOCK"
	PhaseRebuildBook     Phase = "REBUILD_BOOK"
	PhaseGenerateSignals Phase = "GENERATE_SIGNALS"
	PhaseExecuteFills    Phase = "EXECUTE_FILLS"
	PhaseCheckExits      Phase = "CHECK_EXITS"
	PhaseCloseAll        Phase = "CLOSE_ALL"
	PhaseComputeMetrics  Phase = "COMPUTE_METRICS"
	PhaseDone            Phase = "DONE"
)

// AbortPolicy decides what happens to open positions when a run is cancelled.
type AbortPolicy int

const (
	// AbortExclude leaves open positions out of the metrics and labels the result PARTIAL.
	AbortExclude AbortPolicy = iota
	// AbortForceClose closes open positions at the last processed close and labels the result ABORTED_CLOSED.
	AbortForceClose
)

const equityTimerName = "equity_snapshot"

// Dropped order reasons
const (
	dropNoBook     = "no_book"
	dropReduceOnly = "reduce_only"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAbortPolicy sets the cancellation policy.
func WithAbortPolicy(p AbortPolicy) Option {
	return func(e *Engine) { e.abortPolicy = p }
}

// WithSignalSource overrides the source built from the strategy config.
func WithSignalSource(src strategy.SignalSource) Option {
	return func(e *Engine) { e.source = src }
}

// WithSeed forces the effective seed, overriding cfg.Seed and the wall-time
// fallback. Used to replay runs recorded without an explicit seed.
func WithSeed(seed uint32) Option {
	return func(e *Engine) { e.forcedSeed = &seed }
}

// WithPhaseObserver registers a callback invoked on every phase transition.
func WithPhaseObserver(fn func(phase Phase, barIndex int)) Option {
	return func(e *Engine) { e.observer = fn }
}

// Engine runs one backtest at a time. Each Run owns a private clock, random
// source, book set and position ledger, so independent engines can run in
// parallel over the same read-only bars. An Engine is not safe for concurrent Run calls.
type Engine struct {
	cfg         domain.BacktestConfig
	strat       domain.StrategyConfig
	params      fill.Params
	source      strategy.SignalSource
	logger      *zap.Logger
	metrics     *observability.Metrics
	abortPolicy AbortPolicy
	observer    func(Phase, int)
	forcedSeed  *uint32

	// per-run state
	phase     Phase
	runID     string
	clock     *clock.SimulationClock
	rng       *random.Source
	model     *fill.Model
	builder   *orderbook.Builder
	books     map[string]*orderbook.OrderBook
	positions map[string]domain.Position
	lastClose map[string]float64
	capital   float64
	fills     []domain.SimulatedFill
	trades    []domain.Trade
	equity    []domain.EquityPoint
	dropped   int
}

// NewEngine validates cfg and strat and builds the strategy's signal source.
func NewEngine(cfg domain.BacktestConfig, strat domain.StrategyConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	params, err := fill.ParamsFromConfig(&cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		strat:  strat,
		params: params,
		logger: zap.NewNop(),
		phase:  PhaseInit,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.source == nil {
		src, err := strategy.FromConfig(strat)
		if err != nil {
			return nil, err
		}
		e.source = src
	}
	return e, nil
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// StrategyID returns the configured strategy id, or the source id when unset.
func (e *Engine) StrategyID() string {
	if e.strat.StrategyID != "" {
		return e.strat.StrategyID
	}
	return e.source.ID()
}

// Run replays bars and returns the result.
// bars must be ordered by (timestamp, symbol) and are never modified.
// Cancellation of ctx is checked once per bar; a cancelled run returns a
// result labeled per the abort policy and a nil error.
func (e *Engine) Run(ctx context.Context, bars []domain.Bar) (*domain.BacktestResult, error) {
	started := time.Now()

	if err := replay.ValidateSeries(bars); err != nil {
		return nil, err
	}

	seed := random.FoldSeed(time.Now().UnixNano())
	if e.cfg.Seed != nil {
		seed = random.FoldSeed(*e.cfg.Seed)
	}
	if e.forcedSeed != nil {
		seed = *e.forcedSeed
	}
	if err := e.reset(bars, seed); err != nil {
		return nil, err
	}

	log := e.logger.With(zap.String("run_id", e.runID), zap.String("strategy_id", e.StrategyID()))
	log.Info("backtest started",
		zap.Int("bars", len(bars)),
		zap.Uint32("seed", seed),
		zap.String("fill_model", e.cfg.FillModel),
	)

	e.setPhase(PhaseRunning, -1)
	processed := 0
	aborted := false
	for i := range bars {
		if ctx.Err() != nil {
			aborted = true
			break
		}
		if err := e.step(i, &bars[i]); err != nil {
			e.metrics.RecordRun("FAILED", time.Since(started).Seconds())
			log.Error("backtest failed", zap.Int("bar_index", i), zap.Error(err))
			return nil, err
		}
		processed++
	}

	status := domain.RunStatusCompleted
	var open []domain.Position
	e.setPhase(PhaseCloseAll, processed)
	switch {
	case !aborted:
		e.closeAll(domain.ReasonEndOfBacktest, processed)
	case e.abortPolicy == AbortForceClose:
		status = domain.RunStatusAbortedClosed
		e.closeAll(domain.ReasonAborted, processed)
	default:
		status = domain.RunStatusPartial
		open = e.openPositions()
	}

	endMs := bars[0].TimestampMs
	if processed > 0 {
		endMs = bars[processed-1].TimestampMs
	}
	e.equity = append(e.equity, domain.EquityPoint{TimestampNs: e.clock.TimestampNs(), Equity: e.capital})

	e.setPhase(PhaseComputeMetrics, processed)
	result := &domain.BacktestResult{
		RunID:          e.runID,
		StrategyID:     e.StrategyID(),
		Status:         status,
		Seed:           seed,
		StartMs:        bars[0].TimestampMs,
		EndMs:          endMs,
		BarsProcessed:  processed,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   e.capital,
		Trades:         e.trades,
		Fills:          e.fills,
		FillsDigest:    idhash.ComputeFillsDigest(e.fills),
		OpenPositions:  open,
		EquityCurve:    e.equity,
		DroppedOrders:  e.dropped,
		Config:         e.cfg,
		Strategy:       e.strat,
	}
	metrics.Compute(metrics.Input{
		InitialCapital: result.InitialCapital,
		FinalCapital:   result.FinalCapital,
		StartMs:        result.StartMs,
		EndMs:          result.EndMs,
		Trades:         result.Trades,
	}).Apply(result)

	e.setPhase(PhaseDone, processed)
	e.metrics.RecordRun(status, time.Since(started).Seconds())
	log.Info("backtest finished",
		zap.String("status", status),
		zap.Int("bars_processed", processed),
		zap.Int("fills", len(result.Fills)),
		zap.Int("exit_trades", result.TotalTrades),
		zap.Float64("total_return_pct", result.TotalReturn),
		zap.Int("dropped_orders", result.DroppedOrders),
	)
	return result, nil
}

// reset discards all state of a previous run.
func (e *Engine) reset(bars []domain.Bar, seed uint32) error {
	originNs := bars[0].TimestampNs()
	if e.clock == nil {
		e.clock = clock.NewSimulationClock(originNs)
	} else {
		e.clock.ResetTo(originNs)
	}
	if e.rng == nil {
		e.rng = random.New(seed)
	} else {
		e.rng.SetSeed(seed)
	}

	e.model = fill.NewModel(e.params, e.rng)
	e.builder = orderbook.NewBuilder(e.cfg.Depth())
	e.books = make(map[string]*orderbook.OrderBook)
	e.positions = make(map[string]domain.Position)
	e.lastClose = make(map[string]float64)
	e.capital = e.cfg.InitialCapital
	e.fills = nil
	e.trades = nil
	e.equity = nil
	e.dropped = 0
	e.runID = idhash.ComputeRunID(e.cfg, e.strat, seed, bars[0].TimestampMs, bars[len(bars)-1].TimestampMs, len(bars))

	if r, ok := e.source.(strategy.Resetter); ok {
		r.Reset()
	}

	interval := time.Duration(e.cfg.SnapshotIntervalMs()) * time.Millisecond
	return e.clock.SetTimer(equityTimerName, interval, func(ev clock.TimeEvent) {
		e.equity = append(e.equity, domain.EquityPoint{TimestampNs: ev.FiredAtNs, Equity: e.markToMarket()})
	})
}

// step processes one bar through the per-bar phases.
func (e *Engine) step(i int, bar *domain.Bar) error {
	e.setPhase(PhaseAdvanceClock, i)
	if _, err := e.clock.AdvanceTime(bar.TimestampNs()); err != nil {
		return fmt.Errorf("bar %d: %w", i, err)
	}
	e.lastClose[bar.Symbol] = bar.Close

	e.setPhase(PhaseRebuildBook, i)
	e.books[bar.Symbol] = e.builder.Next(e.books[bar.Symbol], bar)

	var orders []domain.SimulatedOrder
	if e.strat.Trades(bar.Symbol) {
		e.setPhase(PhaseGenerateSignals, i)
		var err error
		orders, err = e.source.Generate(bar, e.state(i))
		if err != nil {
			e.metrics.RecordStrategyFailure()
			return fmt.Errorf("%w: bar %d (%s@%d): %v", ErrStrategyFailed, i, bar.Symbol, bar.TimestampMs, err)
		}
	}

	e.setPhase(PhaseExecuteFills, i)
	for seq := range orders {
		if err := e.execute(i, seq, orders[seq]); err != nil {
			return err
		}
	}

	e.setPhase(PhaseCheckExits, i)
	e.checkExits(i, bar)

	e.metrics.RecordBar()
	return nil
}

func (e *Engine) state(i int) *strategy.State {
	positions := make(map[string]domain.Position, len(e.positions))
	for sym, p := range e.positions {
		positions[sym] = p
	}
	return &strategy.State{
		BarIndex:    i,
		TimestampNs: e.clock.TimestampNs(),
		Capital:     e.capital,
		Positions:   positions,
	}
}

// execute matches one strategy order. Orders without a book are dropped.
func (e *Engine) execute(barIndex, seq int, order domain.SimulatedOrder) error {
	e.metrics.RecordOrder()
	if order.OrderID == "" {
		order.OrderID = idhash.ComputeOrderID(e.source.ID(), order.Symbol, barIndex, seq)
	}
	if order.TimestampNs == 0 {
		order.TimestampNs = e.clock.TimestampNs()
	}
	if err := order.Validate(); err != nil {
		e.metrics.RecordStrategyFailure()
		return fmt.Errorf("%w: bar %d order %d: %w", ErrStrategyFailed, barIndex, seq, err)
	}

	book, ok := e.books[order.Symbol]
	if !ok || !book.Valid() {
		e.drop(order, dropNoBook)
		return nil
	}

	if order.ReduceOnly {
		held := e.positions[order.Symbol]
		exposure := held.Signed()
		if exposure == 0 || (exposure > 0) == (order.Side == domain.SideBuy) {
			e.drop(order, dropReduceOnly)
			return nil
		}
		if abs := absFloat(exposure); order.Quantity > abs {
			order.Quantity = abs
		}
	}

	for _, f := range e.model.Match(&order, book) {
		e.applyFill(f, domain.ReasonSignal)
	}
	return nil
}

func (e *Engine) drop(order domain.SimulatedOrder, reason string) {
	e.dropped++
	e.metrics.RecordDroppedOrder(reason)
	e.logger.Debug("order dropped",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("reason", reason),
	)
}

// applyFill folds one fill into the ledger, capital and trade list.
// A flipping fill yields an EXIT then an ENTRY trade; commission is split
// between them by quantity.
func (e *Engine) applyFill(f domain.SimulatedFill, exitReason string) {
	prev := e.positions[f.Symbol]
	res := position.ApplyFill(prev.Signed(), prev.AvgPrice, f)
	step := res.Steps[0]

	e.capital += res.RealizedPnL - f.Commission
	e.fills = append(e.fills, f)
	e.metrics.RecordFill(f.Liquidity)

	if step.ClosedQty > 0 {
		commission := f.Commission * step.ClosedQty / f.Quantity
		net := step.Realized - commission
		returnPct := 0.0
		if basis := step.EntryPrice * step.ClosedQty; basis > 0 {
			returnPct = net / basis * 100
		}
		e.addTrade(domain.Trade{
			FillID:      f.FillID,
			Symbol:      f.Symbol,
			Kind:        domain.TradeKindExit,
			Side:        f.Side,
			Quantity:    step.ClosedQty,
			Price:       f.Price,
			EntryPrice:  step.EntryPrice,
			Commission:  commission,
			PnL:         step.Realized,
			NetPnL:      net,
			ReturnPct:   returnPct,
			Reason:      exitReason,
			TimestampNs: f.TimestampNs,
		})
	}
	if step.OpenedQty > 0 {
		e.addTrade(domain.Trade{
			FillID:      f.FillID,
			Symbol:      f.Symbol,
			Kind:        domain.TradeKindEntry,
			Side:        f.Side,
			Quantity:    step.OpenedQty,
			Price:       f.Price,
			Commission:  f.Commission * step.OpenedQty / f.Quantity,
			Reason:      domain.ReasonSignal,
			TimestampNs: f.TimestampNs,
		})
	}

	openedAt := prev.OpenedAtNs
	if step.Kind == position.StepOpen || step.Kind == position.StepFlip {
		openedAt = f.TimestampNs
	}
	next := domain.PositionFromSigned(f.Symbol, res.Quantity, res.AvgPrice, openedAt)
	if next.IsFlat() {
		delete(e.positions, f.Symbol)
		return
	}
	e.positions[f.Symbol] = next
}

func (e *Engine) addTrade(t domain.Trade) {
	t.RunID = e.runID
	t.StrategyID = e.StrategyID()
	t.TradeID = idhash.ComputeTradeID(e.runID, t.FillID, t.Kind)
	e.trades = append(e.trades, t)
	e.metrics.RecordTrade(t.Kind, t.Reason)
}

// checkExits closes the bar symbol's position when it breaches the
// configured stop-loss or take-profit against the bar close.
func (e *Engine) checkExits(barIndex int, bar *domain.Bar) {
	pos, ok := e.positions[bar.Symbol]
	if !ok {
		return
	}
	risk := e.strat.Risk
	pct := pos.UnrealizedPct(bar.Close)
	switch {
	case risk.StopLossPct > 0 && pct <= -risk.StopLossPct:
		e.closePosition(pos, bar.Close, domain.ReasonStopLoss, barIndex)
	case risk.TakeProfitPct > 0 && pct >= risk.TakeProfitPct:
		e.closePosition(pos, bar.Close, domain.ReasonTakeProfit, barIndex)
	}
}

// closeAll closes every open position at its symbol's last close, in symbol order.
func (e *Engine) closeAll(reason string, barIndex int) {
	for _, pos := range e.openPositions() {
		e.closePosition(pos, e.lastClose[pos.Symbol], reason, barIndex)
	}
}

func (e *Engine) closePosition(pos domain.Position, price float64, reason string, barIndex int) {
	side := domain.SideSell
	if pos.Side == domain.PositionShort {
		side = domain.SideBuy
	}
	order := domain.SimulatedOrder{
		OrderID:     idhash.ComputeOrderID(e.source.ID()+"/"+reason, pos.Symbol, barIndex, 0),
		Symbol:      pos.Symbol,
		Side:        side,
		Type:        domain.OrderTypeMarket,
		Quantity:    pos.Quantity,
		TimeInForce: domain.TimeInForceGTC,
		ReduceOnly:  true,
		TimestampNs: e.clock.TimestampNs(),
	}
	e.applyFill(e.model.Settle(&order, price, order.TimestampNs), reason)
}

// openPositions returns open positions sorted by symbol.
func (e *Engine) openPositions() []domain.Position {
	symbols := make([]string, 0, len(e.positions))
	for sym := range e.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]domain.Position, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, e.positions[sym])
	}
	return out
}

// markToMarket returns capital plus unrealized PnL at the last closes.
func (e *Engine) markToMarket() float64 {
	equity := e.capital
	for _, pos := range e.openPositions() {
		mark, ok := e.lastClose[pos.Symbol]
		if !ok {
			continue
		}
		equity += (mark - pos.AvgPrice) * pos.Signed()
	}
	return equity
}

func (e *Engine) setPhase(p Phase, barIndex int) {
	e.phase = p
	if e.observer != nil {
		e.observer(p, barIndex)
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
