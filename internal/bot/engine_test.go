package bot

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"arbengine/internal/exchange"
	"arbengine/internal/models"
	"arbengine/internal/repository"
)

// fakeAdapter is a test double implementing exchange.VenueAdapter. Its
// callbacks are invoked directly by the test, bypassing any real
// transport, to drive the Trade Coordinator's event loop deterministically.
type fakeAdapter struct {
	venue      models.Venue
	meta       exchange.VenueMetadata
	initQty    float64
	initEntry  float64
	onFill     exchange.OnFillFunc
	onPosition exchange.OnPositionFunc
	sent       []sentOrder
}

type sentOrder struct {
	side     models.Side
	size     float64
	refPrice float64
}

func (f *fakeAdapter) Name() string                                  { return string(f.venue) }
func (f *fakeAdapter) SubscribeOB(func(models.OrderBookTop)) error    { return nil }
func (f *fakeAdapter) Metadata() exchange.VenueMetadata               { return f.meta }
func (f *fakeAdapter) LoadInitialPosition(ctx context.Context) (float64, float64, error) {
	return f.initQty, f.initEntry, nil
}

func (f *fakeAdapter) SubscribeAccount(onFill exchange.OnFillFunc, onPosition exchange.OnPositionFunc) error {
	f.onFill = onFill
	f.onPosition = onPosition
	return nil
}

func (f *fakeAdapter) SendMarket(ctx context.Context, side models.Side, size, refPrice float64) (*exchange.SendResult, error) {
	f.sent = append(f.sent, sentOrder{side: side, size: size, refPrice: refPrice})
	return &exchange.SendResult{Status: "OK", Payload: "{}", Resp: "{}"}, nil
}

func newTestRepo(t *testing.T) (*repository.TraceRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)
	mock.ExpectExec(regexp.MustCompile(`.*`)).WillReturnResult(sqlmock.NewResult(1, 1))
	return repository.NewTraceRepository(db), mock
}

// TestEngineFillReconciliationClosesTrade drives S5: once both legs'
// account deltas arrive, the engine walks PENDING_FILLS -> FINALIZING ->
// IDLE and clears the in-flight trade.
func TestEngineFillReconciliationClosesTrade(t *testing.T) {
	trace, mock := newTestRepo(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 20; i++ {
		mock.ExpectExec(regexp.MustCompile(`.*`)).WillReturnResult(sqlmock.NewResult(1, 1))
	}

	v1 := &fakeAdapter{venue: models.VenueV1, meta: exchange.VenueMetadata{MinSize: 0.001, SizeStep: 0.001}}
	v2 := &fakeAdapter{venue: models.VenueV2, meta: exchange.VenueMetadata{MinSize: 0.001, SizeStep: 0.001}}

	cfg := models.PairConfig{
		MinSpread: 0.40, SpreadTP: 0.20, MinHits: 1, MaxOfOB: 0.30,
	}
	engine := NewEngine(cfg, v1, v2, trace, EngineConfig{TickInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.Run(ctx)
	time.Sleep(20 * time.Millisecond) // let Run subscribe and seed position

	// Both account streams must speak once before the readiness gate opens.
	engine.bus <- Event{Kind: EventPosition, Venue: models.VenueV1, PositionQty: 0, PositionEntry: 0}
	engine.bus <- Event{Kind: EventPosition, Venue: models.VenueV2, PositionQty: 0, PositionEntry: 0}
	time.Sleep(10 * time.Millisecond)

	engine.bus <- Event{Kind: EventOB, Venue: models.VenueV1, OB: models.OrderBookTop{Bid: 100.0, Ask: 100.1, AskSize: 0.5, BidSize: 0.5}}
	time.Sleep(10 * time.Millisecond)
	engine.bus <- Event{Kind: EventOB, Venue: models.VenueV2, OB: models.OrderBookTop{Bid: 100.6, Ask: 100.7, AskSize: 0.4, BidSize: 0.4}}
	time.Sleep(30 * time.Millisecond)

	if engine.state.TradeState != models.TradePendingFills {
		t.Fatalf("expected PENDING_FILLS after dispatch, got %v", engine.state.TradeState)
	}
	if engine.state.Pending == nil {
		t.Fatal("expected pending legs to be set after dispatch")
	}

	price := 100.140
	engine.bus <- Event{Kind: EventFill, Venue: models.VenueV1, FillDelta: 0.120, FillPrice: &price}
	time.Sleep(10 * time.Millisecond)
	price2 := 100.576
	engine.bus <- Event{Kind: EventFill, Venue: models.VenueV2, FillDelta: -0.120, FillPrice: &price2}
	time.Sleep(30 * time.Millisecond)

	if engine.state.TradeState != models.TradeIdle {
		t.Fatalf("expected IDLE after both legs reconcile, got %v", engine.state.TradeState)
	}
	if engine.state.Pending != nil {
		t.Fatal("expected pending legs cleared after finalize")
	}
	if engine.state.V1.InvQty != 0.120 || engine.state.V2.InvQty != -0.120 {
		t.Fatalf("expected inventory updated from fills, got v1=%v v2=%v", engine.state.V1.InvQty, engine.state.V2.InvQty)
	}
}

// TestEngineOversizedFillClamp drives S6: an account delta larger than
// the remaining pending quantity is clamped rather than overshooting.
func TestEngineOversizedFillClamp(t *testing.T) {
	trace, mock := newTestRepo(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 20; i++ {
		mock.ExpectExec(regexp.MustCompile(`.*`)).WillReturnResult(sqlmock.NewResult(1, 1))
	}

	v1 := &fakeAdapter{venue: models.VenueV1, meta: exchange.VenueMetadata{MinSize: 0.001, SizeStep: 0.001}}
	v2 := &fakeAdapter{venue: models.VenueV2, meta: exchange.VenueMetadata{MinSize: 0.001, SizeStep: 0.001}}

	cfg := models.PairConfig{MinSpread: 0.40, SpreadTP: 0.20, MinHits: 1, MaxOfOB: 0.30}
	engine := NewEngine(cfg, v1, v2, trace, EngineConfig{TickInterval: time.Hour})

	// Directly seed a pending trade to isolate the clamp path.
	engine.state.HedgeSeeded, engine.state.StreamsReady, engine.state.PositionSeeded = true, true, true
	engine.state.AccountStreamV1Ready, engine.state.AccountStreamV2Ready = true, true
	engine.state.TradeState = models.TradePendingFills
	tc := models.NewTradeContext()
	tc.ExpectedQty = 0.120
	engine.state.Trade = &tc
	engine.state.Pending = &models.PendingLegs{V1Remaining: 0.120, V2Remaining: -0.120}

	oversized := 0.240
	engine.handleFill(Event{Kind: EventFill, Venue: models.VenueV1, FillDelta: oversized})

	if engine.state.Pending.V1Remaining != 0 {
		t.Fatalf("expected clamp to satisfy v1 leg exactly, remaining=%v", engine.state.Pending.V1Remaining)
	}
}
