package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"arbengine/internal/models"
	"arbengine/pkg/ratelimit"
	"arbengine/pkg/utils"
)

// json is the fast drop-in codec used on the hot order-book tick path,
// matching the wider example pack's preference for json-iterator over
// encoding/json where throughput matters.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReferenceAdapterConfig wires a ReferenceAdapter to a venue-agnostic
// WebSocket + REST backend. No real venue's wire format is hard-coded;
// this exists to exercise the AEE end-to-end in tests and to show the
// wire-glue shape a production adapter would fill.
type ReferenceAdapterConfig struct {
	Name             string
	OBStreamURL      string
	AccountStreamURL string
	RESTBaseURL      string
	Metadata         VenueMetadata
	RateLimit        float64 // REST requests/sec
	RateBurst        float64
	Reconnect        WSReconnectConfig
}

// ReferenceAdapter implements VenueAdapter over newline-delimited JSON
// WebSocket frames and a small REST surface.
type ReferenceAdapter struct {
	cfg        ReferenceAdapterConfig
	httpClient *HTTPClient
	limiter    *ratelimit.RateLimiter

	obManager   *WSReconnectManager
	acctManager *WSReconnectManager
}

// NewReferenceAdapter constructs an adapter from cfg. Streams are not
// connected until SubscribeOB/SubscribeAccount are called.
func NewReferenceAdapter(cfg ReferenceAdapterConfig) *ReferenceAdapter {
	if cfg.Reconnect.ConnectTimeout == 0 {
		cfg.Reconnect = DefaultWSReconnectConfig()
	}
	return &ReferenceAdapter{
		cfg:        cfg,
		httpClient: GetGlobalHTTPClient(),
		limiter:    ratelimit.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

func (a *ReferenceAdapter) Name() string {
	return a.cfg.Name
}

func (a *ReferenceAdapter) Metadata() VenueMetadata {
	return a.cfg.Metadata
}

// obFrame is the wire shape of one order-book tick.
type obFrame struct {
	BidPrice float64 `json:"bid_price"`
	BidSize  float64 `json:"bid_size"`
	AskPrice float64 `json:"ask_price"`
	AskSize  float64 `json:"ask_size"`
	TS       int64   `json:"ts"`
}

// SubscribeOB connects the order-book stream and decodes each frame
// with the fast codec before handing it to onUpdate.
func (a *ReferenceAdapter) SubscribeOB(onUpdate func(models.OrderBookTop)) error {
	a.obManager = NewWSReconnectManager(a.cfg.Name+":ob", a.cfg.OBStreamURL, a.cfg.Reconnect)
	a.obManager.SetOnMessage(func(raw []byte) {
		var frame obFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			utils.L().WithExchange(a.cfg.Name).Warn("malformed ob frame", utils.Err(err))
			return
		}
		onUpdate(models.OrderBookTop{
			Bid:      frame.BidPrice,
			Ask:      frame.AskPrice,
			BidSize:  frame.BidSize,
			AskSize:  frame.AskSize,
			UpdateTS: frame.TS,
		})
	})
	return a.obManager.Connect()
}

// accountFrame is the wire shape of one account-stream event; Type
// selects which fields apply: delta_qty/fill_price/latency_ms for a
// "fill" frame, qty/avg_entry for a "position" frame.
type accountFrame struct {
	Type      string   `json:"type"` // "fill" or "position"
	DeltaQty  float64  `json:"delta_qty"`
	FillPrice *float64 `json:"fill_price"`
	LatencyMs *float64 `json:"latency_ms"`
	Qty       float64  `json:"qty"`
	AvgEntry  float64  `json:"avg_entry"`
}

// SubscribeAccount connects the account stream and fans frames out to
// onFill / onPosition by their declared type.
func (a *ReferenceAdapter) SubscribeAccount(onFill OnFillFunc, onPosition OnPositionFunc) error {
	a.acctManager = NewWSReconnectManager(a.cfg.Name+":account", a.cfg.AccountStreamURL, a.cfg.Reconnect)
	a.acctManager.SetOnMessage(func(raw []byte) {
		var frame accountFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			utils.L().WithExchange(a.cfg.Name).Warn("malformed account frame", utils.Err(err))
			return
		}
		switch frame.Type {
		case "fill":
			onFill(frame.DeltaQty, frame.FillPrice, frame.LatencyMs)
		case "position":
			onPosition(frame.Qty, frame.AvgEntry)
		default:
			utils.L().WithExchange(a.cfg.Name).Warn("unknown account frame type", utils.String("type", frame.Type))
		}
	})
	return a.acctManager.Connect()
}

// LoadInitialPosition performs the one-shot REST fetch required before
// account streaming begins.
func (a *ReferenceAdapter) LoadInitialPosition(ctx context.Context) (float64, float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.RESTBaseURL+"/position", nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, 0, &AdapterError{Venue: a.cfg.Name, Message: "load_initial_position request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode >= 400 {
		return 0, 0, &AdapterError{Venue: a.cfg.Name, Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body)}
	}

	var out struct {
		Qty      float64 `json:"qty"`
		AvgEntry float64 `json:"avg_entry"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, 0, err
	}
	return out.Qty, out.AvgEntry, nil
}

type marketOrderRequest struct {
	Side     string  `json:"side"`
	Size     float64 `json:"size"`
	RefPrice float64 `json:"ref_price"`
}

// SendMarket submits an aggressive order. No engine-level timeout or
// retry: a stuck or failed send surfaces to the caller immediately
// rather than being retried underneath it.
func (a *ReferenceAdapter) SendMarket(ctx context.Context, side models.Side, size, refPrice float64) (*SendResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := marketOrderRequest{Side: string(side), Size: size, RefPrice: refPrice}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RESTBaseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &SendResult{Status: "ERROR", Payload: string(body), Resp: err.Error()}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	status := "OK"
	if resp.StatusCode >= 400 {
		status = "ERROR"
	}

	return &SendResult{Status: status, Payload: string(body), Resp: string(respBody)}, nil
}

// Close tears down both streams.
func (a *ReferenceAdapter) Close() {
	if a.obManager != nil {
		a.obManager.Close()
	}
	if a.acctManager != nil {
		a.acctManager.Close()
	}
}

// pollInterval is a position-poll period for the reference adapter.
// Nothing in this package reads it: LoadInitialPosition makes a single
// attempt and is not retried here.
const pollInterval = 2 * time.Second
