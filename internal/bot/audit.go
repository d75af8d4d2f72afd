package bot

import (
	"fmt"
	"time"

	"arbengine/internal/models"
)

// AuditLine is the canonical per-trade audit record the Trade
// Coordinator builds once a trade finalizes.
type AuditLine struct {
	Trace     string
	Timestamp time.Time
	Reason    models.ReasonTag
	Direction models.Direction
	Qty       float64

	SignalSpread float64
	FilledSpread float64

	InvBeforeV1, InvBeforeV2 float64
	InvAfterV1, InvAfterV2   float64

	OBPriceV1, OBPriceV2     float64
	ExecPriceV1, ExecPriceV2 float64
	FillPriceV1, FillPriceV2 float64

	LatencyV1, LatencyV2 *float64

	SlippageV1, SlippageV2 float64
}

// BuildAudit assembles the audit line for a finalizing trade. fillV1/
// fillV2 are the account-reported fill prices; invAfterV1/invAfterV2 are
// the post-fill inventory quantities.
func BuildAudit(tc models.TradeContext, fillV1, fillV2 float64, latV1, latV2 *float64, invAfterV1, invAfterV2 float64) AuditLine {
	line := AuditLine{
		Trace:        tc.Trace.String(),
		Timestamp:    time.Now(),
		Reason:       tc.Reason,
		Direction:    tc.Direction,
		Qty:          tc.ExpectedQty,
		SignalSpread: tc.SpreadSignal,
		InvBeforeV1:  tc.InvBeforeV1,
		InvBeforeV2:  tc.InvBeforeV2,
		InvAfterV1:   invAfterV1,
		InvAfterV2:   invAfterV2,
		OBPriceV1:    tc.OBPriceV1,
		OBPriceV2:    tc.OBPriceV2,
		ExecPriceV1:  tc.ExecPriceV1,
		ExecPriceV2:  tc.ExecPriceV2,
		FillPriceV1:  fillV1,
		FillPriceV2:  fillV2,
		LatencyV1:    latV1,
		LatencyV2:    latV2,
	}

	longIsV1 := tc.Reason == models.ReasonTT12 || tc.Reason == models.ReasonWarmup12
	if longIsV1 {
		line.FilledSpread = pctValue(fillV2-fillV1, fillV1)
		line.SlippageV1 = pctValue(fillV1-tc.OBPriceV1, tc.OBPriceV1)
		line.SlippageV2 = pctValue(tc.OBPriceV2-fillV2, tc.OBPriceV2)
	} else {
		line.FilledSpread = pctValue(fillV1-fillV2, fillV2)
		line.SlippageV1 = pctValue(tc.OBPriceV1-fillV1, tc.OBPriceV1)
		line.SlippageV2 = pctValue(fillV2-tc.OBPriceV2, tc.OBPriceV2)
	}

	return line
}

func pctValue(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator * 100
}

// String renders a one-line human-readable summary, used as the audit
// field of the engine's "trade finalized" log line.
func (a AuditLine) String() string {
	return fmt.Sprintf(
		"trace=%s reason=%s dir=%s qty=%.8f signal=%.4f%% filled=%.4f%% inv_before=(%.6f,%.6f) inv_after=(%.6f,%.6f) slip=(%.4f%%,%.4f%%)",
		a.Trace, a.Reason, a.Direction, a.Qty, a.SignalSpread, a.FilledSpread,
		a.InvBeforeV1, a.InvBeforeV2, a.InvAfterV1, a.InvAfterV2, a.SlippageV1, a.SlippageV2,
	)
}
