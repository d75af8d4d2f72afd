package repository

import (
	"database/sql"
	"time"

	"arbengine/internal/models"
)

// TraceRepository is the Data Access Layer for trade traces. Each
// dispatched trade is identified by a 128-bit trace id; the repository
// writes the JSONB trace_records row idempotently (one upsert per
// phase as it completes). The flat decisions/trades/fills tables, kept
// for backward-compatible reads, are written by the separate Insert*Row
// methods; the repository does not copy upserts into them.
type TraceRepository struct {
	db *sql.DB
}

// NewTraceRepository wires a repository to an existing *sql.DB.
func NewTraceRepository(db *sql.DB) *TraceRepository {
	return &TraceRepository{db: db}
}

// UpsertDecision writes the decision phase of a trace: the signal that
// triggered dispatch, the order book snapshots it was computed from,
// and inventory before/after. Safe to call more than once for the same
// (bot_id, trace) — later calls overwrite earlier ones.
func (r *TraceRepository) UpsertDecision(botID, trace string, decisionData, obV1, obV2 []byte) error {
	query := `
		INSERT INTO trace_records (bot_id, trace, decision_data, decision_ob_v1, decision_ob_v2, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bot_id, trace) DO UPDATE SET
			decision_data = EXCLUDED.decision_data,
			decision_ob_v1 = EXCLUDED.decision_ob_v1,
			decision_ob_v2 = EXCLUDED.decision_ob_v2,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.Exec(query, botID, trace, decisionData, obV1, obV2, time.Now())
	return err
}

// UpsertTradeLeg writes the dispatched-order phase for one venue leg of
// a trace. Venue must be models.VenueV1 or models.VenueV2.
func (r *TraceRepository) UpsertTradeLeg(botID, trace string, venue models.Venue, payload []byte) error {
	column, err := tradeColumn(venue)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO trace_records (bot_id, trace, ` + column + `, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bot_id, trace) DO UPDATE SET
			` + column + ` = EXCLUDED.` + column + `,
			updated_at = EXCLUDED.updated_at`
	_, err = r.db.Exec(query, botID, trace, payload, time.Now())
	return err
}

// UpsertFillLeg writes the reconciled-fill phase for one venue leg of a
// trace, the final phase before a trade is considered complete.
func (r *TraceRepository) UpsertFillLeg(botID, trace string, venue models.Venue, payload []byte) error {
	column, err := fillColumn(venue)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO trace_records (bot_id, trace, ` + column + `, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bot_id, trace) DO UPDATE SET
			` + column + ` = EXCLUDED.` + column + `,
			updated_at = EXCLUDED.updated_at`
	_, err = r.db.Exec(query, botID, trace, payload, time.Now())
	return err
}

func tradeColumn(venue models.Venue) (string, error) {
	switch venue {
	case models.VenueV1:
		return "trade_v1", nil
	case models.VenueV2:
		return "trade_v2", nil
	default:
		return "", sql.ErrNoRows
	}
}

func fillColumn(venue models.Venue) (string, error) {
	switch venue {
	case models.VenueV1:
		return "fill_v1", nil
	case models.VenueV2:
		return "fill_v2", nil
	default:
		return "", sql.ErrNoRows
	}
}

// GetByTrace returns the full JSONB row for a trace, or ErrPairNotFound
// (reused here as the generic not-found sentinel) if no row exists.
func (r *TraceRepository) GetByTrace(botID, trace string) (*models.TraceRecord, error) {
	query := `
		SELECT bot_id, trace, bot_configs, decision_data, decision_ob_v1, decision_ob_v2,
			trade_v1, trade_v2, fill_v1, fill_v2, updated_at
		FROM trace_records WHERE bot_id = $1 AND trace = $2`

	rec := &models.TraceRecord{}
	err := r.db.QueryRow(query, botID, trace).Scan(
		&rec.BotID, &rec.Trace, &rec.BotConfigs, &rec.DecisionData, &rec.DecisionOBV1, &rec.DecisionOBV2,
		&rec.TradeV1, &rec.TradeV2, &rec.FillV1, &rec.FillV2, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return rec, nil
}

// InsertDecisionRow appends a row to the flat decisions table, kept for
// backward-compatible reads alongside the JSONB trace_records shape.
func (r *TraceRepository) InsertDecisionRow(d models.DecisionRow) error {
	query := `
		INSERT INTO decisions (trace, ts, bot_name, ob_l, ob_e, inv_before, inv_after, reason, direction, spread_signal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (trace) DO UPDATE SET
			ob_l = EXCLUDED.ob_l,
			ob_e = EXCLUDED.ob_e,
			inv_before = EXCLUDED.inv_before,
			inv_after = EXCLUDED.inv_after,
			reason = EXCLUDED.reason,
			direction = EXCLUDED.direction,
			spread_signal = EXCLUDED.spread_signal,
			ts = EXCLUDED.ts,
			bot_name = EXCLUDED.bot_name`
	_, err := r.db.Exec(query,
		d.Trace, d.TS, d.BotName, d.OBV1, d.OBV2, d.InvBefore, d.InvAfter,
		d.Reason, d.Direction, d.SpreadSignal,
	)
	return err
}

// InsertTradeRow appends a row to the flat trades table, one per
// dispatched leg.
func (r *TraceRepository) InsertTradeRow(t models.TradeRow) error {
	query := `
		INSERT INTO trades (trace, ts, bot_name, venue, size, ob_price, exec_price, lat_order,
			reason, direction, status, payload, resp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.Exec(query,
		t.Trace, t.TS, t.BotName, t.Venue, t.Size, t.OBPrice, t.ExecPrice, t.LatOrder,
		t.Reason, t.Direction, t.Status, t.Payload, t.Resp,
	)
	return err
}

// InsertFillRow appends a row to the flat fills table, one per
// reconciled leg fill.
func (r *TraceRepository) InsertFillRow(f models.FillRow) error {
	query := `
		INSERT INTO fills (trace, ts, bot_name, venue, base_amount, fill_price, latency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(query, f.Trace, f.TS, f.BotName, f.Venue, f.BaseAmount, f.FillPrice, f.Latency)
	return err
}

// FetchRecentDecisions returns the most recent decisions for a bot,
// newest first. /healthz does not read it.
func (r *TraceRepository) FetchRecentDecisions(botName string, limit int) ([]models.DecisionRow, error) {
	query := `
		SELECT trace, ts, bot_name, ob_l, ob_e, inv_before, inv_after, reason, direction, spread_signal
		FROM decisions WHERE bot_name = $1 ORDER BY ts DESC LIMIT $2`
	rows, err := r.db.Query(query, botName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DecisionRow
	for rows.Next() {
		var d models.DecisionRow
		if err := rows.Scan(&d.Trace, &d.TS, &d.BotName, &d.OBV1, &d.OBV2,
			&d.InvBefore, &d.InvAfter, &d.Reason, &d.Direction, &d.SpreadSignal); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
