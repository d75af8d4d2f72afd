package repository

import (
	"database/sql"
	"errors"
	"time"

	"arbengine/internal/models"
)

// ErrPairNotFound is returned when a lookup by id matches no row.
var ErrPairNotFound = errors.New("pair not found")

// PairRepository is the Data Access Layer for the pairs table: the
// persisted form of the startup pair document: pair identity, thresholds
// and status. It stores no trade counters.
type PairRepository struct {
	db *sql.DB
}

// NewPairRepository wires a repository to an existing *sql.DB.
func NewPairRepository(db *sql.DB) *PairRepository {
	return &PairRepository{db: db}
}

const pairColumns = `id, sym_v1, sym_v2, venue1, venue2, min_spread, spread_tp, min_hits,
	max_position_value, max_trade_value, max_of_ob, max_trades, dedup_ob, warm_up_orders,
	slippage, status, created_at, updated_at`

// Create inserts a new pair row and populates p.ID with the assigned id.
func (r *PairRepository) Create(p *models.PairConfig) error {
	query := `
		INSERT INTO pairs (sym_v1, sym_v2, venue1, venue2, min_spread, spread_tp, min_hits,
			max_position_value, max_trade_value, max_of_ob, max_trades, dedup_ob, warm_up_orders,
			slippage, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PairStatusActive
	}

	return r.db.QueryRow(
		query,
		p.SymV1, p.SymV2, p.Venue1, p.Venue2, p.MinSpread, p.SpreadTP, p.MinHits,
		p.MaxPositionValue, p.MaxTradeValue, p.MaxOfOB, p.MaxTrades, p.DedupOB, p.WarmUpOrders,
		p.Slippage, p.Status, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

// GetByID returns the pair with the given id, or ErrPairNotFound.
func (r *PairRepository) GetByID(id int) (*models.PairConfig, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs WHERE id = $1`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetAll returns every configured pair, ordered by id.
func (r *PairRepository) GetAll() ([]*models.PairConfig, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs ORDER BY id`
	return r.scanMany(query)
}

// GetActive returns pairs whose status is "active". cmd/server starts
// its AEE instances from the JSON pair document, not from this query.
func (r *PairRepository) GetActive() ([]*models.PairConfig, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs WHERE status = $1 ORDER BY id`
	rows, err := r.db.Query(query, models.PairStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

// Update overwrites every mutable field of an existing pair row.
func (r *PairRepository) Update(p *models.PairConfig) error {
	query := `
		UPDATE pairs SET
			sym_v1 = $1, sym_v2 = $2, venue1 = $3, venue2 = $4,
			min_spread = $5, spread_tp = $6, min_hits = $7,
			max_position_value = $8, max_trade_value = $9, max_of_ob = $10,
			max_trades = $11, dedup_ob = $12, warm_up_orders = $13,
			slippage = $14, status = $15, updated_at = $16
		WHERE id = $17`

	p.UpdatedAt = time.Now()
	result, err := r.db.Exec(query,
		p.SymV1, p.SymV2, p.Venue1, p.Venue2, p.MinSpread, p.SpreadTP, p.MinHits,
		p.MaxPositionValue, p.MaxTradeValue, p.MaxOfOB, p.MaxTrades, p.DedupOB, p.WarmUpOrders,
		p.Slippage, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result)
}

// UpdateStatus flips a pair between active and paused.
func (r *PairRepository) UpdateStatus(id int, status string) error {
	query := `UPDATE pairs SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result)
}

// Delete removes a pair row.
func (r *PairRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM pairs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result)
}

func checkRowsAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPairNotFound
	}
	return nil
}

func (r *PairRepository) scanOne(row *sql.Row) (*models.PairConfig, error) {
	p := &models.PairConfig{}
	err := row.Scan(
		&p.ID, &p.SymV1, &p.SymV2, &p.Venue1, &p.Venue2,
		&p.MinSpread, &p.SpreadTP, &p.MinHits,
		&p.MaxPositionValue, &p.MaxTradeValue, &p.MaxOfOB, &p.MaxTrades,
		&p.DedupOB, &p.WarmUpOrders, &p.Slippage, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PairRepository) scanMany(query string, args ...interface{}) ([]*models.PairConfig, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

func (r *PairRepository) scanRows(rows *sql.Rows) ([]*models.PairConfig, error) {
	var pairs []*models.PairConfig
	for rows.Next() {
		p := &models.PairConfig{}
		err := rows.Scan(
			&p.ID, &p.SymV1, &p.SymV2, &p.Venue1, &p.Venue2,
			&p.MinSpread, &p.SpreadTP, &p.MinHits,
			&p.MaxPositionValue, &p.MaxTradeValue, &p.MaxOfOB, &p.MaxTrades,
			&p.DedupOB, &p.WarmUpOrders, &p.Slippage, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}
