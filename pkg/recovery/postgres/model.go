package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/multihubswap/engine/pkg/database/postgres"
	q "github.com/multihubswap/engine/pkg/database/query"
	"github.com/multihubswap/engine/pkg/pointer"
	"github.com/multihubswap/engine/pkg/recovery"
)

const (
	tableName = "multihub__core_recovery"
)

type model struct {
	Id                   sql.NullInt64  `db:"id"`
	AttemptId            string         `db:"attempt_id"`
	Wallet               string         `db:"wallet"`
	ResourceIn           string         `db:"resource_in"`
	ResourceOut          string         `db:"resource_out"`
	Amount               uint64         `db:"amount"`
	MinimumCredit        uint64         `db:"minimum_credit"`
	PreBalanceIn         uint64         `db:"pre_balance_in"`
	PreBalanceOut        uint64         `db:"pre_balance_out"`
	DebitedDelta         sql.NullInt64  `db:"debited_delta"`
	TransactionSignature sql.NullString `db:"transaction_signature"`
	RefundSignature      sql.NullString `db:"refund_signature"`
	State                uint8          `db:"state"`
	Version              uint64         `db:"version"`
	CreatedAt            time.Time      `db:"created_at"`
}

func toModel(obj *recovery.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}

	var debitedDelta sql.NullInt64
	if obj.DebitedDelta != nil {
		debitedDelta = sql.NullInt64{Int64: int64(*obj.DebitedDelta), Valid: true}
	}

	return &model{
		Id:                   sql.NullInt64{Int64: int64(obj.Id), Valid: true},
		AttemptId:            obj.AttemptId,
		Wallet:               obj.Wallet,
		ResourceIn:           obj.ResourceIn,
		ResourceOut:          obj.ResourceOut,
		Amount:               obj.Amount,
		MinimumCredit:        obj.MinimumCredit,
		PreBalanceIn:         obj.PreBalanceIn,
		PreBalanceOut:        obj.PreBalanceOut,
		DebitedDelta:         debitedDelta,
		TransactionSignature: sql.NullString{String: *pointer.StringOrDefault(obj.TransactionSignature, ""), Valid: obj.TransactionSignature != nil},
		RefundSignature:      sql.NullString{String: *pointer.StringOrDefault(obj.RefundSignature, ""), Valid: obj.RefundSignature != nil},
		State:                uint8(obj.State),
		Version:              obj.Version,
		CreatedAt:            obj.CreatedAt,
	}, nil
}

func fromModel(m *model) *recovery.Record {
	var debitedDelta *uint64
	if m.DebitedDelta.Valid {
		value := uint64(m.DebitedDelta.Int64)
		debitedDelta = &value
	}

	return &recovery.Record{
		Id:                   uint64(m.Id.Int64),
		AttemptId:            m.AttemptId,
		Wallet:               m.Wallet,
		ResourceIn:           m.ResourceIn,
		ResourceOut:          m.ResourceOut,
		Amount:               m.Amount,
		MinimumCredit:        m.MinimumCredit,
		PreBalanceIn:         m.PreBalanceIn,
		PreBalanceOut:        m.PreBalanceOut,
		DebitedDelta:         debitedDelta,
		TransactionSignature: pointer.StringIfValid(m.TransactionSignature.Valid, m.TransactionSignature.String),
		RefundSignature:      pointer.StringIfValid(m.RefundSignature.Valid, m.RefundSignature.String),
		State:                recovery.State(m.State),
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(attempt_id, wallet, resource_in, resource_out, amount, minimum_credit, pre_balance_in, pre_balance_out, debited_delta, transaction_signature, refund_signature, state, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13 + 1, $14)

			ON CONFLICT (attempt_id)
			DO UPDATE
				SET debited_delta = $9, transaction_signature = $10, refund_signature = $11, state = $12, version = ` + tableName + `.version + 1
				WHERE ` + tableName + `.attempt_id = $1 AND ` + tableName + `.version = $13

			RETURNING
				id, attempt_id, wallet, resource_in, resource_out, amount, minimum_credit, pre_balance_in, pre_balance_out, debited_delta, transaction_signature, refund_signature, state, version, created_at`

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.AttemptId,
			m.Wallet,
			m.ResourceIn,
			m.ResourceOut,
			m.Amount,
			m.MinimumCredit,
			m.PreBalanceIn,
			m.PreBalanceOut,
			m.DebitedDelta,
			m.TransactionSignature,
			m.RefundSignature,
			m.State,
			m.Version,
			m.CreatedAt,
		).StructScan(m)
		if err != nil {
			return pgutil.CheckNoRows(err, recovery.ErrStaleVersion)
		}
		return nil
	})
}

func dbGetByAttemptId(ctx context.Context, db *sqlx.DB, attemptId string) (*model, error) {
	res := &model{}

	query := `SELECT id, attempt_id, wallet, resource_in, resource_out, amount, minimum_credit, pre_balance_in, pre_balance_out, debited_delta, transaction_signature, refund_signature, state, version, created_at
		FROM ` + tableName + `
		WHERE attempt_id = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, attemptId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, recovery.ErrNotFound)
	}
	return res, nil
}

func dbGetAllByWalletAndState(ctx context.Context, db *sqlx.DB, wallet string, state recovery.State) ([]*model, error) {
	res := []*model{}

	query := `SELECT id, attempt_id, wallet, resource_in, resource_out, amount, minimum_credit, pre_balance_in, pre_balance_out, debited_delta, transaction_signature, refund_signature, state, version, created_at
		FROM ` + tableName + `
		WHERE wallet = $1 AND state = $2`

	err := db.SelectContext(ctx, &res, query, wallet, state)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, recovery.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, recovery.ErrNotFound
	}

	return res, nil
}

func dbGetAllByState(ctx context.Context, db *sqlx.DB, state recovery.State, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT
		id, attempt_id, wallet, resource_in, resource_out, amount, minimum_credit, pre_balance_in, pre_balance_out, debited_delta, transaction_signature, refund_signature, state, version, created_at
		FROM ` + tableName + `
		WHERE state = $1`

	opts := []interface{}{state}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, recovery.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, recovery.ErrNotFound
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state recovery.State) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE state = $1`

	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}
	return res, nil
}
