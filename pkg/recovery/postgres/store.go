package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/multihubswap/engine/pkg/database/query"
	"github.com/multihubswap/engine/pkg/recovery"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) recovery.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

func (s *store) Save(ctx context.Context, record *recovery.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

func (s *store) GetByAttemptId(ctx context.Context, attemptId string) (*recovery.Record, error) {
	obj, err := dbGetByAttemptId(ctx, s.db, attemptId)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

func (s *store) GetAllByWalletAndState(ctx context.Context, wallet string, state recovery.State) ([]*recovery.Record, error) {
	models, err := dbGetAllByWalletAndState(ctx, s.db, wallet, state)
	if err != nil {
		return nil, err
	}

	records := make([]*recovery.Record, len(models))
	for i, model := range models {
		records[i] = fromModel(model)
	}
	return records, nil
}

func (s *store) GetAllByState(ctx context.Context, state recovery.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*recovery.Record, error) {
	models, err := dbGetAllByState(ctx, s.db, state, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*recovery.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

func (s *store) CountByState(ctx context.Context, state recovery.State) (uint64, error) {
	return dbCountByState(ctx, s.db, state)
}
