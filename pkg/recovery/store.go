package recovery

import (
	"context"
	"errors"

	"github.com/multihubswap/engine/pkg/database/query"
)

var (
	ErrNotFound     = errors.New("recovery record not found")
	ErrStaleVersion = errors.New("recovery record version is stale")
)

type Store interface {
	// Save creates or updates a recovery record
	Save(ctx context.Context, record *Record) error

	// GetByAttemptId gets a recovery record by attempt ID
	GetByAttemptId(ctx context.Context, attemptId string) (*Record, error)

	// GetAllByWalletAndState gets all recovery records for a wallet in a state
	GetAllByWalletAndState(ctx context.Context, wallet string, state State) ([]*Record, error)

	// GetAllByState gets all recovery records by state
	GetAllByState(ctx context.Context, state State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByState returns the count of recovery records in the requested state
	CountByState(ctx context.Context, state State) (uint64, error)
}
