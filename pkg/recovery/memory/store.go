package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/multihubswap/engine/pkg/database/query"
	"github.com/multihubswap/engine/pkg/pointer"
	"github.com/multihubswap/engine/pkg/recovery"
)

type ById []*recovery.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.RWMutex
	records []*recovery.Record
	last    uint64
}

func New() recovery.Store {
	return &store{}
}

func (s *store) Save(_ context.Context, data *recovery.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	if item := s.find(data); item != nil {
		if item.Version != data.Version {
			return recovery.ErrStaleVersion
		}

		data.Version++

		item.DebitedDelta = pointer.Uint64Copy(data.DebitedDelta)
		item.TransactionSignature = pointer.StringCopy(data.TransactionSignature)
		item.RefundSignature = pointer.StringCopy(data.RefundSignature)
		item.State = data.State
		item.Version = data.Version
	} else {
		if data.Id == 0 {
			data.Id = s.last
		}
		if data.CreatedAt.IsZero() {
			data.CreatedAt = time.Now()
		}
		data.Version++

		c := data.Clone()
		s.records = append(s.records, &c)
	}

	return nil
}

func (s *store) GetByAttemptId(_ context.Context, attemptId string) (*recovery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.findByAttemptId(attemptId)
	if item == nil {
		return nil, recovery.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetAllByWalletAndState(_ context.Context, wallet string, state recovery.State) ([]*recovery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.findByWallet(wallet)
	items = s.filterByState(items, state)

	if len(items) == 0 {
		return nil, recovery.ErrNotFound
	}
	return cloneRecords(items), nil
}

func (s *store) GetAllByState(_ context.Context, state recovery.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*recovery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if items := s.findByState(state); len(items) > 0 {
		res := s.filter(items, cursor, limit, direction)

		if len(res) == 0 {
			return nil, recovery.ErrNotFound
		}

		return cloneRecords(res), nil
	}

	return nil, recovery.ErrNotFound
}

func (s *store) CountByState(_ context.Context, state recovery.State) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.findByState(state))), nil
}

func (s *store) find(data *recovery.Record) *recovery.Record {
	for _, item := range s.records {
		if item.Id == data.Id {
			return item
		}
		if item.AttemptId == data.AttemptId {
			return item
		}
	}
	return nil
}

func (s *store) findByAttemptId(attemptId string) *recovery.Record {
	for _, item := range s.records {
		if item.AttemptId == attemptId {
			return item
		}
	}
	return nil
}

func (s *store) findByWallet(wallet string) []*recovery.Record {
	var res []*recovery.Record
	for _, item := range s.records {
		if item.Wallet == wallet {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) findByState(state recovery.State) []*recovery.Record {
	var res []*recovery.Record
	for _, item := range s.records {
		if item.State == state {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*recovery.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*recovery.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*recovery.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) filterByState(items []*recovery.Record, state recovery.State) []*recovery.Record {
	var res []*recovery.Record
	for _, item := range items {
		if item.State == state {
			res = append(res, item)
		}
	}
	return res
}

func cloneRecords(items []*recovery.Record) []*recovery.Record {
	var res []*recovery.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
