package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/solana-token-factory/factory/pkg/factory/data/token"
)

type store struct {
	mu      sync.Mutex
	records []*token.Record
	last    uint64
}

func New() token.Store {
	return &store{
		records: make([]*token.Record, 0),
		last:    0,
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make([]*token.Record, 0)
	s.last = 0
	s.mu.Unlock()
}

// Save implements token.Store.Save
func (s *store) Save(_ context.Context, data *token.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	if item := s.findByMint(data.MintAddress); item != nil {
		data.Id = item.Id
		data.CopyTo(item)
		return nil
	}

	s.last++
	data.Id = s.last
	c := data.Clone()
	s.records = append(s.records, &c)

	return nil
}

// Get implements token.Store.Get
func (s *store) Get(_ context.Context, mint string) (*token.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByMint(mint)
	if item == nil {
		return nil, token.ErrTokenNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetRecent implements token.Store.GetRecent
func (s *store) GetRecent(_ context.Context, limit uint64) ([]*token.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]*token.Record, len(s.records))
	copy(sorted, s.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Id > sorted[j].Id
		}
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if limit > 0 && uint64(len(sorted)) > limit {
		sorted = sorted[:limit]
	}

	res := make([]*token.Record, len(sorted))
	for i, item := range sorted {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res, nil
}

// Count implements token.Store.Count
func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}

func (s *store) findByMint(mint string) *token.Record {
	for _, item := range s.records {
		if item.MintAddress == mint {
			return item
		}
	}
	return nil
}
