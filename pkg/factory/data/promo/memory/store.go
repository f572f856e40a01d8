package memory

import (
	"context"
	"sync"
	"time"

	"github.com/solana-token-factory/factory/pkg/factory/data/promo"
)

type store struct {
	mu      sync.Mutex
	records []*promo.Record
	last    uint64
}

func New() promo.Store {
	return &store{
		records: make([]*promo.Record, 0),
		last:    0,
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make([]*promo.Record, 0)
	s.last = 0
	s.mu.Unlock()
}

// Put implements promo.Store.Put
func (s *store) Put(_ context.Context, data *promo.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data.Code); item != nil {
		return promo.ErrPromoExists
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	c := data.Clone()
	s.records = append(s.records, &c)

	return nil
}

// Get implements promo.Store.Get
func (s *store) Get(_ context.Context, code string) (*promo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(code)
	if item == nil {
		return nil, promo.ErrPromoNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAllUsable implements promo.Store.GetAllUsable
func (s *store) GetAllUsable(_ context.Context, now time.Time) ([]*promo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*promo.Record
	for _, item := range s.records {
		if item.IsUsable(now) {
			cloned := item.Clone()
			res = append(res, &cloned)
		}
	}
	return res, nil
}

// IncrementUses implements promo.Store.IncrementUses
func (s *store) IncrementUses(_ context.Context, code string, now time.Time) (*promo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(code)
	if item == nil {
		return nil, promo.ErrPromoNotFound
	}

	if err := promo.CheckUsable(item, now); err != nil {
		return nil, err
	}

	item.UsesCount++

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) find(code string) *promo.Record {
	for _, item := range s.records {
		if item.Code == code {
			return item
		}
	}
	return nil
}
