package promo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
)

// Service validates promo codes against a Source, caching usable codes
type Service struct {
	log    *logrus.Entry
	source Source
	cache  *Cache
	now    func() time.Time
}

func NewService(source Source, cache *Cache) *Service {
	return &Service{
		log:    logrus.StandardLogger().WithField("type", "factory/promo"),
		source: source,
		cache:  cache,
		now:    time.Now,
	}
}

// Validate returns the usable promo code matching code. An empty code yields
// no promo and no error.
func (s *Service) Validate(ctx context.Context, code string) (*promodata.Record, error) {
	normalized := Normalize(code)
	if len(normalized) == 0 {
		return nil, nil
	}

	log := s.log.WithField("code", normalized)

	if cached, ok := s.cache.Get(normalized); ok {
		if cached.IsUsable(s.now()) {
			return cached, nil
		}
		s.cache.Invalidate(normalized)
	}

	record, err := s.source.GetUsable(ctx, normalized)
	if errors.Is(err, promodata.ErrPromoNotFound) {
		log.Debug("promo code is invalid")
		return nil, ErrInvalidPromoCode
	} else if err != nil {
		log.WithError(err).Warn("failure getting promo code")
		return nil, errors.Wrap(err, "error getting promo code")
	}

	if !record.IsUsable(s.now()) {
		return nil, ErrInvalidPromoCode
	}

	s.cache.Put(record)
	return record, nil
}

// MarkUsed records one use of code and drops it from the cache so the next
// validation observes the new uses count
func (s *Service) MarkUsed(ctx context.Context, code string) (*uint64, error) {
	normalized := Normalize(code)
	if len(normalized) == 0 {
		return nil, ErrInvalidPromoCode
	}

	defer s.cache.Invalidate(normalized)

	remaining, err := s.source.MarkUsed(ctx, normalized)
	if err != nil {
		return nil, errors.Wrapf(err, "error marking promo code %s as used", normalized)
	}
	return remaining, nil
}

// Refresh reloads every usable code into the cache
func (s *Service) Refresh(ctx context.Context) error {
	records, err := s.source.GetAllUsable(ctx)
	if err != nil {
		return errors.Wrap(err, "error getting usable promo codes")
	}

	s.cache.Clear()
	for _, record := range records {
		s.cache.Put(record)
	}

	s.log.WithField("count", len(records)).Debug("refreshed promo code cache")
	return nil
}

// StoreSource adapts a promo store to a Source
type StoreSource struct {
	store promodata.Store
	now   func() time.Time
}

func NewStoreSource(store promodata.Store) *StoreSource {
	return &StoreSource{
		store: store,
		now:   time.Now,
	}
}

// GetUsable implements Source.GetUsable
func (s *StoreSource) GetUsable(ctx context.Context, code string) (*promodata.Record, error) {
	record, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !record.IsUsable(s.now()) {
		return nil, promodata.ErrPromoNotFound
	}
	return record, nil
}

// GetAllUsable implements Source.GetAllUsable
func (s *StoreSource) GetAllUsable(ctx context.Context) ([]*promodata.Record, error) {
	return s.store.GetAllUsable(ctx, s.now())
}

// MarkUsed implements Source.MarkUsed
func (s *StoreSource) MarkUsed(ctx context.Context, code string) (*uint64, error) {
	record, err := s.store.IncrementUses(ctx, code, s.now())
	if err != nil {
		return nil, err
	}
	return record.RemainingUses(), nil
}
