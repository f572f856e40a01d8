package retry

import "context"

// Action is a single attempt at an operation.
type Action func() error

// Retrier runs actions under a fixed set of strategies.
type Retrier interface {
	Retry(ctx context.Context, action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier bound to the provided strategies. Without any
// strategies, actions are retried until they succeed or ctx is done.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(ctx context.Context, action Action) (uint, error) {
	return Retry(ctx, action, r.strategies...)
}

// Retry runs action until it succeeds, ctx is done, or a strategy declines
// another attempt. The number of attempts made is always returned, along with
// the error from the last attempt.
//
// Strategies are evaluated in order after each failed attempt, so strategies
// that wait should be listed last.
func Retry(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	for attempts := uint(1); ; attempts++ {
		err := action()
		if err == nil {
			return attempts, nil
		}

		for _, strategy := range strategies {
			if !strategy(ctx, attempts, err) {
				return attempts, err
			}
		}

		if ctx.Err() != nil {
			return attempts, err
		}
	}
}
