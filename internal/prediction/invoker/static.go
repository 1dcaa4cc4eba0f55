package invoker

import (
	"context"
	"sync"

	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
)

// Static returns a fixed output. It stands in for the model in local
// development and tests, and remembers the vectors it was called with.
type Static struct {
	Output string
	Err    error

	mu    sync.Mutex
	calls []features.FeatureVector
}

func (s *Static) Invoke(ctx context.Context, v features.FeatureVector) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, v)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Output, s.Err
}

func (s *Static) Calls() []features.FeatureVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]features.FeatureVector(nil), s.calls...)
}

// Func adapts a plain function to Invoker.
type Func func(ctx context.Context, v features.FeatureVector) (string, error)

func (f Func) Invoke(ctx context.Context, v features.FeatureVector) (string, error) {
	return f(ctx, v)
}
