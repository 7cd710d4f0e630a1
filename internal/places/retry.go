package places

import (
	"context"
	"net/http"
)

type retryGateKey struct{}

// WithRetryGate makes calls made with ctx consult gate before each transport
// retry. A gate error stops the call and is returned from it, wrapped.
func WithRetryGate(ctx context.Context, gate func() error) context.Context {
	return context.WithValue(ctx, retryGateKey{}, gate)
}

func prepareRetry(req *http.Request) error {
	if gate, ok := req.Context().Value(retryGateKey{}).(func() error); ok && gate != nil {
		return gate()
	}
	return nil
}
