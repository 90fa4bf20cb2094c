package health

import "context"

// ReadinessCheck is implemented by dependencies that can report whether
// they are able to serve traffic.
type ReadinessCheck interface {
	IsReady(ctx context.Context) error
	Name() string
}
