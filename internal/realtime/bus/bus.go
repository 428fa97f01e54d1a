package bus

import (
	"context"

	"github.com/yungbote/routineflow-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, evt realtime.Event) error
	Subscribe(ctx context.Context, onEvent func(evt realtime.Event)) error
	Close() error
}

type noopBus struct{}

// NewNoop is used when REDIS_ADDR is unset.
func NewNoop() Bus { return noopBus{} }

func (noopBus) Publish(context.Context, realtime.Event) error { return nil }

func (noopBus) Subscribe(context.Context, func(realtime.Event)) error { return nil }

func (noopBus) Close() error { return nil }
