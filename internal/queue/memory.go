package queue

import (
	"context"
	"fmt"
)

// MemoryQueue is a channel-backed queue for local runs and tests. Nacking a
// delivery with requeue puts the job back, so redelivery behaves like the
// broker it stands in for.
type MemoryQueue struct {
	jobs chan Job
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan Job, capacity)}
}

func (q *MemoryQueue) Publish(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue is full")
	}
}

func (q *MemoryQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	deliveries := make(chan Delivery)
	go func() {
		defer close(deliveries)
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.jobs:
				delivery := NewDelivery(job, nil, func(requeue bool) error {
					if !requeue {
						return nil
					}
					select {
					case q.jobs <- job:
						return nil
					default:
						return fmt.Errorf("queue is full")
					}
				})
				select {
				case <-ctx.Done():
					return
				case deliveries <- delivery:
				}
			}
		}
	}()
	return deliveries, nil
}
