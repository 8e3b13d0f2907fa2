package queue

import "context"

// Job is one unit of transcode work, published once per submitted video.
type Job struct {
	// VideoID is the ID of the submitted video, generated and saved in the
	// metadata store before the job is published.
	VideoID string `json:"video_id"`
	// Name is the original filename of the upload.
	Name string `json:"name"`
	// Payload is the raw uploaded bytes, carried inline so the worker never
	// has to re-contact the submitter.
	Payload []byte `json:"payload"`
}

// Publisher enqueues jobs for the worker.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Consumer delivers jobs at least once. A delivery that is neither acked nor
// nacked before the consumer dies comes back again.
type Consumer interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
}

// Delivery is one received job plus its acknowledgement handles.
type Delivery struct {
	Job  Job
	ack  func() error
	nack func(requeue bool) error
}

// NewDelivery wraps a job with its acknowledgement functions. Either function
// may be nil, in which case settling is a no-op.
func NewDelivery(job Job, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Job: job, ack: ack, nack: nack}
}

// Ack marks the delivery as settled; the queue will not redeliver it.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack rejects the delivery, optionally putting it back on the queue.
func (d Delivery) Nack(requeue bool) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}
