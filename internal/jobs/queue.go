package jobs

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"trip-booking/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	TypeSendBookingEmail  Type = "SEND_BOOKING_EMAIL"
	TypeSendPaymentEmail  Type = "SEND_PAYMENT_EMAIL"
	TypeSendPaymentFailed Type = "SEND_PAYMENT_FAILED"
	TypeSendRefundEmail   Type = "SEND_REFUND_EMAIL"
	TypeReconcilePayment  Type = "RECONCILE_PAYMENT"
)

// Job is a unit of background work. Key partitions work across workers: jobs
// sharing a key run on the same worker in enqueue order, which is what keeps
// webhook side effects and reconciliation for one payment from racing.
type Job struct {
	ID         uuid.UUID
	Type       Type
	Key        string
	Payload    map[string]any
	Attempt    int
	EnqueuedAt time.Time
}

type Handler func(ctx context.Context, job Job) error

// Enqueuer is the narrow surface services use to hand off work.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType Type, key string, payload map[string]any) error
}

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
}

// Queue is an in-process worker pool with per-key ordering and bounded
// retries. Same-key jobs land on the same worker channel, so they execute
// strictly one after another.
type Queue struct {
	config   Config
	handlers map[Type]Handler
	channels []chan Job
	log      *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewQueue(config Config, log *zap.Logger) *Queue {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = 5 * time.Second
	}

	channels := make([]chan Job, config.Workers)
	for i := range channels {
		channels[i] = make(chan Job, config.QueueSize)
	}

	return &Queue{
		config:   config,
		handlers: make(map[Type]Handler),
		channels: channels,
		log:      log.With(zap.String("component", "jobs")),
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (q *Queue) Register(jobType Type, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	for i, ch := range q.channels {
		q.wg.Add(1)
		go q.worker(ctx, i, ch)
	}

	q.log.Info("Job queue started",
		zap.Int("workers", q.config.Workers),
		zap.Int("max_attempts", q.config.MaxAttempts),
		zap.Duration("base_backoff", q.config.BaseBackoff),
	)
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
}

func (q *Queue) Enqueue(ctx context.Context, jobType Type, key string, payload map[string]any) error {
	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Key:        key,
		Payload:    payload,
		Attempt:    0,
		EnqueuedAt: time.Now(),
	}

	ch := q.channels[q.partition(key)]
	select {
	case ch <- job:
		return nil
	default:
		return fmt.Errorf("enqueue %s job: queue full", jobType)
	}
}

func (q *Queue) partition(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(q.channels)))
}

func (q *Queue) worker(ctx context.Context, id int, ch chan Job) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-ch:
			q.run(ctx, id, job)
		}
	}
}

// run executes a job with its full retry budget on this worker. Retrying in
// place rather than re-enqueueing preserves same-key ordering.
func (q *Queue) run(ctx context.Context, workerID int, job Job) {
	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	if !ok {
		q.log.Warn("No handler registered for job type",
			zap.String("type", string(job.Type)),
			zap.String("job_id", job.ID.String()),
		)
		return
	}

	backoff := q.config.BaseBackoff
	for attempt := 1; attempt <= q.config.MaxAttempts; attempt++ {
		job.Attempt = attempt

		err := handler(ctx, job)
		if err == nil {
			q.log.Debug("Job completed",
				zap.String("type", string(job.Type)),
				zap.String("job_id", job.ID.String()),
				zap.Int("attempt", attempt),
				zap.Int("worker", workerID),
			)
			return
		}

		if attempt == q.config.MaxAttempts {
			break
		}

		q.log.Warn("Job failed, retrying",
			zap.Error(err),
			zap.String("type", string(job.Type)),
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		monitoring.TrackJobRetry(string(job.Type))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	// Exhausted the retry budget: surface to the operator log and move on
	// rather than retrying forever.
	q.log.Error("Job abandoned after max attempts",
		zap.String("type", string(job.Type)),
		zap.String("job_id", job.ID.String()),
		zap.String("key", job.Key),
		zap.Any("payload", job.Payload),
		zap.Int("attempts", q.config.MaxAttempts),
	)
	monitoring.TrackJobDeadLetter(string(job.Type))
}
