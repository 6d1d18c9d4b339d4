package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"qdispatch/internal/broker"
	"qdispatch/internal/domain"
)

// dequeueRetryDelay is the pause after a failed dequeue, so a broker outage
// doesn't spin the worker pool.
const dequeueRetryDelay = time.Second

// Cluster is the in-process execution engine: a pool of workers draining the
// broker through codec → executor → monitor. External deployments may run
// their own engine instead; the contract is the package format plus the
// monitor's finalization behavior.
type Cluster struct {
	client  *Client
	workers int
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCluster creates a cluster with the given worker-pool size.
func NewCluster(client *Client, workers int, logger *slog.Logger) *Cluster {
	if workers <= 0 {
		workers = 1
	}
	return &Cluster{
		client:  client,
		workers: workers,
		logger:  logger.With(slog.String("component", "cluster")),
	}
}

// Start launches the worker pool. Workers run until Stop is called or the
// broker queue closes.
func (cl *Cluster) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	cl.cancel = cancel

	for i := 0; i < cl.workers; i++ {
		cl.wg.Add(1)
		go cl.worker(ctx, i)
	}
	cl.logger.Info("cluster started", "workers", cl.workers)
}

// Stop shuts the worker pool down and waits for in-flight tasks to finalize.
func (cl *Cluster) Stop() {
	if cl.cancel != nil {
		cl.cancel()
	}
	cl.wg.Wait()
	cl.logger.Info("cluster stopped")
}

func (cl *Cluster) worker(ctx context.Context, id int) {
	defer cl.wg.Done()

	log := cl.logger.With("worker_id", id)
	log.Debug("starting worker")

	for {
		payload, err := cl.client.broker.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, broker.ErrQueueClosed) {
				log.Debug("stopping worker")
				return
			}
			log.Error("failed to dequeue payload", "error", err)
			select {
			case <-ctx.Done():
				log.Debug("stopping worker")
				return
			case <-time.After(dequeueRetryDelay):
			}
			continue
		}

		var pkg domain.Package
		if err := cl.client.signer.Open(payload, &pkg); err != nil {
			// A payload that doesn't verify is dropped, loudly. It cannot be
			// retried and it cannot be attributed to a task id.
			log.Error("discarding unverifiable payload", "error", err)
			continue
		}

		rec := cl.client.executor.Execute(ctx, &pkg)
		if err := cl.client.monitor.Finalize(ctx, rec); err != nil {
			log.Error("failed to finalize task",
				"task_id", rec.ID,
				"task_name", rec.Name,
				"error", err)
		}
	}
}
