// Copyright 2025 The Reviewd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"context"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/workqueue"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultWorkers is the number of queue workers used when none is configured.
const DefaultWorkers = 4

type job struct {
	ctx     context.Context
	handler EventHandler
	env     *EventEnvelope
}

// QueueInvoker hands envelopes to background workers so the acknowledgment
// does not wait for handlers. Jobs are not retried.
type QueueInvoker struct {
	queue   workqueue.TypedInterface[*job]
	workers int
}

// NewQueueInvoker creates a queue drained by workers goroutines once Start is called.
func NewQueueInvoker(workers int) *QueueInvoker {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &QueueInvoker{
		queue: workqueue.NewTypedWithConfig(workqueue.TypedQueueConfig[*job]{
			Name: "webhook-events",
		}),
		workers: workers,
	}
}

// Invoke enqueues the handler call. The job keeps the request's logger and
// values but not its cancellation, since the request ends before the job runs.
func (q *QueueInvoker) Invoke(ctx context.Context, handler EventHandler, env *EventEnvelope) {
	j := &job{ctx: context.WithoutCancel(ctx), handler: handler, env: env}
	if q.queue.ShuttingDown() {
		log.FromContext(ctx).Info("Event queue shutting down; running handler inline")
		runHandler(j.ctx, j.handler, j.env)
		return
	}
	q.queue.Add(j)
	queueDepth.Set(float64(q.queue.Len()))
}

// Start runs the workers until ctx is cancelled, then lets them finish
// every job already queued before returning.
func (q *QueueInvoker) Start(ctx context.Context) error {
	logger := log.FromContext(ctx)
	logger.Info("Starting event workers", "workers", q.workers)

	// Workers outlive ctx so queued jobs still run; they stop once the
	// queue reports shutdown, which only happens when it is empty.
	workerCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wait.UntilWithContext(workerCtx, func(context.Context) {
				q.runWorker()
				stop()
			}, time.Second)
		}()
	}

	<-ctx.Done()
	logger.Info("Draining event queue", "pending", q.queue.Len())
	q.queue.ShutDown()
	wg.Wait()
	return nil
}

// Len returns the number of queued jobs.
func (q *QueueInvoker) Len() int {
	return q.queue.Len()
}

func (q *QueueInvoker) runWorker() {
	for q.processNext() {
	}
}

func (q *QueueInvoker) processNext() bool {
	j, shutdown := q.queue.Get()
	if shutdown {
		return false
	}
	defer q.queue.Done(j)

	runHandler(j.ctx, j.handler, j.env)
	queueDepth.Set(float64(q.queue.Len()))
	return true
}
