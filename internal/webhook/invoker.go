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
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Invoker runs a handler for an envelope. Implementations must not let a
// handler error or panic escape.
type Invoker interface {
	Invoke(ctx context.Context, handler EventHandler, env *EventEnvelope)
}

// SyncInvoker runs handlers on the request goroutine.
type SyncInvoker struct{}

// Invoke runs handler inline.
func (SyncInvoker) Invoke(ctx context.Context, handler EventHandler, env *EventEnvelope) {
	runHandler(ctx, handler, env)
}

// runHandler invokes handler, converting panics to errors and logging
// failures. It reports the outcome label recorded in metrics.
func runHandler(ctx context.Context, handler EventHandler, env *EventEnvelope) (result string) {
	logger := log.FromContext(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			logger.Error(fmt.Errorf("panic: %v", r), "Event handler panicked")
		}
		handlerInvocations.WithLabelValues(env.EventType, result).Inc()
		handlerDuration.WithLabelValues(env.EventType).Observe(time.Since(start).Seconds())
	}()

	if err := handler.Handle(ctx, env); err != nil {
		logger.Info("Event handler failed", "error", err.Error())
		return "error"
	}
	logger.V(1).Info("Event handler completed", "duration", time.Since(start).String())
	return "success"
}
