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
	"sort"
	"sync"
)

// EventPullRequest is the X-GitHub-Event value for pull request activity.
const EventPullRequest = "pull_request"

// EventHandler processes one authenticated delivery. Errors are logged by the
// caller and never change the HTTP response.
type EventHandler interface {
	Handle(ctx context.Context, env *EventEnvelope) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, env *EventEnvelope) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, env *EventEnvelope) error {
	return f(ctx, env)
}

type route struct {
	handler  EventHandler
	required []string
}

// Registry maps event types to handlers.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]route
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]route)}
}

// Register binds handler to eventType, replacing any earlier binding.
// requiredFields are top-level payload keys that must be present for the
// handler to be invoked.
func (r *Registry) Register(eventType string, handler EventHandler, requiredFields ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[eventType] = route{
		handler:  handler,
		required: append([]string(nil), requiredFields...),
	}
}

// Lookup returns the handler and required fields for eventType.
func (r *Registry) Lookup(eventType string) (EventHandler, []string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[eventType]
	if !ok {
		return nil, nil, false
	}
	return rt.handler, rt.required, true
}

// EventTypes lists registered event types in sorted order.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.routes))
	for t := range r.routes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
