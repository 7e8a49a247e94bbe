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
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// requestsTotal is labelled by status code only; the event header is
	// caller-controlled until the signature has been checked.
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewd_webhook_requests_total",
			Help: "Webhook deliveries by response code.",
		},
		[]string{"code"},
	)

	handlerInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewd_webhook_handler_invocations_total",
			Help: "Event handler invocations by event type and result.",
		},
		[]string{"event", "result"},
	)

	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviewd_webhook_handler_duration_seconds",
			Help:    "Event handler latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewd_webhook_queue_depth",
			Help: "Events waiting for a worker.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(requestsTotal, handlerInvocations, handlerDuration, queueDepth)
}
