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

// Package webhook provides GitHub webhook handling for Reviewd.
//
// This package authenticates GitHub webhook deliveries and routes them to
// event handlers.
//
// Key features:
//   - Validates GitHub webhook signatures using HMAC-SHA256 over the raw body
//   - Fails closed when no webhook secret is configured
//   - Routes events by the X-GitHub-Event header through a Registry
//   - Runs handlers inline or on a background work queue
//   - Health check and Prometheus metrics endpoints
//
// Webhook Security:
//
// Every delivery must carry X-GitHub-Event and X-Hub-Signature-256 headers.
// The signature is "sha256=" followed by the hex HMAC-SHA256 of the exact
// request bytes, compared in constant time. The body is decoded as JSON only
// after the signature matches.
//
// Response Codes:
//   - 200: authenticated and accepted (whether or not a handler ran)
//   - 400: missing headers, malformed signature, invalid JSON
//   - 401: signature mismatch
//   - 413: body larger than the configured limit
//   - 500: webhook secret not configured, or verification failed unexpectedly
//
// Handler errors never change the response. GitHub retries are the only
// retries; nothing is retried here.
//
// Example usage:
//
//	registry := webhook.NewRegistry()
//	registry.Register("pull_request", prHandler, "action", "pull_request", "repository")
//
//	dispatcher := webhook.NewDispatcher(secrets, registry)
//	server := webhook.NewServer("0.0.0.0", 5000, dispatcher)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
