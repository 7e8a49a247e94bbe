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
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// SecretProvider supplies the shared webhook secret. ok is false when no
// secret is configured.
type SecretProvider interface {
	Secret() (secret []byte, ok bool)
}

// Stage is a step of the delivery pipeline. Every delivery ends in a
// Response; Stage records how far it got before that.
type Stage int

const (
	// StageReceived means the request was read but not yet checked.
	StageReceived Stage = iota
	// StageHeaderChecked means the secret and required headers are present.
	StageHeaderChecked
	// StageSignatureChecked means the HMAC signature matched.
	StageSignatureChecked
	// StagePayloadParsed means the body decoded as JSON.
	StagePayloadParsed
	// StageDispatched means a handler was invoked.
	StageDispatched
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "Received"
	case StageHeaderChecked:
		return "HeaderChecked"
	case StageSignatureChecked:
		return "SignatureChecked"
	case StagePayloadParsed:
		return "PayloadParsed"
	case StageDispatched:
		return "Dispatched"
	default:
		return "Unknown"
	}
}

// ResponseBody is the JSON body returned to GitHub.
type ResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Response is the outcome of handling one delivery.
type Response struct {
	StatusCode int
	Body       ResponseBody
	// Reached is the last stage completed before responding.
	Reached Stage
}

// SuccessMessage is the acknowledgment text. It means the delivery was
// received and authenticated, not that any handler succeeded.
const SuccessMessage = "Webhook received and processed."

var errSecretNotConfigured = errors.New("webhook secret not configured")

// VerifyFunc computes a VerificationResult for a body and signature header.
type VerifyFunc func(secret, rawBody []byte, signatureHeader string) VerificationResult

// Dispatcher authenticates deliveries and routes them to handlers.
type Dispatcher struct {
	secrets  SecretProvider
	registry *Registry
	invoker  Invoker
	verify   VerifyFunc
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithInvoker sets how handlers are run. The default is SyncInvoker.
func WithInvoker(invoker Invoker) DispatcherOption {
	return func(d *Dispatcher) {
		d.invoker = invoker
	}
}

// WithVerifyFunc replaces the signature check.
func WithVerifyFunc(verify VerifyFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.verify = verify
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(secrets SecretProvider, registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		secrets:  secrets,
		registry: registry,
		invoker:  SyncInvoker{},
		verify:   Verify,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle runs a delivery through secret check, header check, signature
// verification, JSON decoding and dispatch, in that order. Any failure
// before dispatch ends the request; nothing after it changes the response.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) (resp Response) {
	logger := log.FromContext(ctx)
	defer func() {
		requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	}()

	secret, ok := d.secrets.Secret()
	switch result := Validate(req, ok); result.Reason {
	case ReasonNone:
	case ReasonMissingSecret:
		logger.Error(errSecretNotConfigured, "Rejecting webhook: server misconfiguration")
		return failure(http.StatusInternalServerError, "Server misconfiguration: Webhook secret not set.", StageReceived)
	default:
		logger.Info("Missing X-GitHub-Event or X-Hub-Signature-256 header")
		return failure(http.StatusBadRequest, "Missing required GitHub headers.", StageReceived)
	}

	result, err := d.safeVerify(secret, req)
	if err != nil {
		logger.Error(err, "Unexpected error during signature verification")
		return failure(http.StatusInternalServerError, "Internal server error during signature verification.", StageHeaderChecked)
	}
	switch result.Reason {
	case ReasonNone:
	case ReasonMalformedSignaturePrefix:
		logger.Info("Invalid X-Hub-Signature-256 format")
		return failure(http.StatusBadRequest, "Invalid X-Hub-Signature-256 format.", StageHeaderChecked)
	case ReasonDigestMismatch:
		logger.Info("Invalid GitHub webhook signature")
		return failure(http.StatusUnauthorized, "Invalid GitHub webhook signature.", StageHeaderChecked)
	default:
		logger.Error(fmt.Errorf("unexpected verification result %s", result.Reason), "Signature verification failed")
		return failure(http.StatusInternalServerError, "Internal server error during signature verification.", StageHeaderChecked)
	}

	env, err := newEnvelope(req)
	if err != nil {
		logger.Info("Failed to parse JSON payload", "error", err.Error())
		return failure(http.StatusBadRequest, "Invalid JSON payload.", StageSignatureChecked)
	}

	logger = logger.WithValues("event", env.EventType, "delivery", env.DeliveryID)
	ctx = log.IntoContext(ctx, logger)
	logger.Info("Received GitHub event")

	reached := StagePayloadParsed
	if d.dispatch(ctx, env) {
		reached = StageDispatched
	}

	return Response{
		StatusCode: http.StatusOK,
		Body:       ResponseBody{Status: "success", Message: SuccessMessage},
		Reached:    reached,
	}
}

// dispatch reports whether a handler was invoked.
func (d *Dispatcher) dispatch(ctx context.Context, env *EventEnvelope) bool {
	logger := log.FromContext(ctx)

	handler, required, ok := d.registry.Lookup(env.EventType)
	if !ok {
		logger.V(1).Info("No handler registered for event")
		return false
	}

	if missing := env.Missing(required...); len(missing) > 0 {
		logger.Info("Event payload missing required fields; handler skipped", "missing", missing)
		return false
	}

	d.invoker.Invoke(ctx, handler, env)
	return true
}

// safeVerify turns a panic in the verifier into an error.
func (d *Dispatcher) safeVerify(secret []byte, req *Request) (result VerificationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signature verification panicked: %v", r)
		}
	}()
	return d.verify(secret, req.body, req.Signature()), nil
}

func failure(code int, message string, reached Stage) Response {
	return Response{
		StatusCode: code,
		Body:       ResponseBody{Status: "error", Message: message},
		Reached:    reached,
	}
}
