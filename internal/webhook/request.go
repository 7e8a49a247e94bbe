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
	"bytes"
	"net/http"
)

// GitHub webhook headers.
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderSignature = "X-Hub-Signature-256"
	HeaderDelivery  = "X-GitHub-Delivery"
)

// Request is a received webhook delivery. It owns a private copy of the raw
// body, which is what the signature is computed over.
type Request struct {
	header http.Header
	body   []byte
}

// NewRequest captures header and body. Both are copied so later changes by
// the caller cannot alter what gets verified.
func NewRequest(header http.Header, body []byte) *Request {
	return &Request{
		header: header.Clone(),
		body:   bytes.Clone(body),
	}
}

// EventType returns the X-GitHub-Event header value.
func (r *Request) EventType() string {
	return r.header.Get(HeaderEvent)
}

// Signature returns the X-Hub-Signature-256 header value.
func (r *Request) Signature() string {
	return r.header.Get(HeaderSignature)
}

// DeliveryID returns the X-GitHub-Delivery header value, if any.
func (r *Request) DeliveryID() string {
	return r.header.Get(HeaderDelivery)
}

// Body returns a copy of the raw body.
func (r *Request) Body() []byte {
	return bytes.Clone(r.body)
}
