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
	"encoding/json"

	"github.com/google/uuid"
)

// EventEnvelope is an authenticated, decoded delivery. The dispatcher only
// builds one after the signature has been verified.
type EventEnvelope struct {
	// EventType comes from the X-GitHub-Event header, never from the payload.
	EventType string
	// DeliveryID is X-GitHub-Delivery, or a generated UUID when GitHub did not send one.
	DeliveryID string
	// Payload is the decoded JSON object. It is nil when the body is valid
	// JSON of another kind, such as an array or null.
	Payload map[string]any
	// Raw is a copy of the verified body, for handlers that decode into typed structs.
	Raw json.RawMessage
}

func newEnvelope(req *Request) (*EventEnvelope, error) {
	raw := req.Body()

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	payload, _ := decoded.(map[string]any)

	deliveryID := req.DeliveryID()
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	return &EventEnvelope{
		EventType:  req.EventType(),
		DeliveryID: deliveryID,
		Payload:    payload,
		Raw:        raw,
	}, nil
}

// Missing returns the fields that are absent or empty in the payload.
// null, false, 0, "", [] and {} count as empty. A payload that is not an
// object is missing every field.
func (e *EventEnvelope) Missing(fields ...string) []string {
	var missing []string
	for _, f := range fields {
		if !present(e.Payload[f]) {
			missing = append(missing, f)
		}
	}
	return missing
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
