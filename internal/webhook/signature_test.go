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
	"crypto/rand"
	"strings"
	"testing"
)

// TestVerify_ValidSignature verifies that a correctly signed payload is accepted
func TestVerify_ValidSignature(t *testing.T) {
	secret := []byte("test-secret")
	payload := []byte(`{"action":"opened","number":123}`)
	// Precomputed HMAC-SHA256: echo -n '{"action":"opened","number":123}' | openssl dgst -sha256 -hmac 'test-secret'
	signature := "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282"

	result := Verify(secret, payload, signature)

	if !result.OK() {
		t.Errorf("Verify returns %v for valid signature", result.Reason)
	}
}

// TestVerify_KnownScenario checks the mysecret/{"action":"opened"} pair against an openssl digest
func TestVerify_KnownScenario(t *testing.T) {
	signature := "sha256=7dd44a5aab54cf18c2c4dc925aa0123416e2b86b5fdeece15fdb45e8f10fd766"

	if got := Sign([]byte("mysecret"), []byte(`{"action":"opened"}`)); got != signature {
		t.Fatalf("Sign = %q, expected %q", got, signature)
	}
	if result := Verify([]byte("mysecret"), []byte(`{"action":"opened"}`), signature); !result.OK() {
		t.Errorf("Verify returns %v, expected valid", result.Reason)
	}
}

// TestVerify_SignedRoundTrip checks that Sign output always verifies, for random secrets and bodies
func TestVerify_SignedRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		secret := randomBytes(t, 1+i%40)
		body := randomBytes(t, i*17)

		if result := Verify(secret, body, Sign(secret, body)); !result.OK() {
			t.Fatalf("iteration %d: Verify returns %v for its own signature", i, result.Reason)
		}
	}
}

// TestVerify_WrongSecret checks that a signature made with another secret is a digest mismatch
func TestVerify_WrongSecret(t *testing.T) {
	for i := 0; i < 32; i++ {
		body := randomBytes(t, i*9)
		s1 := randomBytes(t, 32)
		s2 := randomBytes(t, 32)
		if bytes.Equal(s1, s2) {
			continue
		}

		result := Verify(s1, body, Sign(s2, body))
		if result.Reason != ReasonDigestMismatch {
			t.Fatalf("iteration %d: Verify returns %v, expected %v", i, result.Reason, ReasonDigestMismatch)
		}
	}
}

// TestVerify_InvalidSignature verifies that an incorrectly signed payload is rejected
func TestVerify_InvalidSignature(t *testing.T) {
	secret := []byte("test-secret")
	payload := []byte(`{"action":"opened","number":123}`)
	signature := "sha256=0000000000000000000000000000000000000000000000000000000000000000"

	result := Verify(secret, payload, signature)

	if result.Reason != ReasonDigestMismatch {
		t.Errorf("Verify returns %v for invalid signature, expected %v", result.Reason, ReasonDigestMismatch)
	}
}

// TestVerify_TamperedLastCharacter flips the final hex digit of a correct signature
func TestVerify_TamperedLastCharacter(t *testing.T) {
	secret := []byte("mysecret")
	payload := []byte(`{"action":"opened"}`)
	signature := Sign(secret, payload)

	last := signature[len(signature)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	tampered := signature[:len(signature)-1] + string(replacement)

	if result := Verify(secret, payload, tampered); result.Reason != ReasonDigestMismatch {
		t.Errorf("Verify returns %v for tampered signature, expected %v", result.Reason, ReasonDigestMismatch)
	}
}

// TestVerify_TamperedBody verifies that the signature covers the exact body bytes
func TestVerify_TamperedBody(t *testing.T) {
	secret := []byte("test-secret")
	signature := Sign(secret, []byte(`{"action":"opened"}`))

	// Same JSON value, different bytes.
	result := Verify(secret, []byte(`{ "action": "opened" }`), signature)

	if result.Reason != ReasonDigestMismatch {
		t.Errorf("Verify returns %v for re-encoded body, expected %v", result.Reason, ReasonDigestMismatch)
	}
}

// TestVerify_MalformedPrefix verifies that anything not starting with sha256= is rejected as malformed
func TestVerify_MalformedPrefix(t *testing.T) {
	secret := []byte("test-secret")
	payload := []byte(`{"action":"opened","number":123}`)
	valid := Sign(secret, payload)

	tests := []struct {
		name      string
		signature string
	}{
		{"empty", ""},
		{"sha1 algorithm", "sha1=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27"},
		{"bare hex digest", strings.TrimPrefix(valid, SignaturePrefix)},
		{"uppercase prefix", "SHA256=" + strings.TrimPrefix(valid, SignaturePrefix)},
		{"leading space", " " + valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Verify(secret, payload, tt.signature)
			if result.Reason != ReasonMalformedSignaturePrefix {
				t.Errorf("Verify(%q) returns %v, expected %v", tt.signature, result.Reason, ReasonMalformedSignaturePrefix)
			}
		})
	}
}

// TestVerify_LengthMismatch verifies that truncated or extended digests are mismatches, not malformed
func TestVerify_LengthMismatch(t *testing.T) {
	secret := []byte("test-secret")
	payload := []byte(`{}`)
	valid := Sign(secret, payload)

	for _, signature := range []string{valid[:len(valid)-2], valid + "00", SignaturePrefix} {
		if result := Verify(secret, payload, signature); result.Reason != ReasonDigestMismatch {
			t.Errorf("Verify(%q) returns %v, expected %v", signature, result.Reason, ReasonDigestMismatch)
		}
	}
}

func TestReason_String(t *testing.T) {
	tests := map[Reason]string{
		ReasonNone:                     "none",
		ReasonMissingHeader:            "missing_header",
		ReasonMalformedSignaturePrefix: "malformed_signature_prefix",
		ReasonDigestMismatch:           "digest_mismatch",
		ReasonMissingSecret:            "missing_secret",
		Reason(42):                     "unknown",
	}
	for reason, want := range tests {
		if got := reason.String(); got != want {
			t.Errorf("Reason(%d).String() = %q, expected %q", int(reason), got, want)
		}
	}
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}
