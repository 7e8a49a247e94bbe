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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is the algorithm prefix GitHub puts in front of the
// hex-encoded digest in the X-Hub-Signature-256 header.
const SignaturePrefix = "sha256="

// Reason explains why a request failed verification.
type Reason int

const (
	// ReasonNone means the request passed.
	ReasonNone Reason = iota
	// ReasonMissingHeader means X-GitHub-Event or X-Hub-Signature-256 was absent.
	ReasonMissingHeader
	// ReasonMalformedSignaturePrefix means the signature header did not start with "sha256=".
	ReasonMalformedSignaturePrefix
	// ReasonDigestMismatch means the computed HMAC did not match the header.
	ReasonDigestMismatch
	// ReasonMissingSecret means the server has no webhook secret configured.
	ReasonMissingSecret
)

// String returns the snake_case name used in logs.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingHeader:
		return "missing_header"
	case ReasonMalformedSignaturePrefix:
		return "malformed_signature_prefix"
	case ReasonDigestMismatch:
		return "digest_mismatch"
	case ReasonMissingSecret:
		return "missing_secret"
	default:
		return "unknown"
	}
}

// VerificationResult is either Valid or Invalid with a Reason.
type VerificationResult struct {
	Reason Reason
}

// Valid is the passing result.
var Valid = VerificationResult{}

// Invalid builds a failing result.
func Invalid(reason Reason) VerificationResult {
	return VerificationResult{Reason: reason}
}

// OK reports whether the result is Valid.
func (v VerificationResult) OK() bool {
	return v.Reason == ReasonNone
}

// Verify checks a GitHub X-Hub-Signature-256 header against the HMAC-SHA256
// of rawBody keyed with secret.
//
// rawBody must be the exact bytes received on the wire. The comparison is
// constant time for equal-length inputs.
func Verify(secret, rawBody []byte, signatureHeader string) VerificationResult {
	if !strings.HasPrefix(signatureHeader, SignaturePrefix) {
		return Invalid(ReasonMalformedSignaturePrefix)
	}

	expected := Sign(secret, rawBody)
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return Invalid(ReasonDigestMismatch)
	}
	return Valid
}

// Sign returns the X-Hub-Signature-256 header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
