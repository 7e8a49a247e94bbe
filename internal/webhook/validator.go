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

// Validate checks the preconditions for signature verification. A missing
// secret is reported before anything about the request itself, since it is
// a server fault.
func Validate(req *Request, secretPresent bool) VerificationResult {
	if !secretPresent {
		return Invalid(ReasonMissingSecret)
	}
	if req.EventType() == "" || req.Signature() == "" {
		return Invalid(ReasonMissingHeader)
	}
	return Valid
}
