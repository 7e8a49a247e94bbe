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
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func signedRequest(secret, eventType, body string) *Request {
	header := http.Header{}
	header.Set(HeaderEvent, eventType)
	header.Set(HeaderSignature, Sign([]byte(secret), []byte(body)))
	return NewRequest(header, []byte(body))
}

const fullPullRequest = `{"action":"opened","number":7,"pull_request":{"id":99,"number":7},"repository":{"full_name":"owner/repo"}}`

var _ = Describe("Dispatcher", func() {
	const secret = "mysecret"

	var (
		logs        *logSink
		ctx         context.Context
		registry    *Registry
		prHandler   *recordingHandler
		verifyCalls int
		dispatcher  *Dispatcher
	)

	countingVerify := func(s, body []byte, sig string) VerificationResult {
		verifyCalls++
		return Verify(s, body, sig)
	}

	BeforeEach(func() {
		logs = &logSink{}
		ctx = logs.context()
		registry = NewRegistry()
		prHandler = &recordingHandler{}
		registry.Register(EventPullRequest, prHandler, "action", "pull_request", "repository")
		verifyCalls = 0
		dispatcher = NewDispatcher(staticSecret(secret), registry, WithVerifyFunc(countingVerify))
	})

	Context("with a correctly signed delivery", func() {
		It("acknowledges the reference pull_request scenario", func() {
			resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", `{"action":"opened"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Body).To(Equal(ResponseBody{Status: "success", Message: "Webhook received and processed."}))
			Expect(resp.Reached).To(Equal(StagePayloadParsed))
			Expect(prHandler.Calls()).To(BeZero())
		})

		It("reports the dispatched stage once a handler runs", func() {
			resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", fullPullRequest))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Reached).To(Equal(StageDispatched))
		})

		It("invokes the pull_request handler with the header event type and exact bytes", func() {
			resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", fullPullRequest))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(prHandler.Calls()).To(Equal(1))
			env := prHandler.Last()
			Expect(env.EventType).To(Equal("pull_request"))
			Expect(string(env.Raw)).To(Equal(fullPullRequest))
			Expect(env.Payload).To(HaveKeyWithValue("action", "opened"))
			Expect(env.DeliveryID).NotTo(BeEmpty())
		})

		It("keeps the X-GitHub-Delivery id", func() {
			req := signedRequest(secret, "pull_request", fullPullRequest)
			req.header.Set(HeaderDelivery, "72d3162e-cc78-11e3-81ab-4c9367dc0958")

			dispatcher.Handle(ctx, req)

			Expect(prHandler.Last().DeliveryID).To(Equal("72d3162e-cc78-11e3-81ab-4c9367dc0958"))
		})

		It("acknowledges unregistered events without invoking any handler", func() {
			resp := dispatcher.Handle(ctx, signedRequest(secret, "push", `{"ref":"refs/heads/main"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(prHandler.Calls()).To(BeZero())
		})

		It("routes on the header, not on anything the payload claims", func() {
			resp := dispatcher.Handle(ctx, signedRequest(secret, "push", fullPullRequest))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(prHandler.Calls()).To(BeZero())
		})

		DescribeTable("skips the handler with a warning when a required field is missing",
			func(body, field string) {
				resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", body))

				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(prHandler.Calls()).To(BeZero())
				Expect(logs.contains("missing required fields")).To(BeTrue())
				Expect(logs.contains(field)).To(BeTrue())
			},
			Entry("repository", `{"action":"opened","pull_request":{"id":1}}`, "repository"),
			Entry("action", `{"pull_request":{"id":1},"repository":{"id":2}}`, "action"),
			Entry("pull_request", `{"action":"opened","repository":{"id":2}}`, "pull_request"),
			Entry("null repository", `{"action":"opened","pull_request":{"id":1},"repository":null}`, "repository"),
			Entry("empty action", `{"action":"","pull_request":{"id":1},"repository":{"id":2}}`, "action"),
			Entry("empty pull_request", `{"action":"opened","pull_request":{},"repository":{"id":2}}`, "pull_request"),
			Entry("empty array repository", `{"action":"opened","pull_request":{"id":1},"repository":[]}`, "repository"),
			Entry("false repository", `{"action":"opened","pull_request":{"id":1},"repository":false}`, "repository"),
			Entry("zero repository", `{"action":"opened","pull_request":{"id":1},"repository":0}`, "repository"),
		)

		It("downgrades handler errors to a logged warning", func() {
			prHandler.err = errors.New("analysis backend unavailable")

			resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", fullPullRequest))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(prHandler.Calls()).To(Equal(1))
			Expect(logs.contains("analysis backend unavailable")).To(BeTrue())
		})

		It("survives a panicking handler", func() {
			registry.Register("issues", HandlerFunc(func(context.Context, *EventEnvelope) error {
				panic("boom")
			}))

			resp := dispatcher.Handle(ctx, signedRequest(secret, "issues", `{"action":"opened"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(logs.contains("Event handler panicked")).To(BeTrue())
		})

		DescribeTable("rejects bodies that are not valid JSON",
			func(body string) {
				resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", body))

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(resp.Body.Message).To(Equal("Invalid JSON payload."))
				Expect(resp.Reached).To(Equal(StageSignatureChecked))
				Expect(prHandler.Calls()).To(BeZero())
			},
			Entry("broken JSON", `{invalid json}`),
			Entry("truncated object", `{"action":`),
			Entry("empty body", ``),
		)

		DescribeTable("acknowledges valid JSON that is not an object",
			func(body string) {
				for _, event := range []string{"push", "pull_request"} {
					resp := dispatcher.Handle(ctx, signedRequest(secret, event, body))

					Expect(resp.StatusCode).To(Equal(http.StatusOK), "event %s", event)
					Expect(resp.Reached).To(Equal(StagePayloadParsed), "event %s", event)
				}
				Expect(prHandler.Calls()).To(BeZero())
				Expect(logs.contains("missing required fields")).To(BeTrue())
			},
			Entry("array", `[1,2,3]`),
			Entry("null", `null`),
			Entry("string", `"x"`),
			Entry("number", `42`),
		)
	})

	Context("with a bad signature", func() {
		It("returns 401 when the last hex character is altered", func() {
			req := signedRequest(secret, "pull_request", `{"action":"opened"}`)
			sig := req.Signature()
			last := sig[len(sig)-1]
			replacement := "0"
			if last == '0' {
				replacement = "1"
			}
			req.header.Set(HeaderSignature, sig[:len(sig)-1]+replacement)

			resp := dispatcher.Handle(ctx, req)

			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Reached).To(Equal(StageHeaderChecked))
			Expect(prHandler.Calls()).To(BeZero())
		})

		It("does not leak the expected digest", func() {
			body := `{"action":"opened"}`
			req := signedRequest("other-secret", "pull_request", body)

			resp := dispatcher.Handle(ctx, req)

			expected := Sign([]byte(secret), []byte(body))
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Body.Message).NotTo(ContainSubstring(expected[len(SignaturePrefix):]))
			Expect(logs.contains(expected[len(SignaturePrefix):])).To(BeFalse())
			Expect(logs.contains(secret)).To(BeFalse())
		})

		It("returns 400 for a signature without the sha256= prefix", func() {
			req := signedRequest(secret, "pull_request", `{}`)
			req.header.Set(HeaderSignature, "sha1=deadbeef")

			resp := dispatcher.Handle(ctx, req)

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(resp.Body.Message).To(Equal("Invalid X-Hub-Signature-256 format."))
		})

		It("returns 500 when verification fails unexpectedly", func() {
			dispatcher = NewDispatcher(staticSecret(secret), registry, WithVerifyFunc(func([]byte, []byte, string) VerificationResult {
				panic("hash failure")
			}))

			resp := dispatcher.Handle(ctx, signedRequest(secret, "pull_request", `{}`))

			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Context("with missing headers", func() {
		DescribeTable("rejects with 400 before computing any HMAC",
			func(event, signature string) {
				header := http.Header{}
				if event != "" {
					header.Set(HeaderEvent, event)
				}
				if signature != "" {
					header.Set(HeaderSignature, signature)
				}

				resp := dispatcher.Handle(ctx, NewRequest(header, []byte(`{}`)))

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(resp.Reached).To(Equal(StageReceived))
				Expect(verifyCalls).To(BeZero())
			},
			Entry("no event header", "", Sign([]byte(secret), []byte(`{}`))),
			Entry("no signature header", "pull_request", ""),
			Entry("neither", "", ""),
		)
	})

	Context("without a configured secret", func() {
		BeforeEach(func() {
			dispatcher = NewDispatcher(staticSecret(nil), registry, WithVerifyFunc(countingVerify))
		})

		It("fails closed with 500 for every request", func() {
			requests := []*Request{
				signedRequest(secret, "pull_request", fullPullRequest),
				signedRequest("", "push", `{}`),
				NewRequest(http.Header{}, nil),
			}
			for _, req := range requests {
				resp := dispatcher.Handle(ctx, req)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(resp.Body.Status).To(Equal("error"))
			}
			Expect(verifyCalls).To(BeZero())
			Expect(prHandler.Calls()).To(BeZero())
			Expect(logs.contains("server misconfiguration")).To(BeTrue())
		})
	})

	Context("with a queue invoker", func() {
		It("acknowledges before the handler runs and drains on shutdown", func() {
			release := make(chan struct{})
			done := make(chan string, 1)
			registry.Register("slow", HandlerFunc(func(_ context.Context, env *EventEnvelope) error {
				<-release
				done <- env.DeliveryID
				return nil
			}))

			invoker := NewQueueInvoker(1)
			dispatcher = NewDispatcher(staticSecret(secret), registry, WithInvoker(invoker))

			req := signedRequest(secret, "slow", `{}`)
			req.header.Set(HeaderDelivery, "delivery-1")
			resp := dispatcher.Handle(ctx, req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(invoker.Len()).To(Equal(1))

			workerCtx, cancel := context.WithCancel(ctx)
			stopped := make(chan error, 1)
			go func() { stopped <- invoker.Start(workerCtx) }()

			cancel()
			close(release)

			Eventually(done, time.Second).Should(Receive(Equal("delivery-1")))
			Eventually(stopped, time.Second).Should(Receive(BeNil()))
		})
	})
})
