// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogithub "github.com/google/go-github/v66/github"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/reviewd/internal/github"
	"github.com/mikelane/reviewd/internal/webhook"
)

// StatusContext identifies Reviewd's commit status on GitHub.
const StatusContext = "reviewd"

// ErrRateLimited is returned when a repository has exhausted its event budget.
var ErrRateLimited = errors.New("pull request rate limit exceeded")

// RequiredFields must be present in a pull_request payload for Handle to run.
var RequiredFields = []string{"action", "pull_request", "repository"}

var reviewableActions = map[string]bool{
	"opened":           true,
	"reopened":         true,
	"synchronize":      true,
	"ready_for_review": true,
}

// Change is a pull request revision that is ready for review.
type Change struct {
	Owner      string
	Repository string
	Number     int
	HeadSHA    string
	Title      string
	Author     string
	Files      []*github.File
}

// FullName returns owner/repository.
func (c *Change) FullName() string {
	return c.Owner + "/" + c.Repository
}

// Analyzer reviews a change.
type Analyzer interface {
	Analyze(ctx context.Context, change *Change) error
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, change *Change) error

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, change *Change) error {
	return f(ctx, change)
}

// Handler processes pull_request deliveries.
type Handler struct {
	client   github.Client
	analyzer Analyzer
	limiter  *RateLimiter
}

// Option configures a Handler.
type Option func(*Handler)

// WithClient enables file listing and commit status updates.
func WithClient(client github.Client) Option {
	return func(h *Handler) {
		h.client = client
	}
}

// WithAnalyzer sets the collaborator that receives reviewable changes.
func WithAnalyzer(analyzer Analyzer) Option {
	return func(h *Handler) {
		h.analyzer = analyzer
	}
}

// WithRateLimiter replaces the default limit of 10 events per repository per minute.
func WithRateLimiter(limiter *RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// NewHandler creates a pull request handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		limiter: NewRateLimiter(10, time.Minute),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RateLimiter returns the limiter so its sweeper can be started.
func (h *Handler) RateLimiter() *RateLimiter {
	return h.limiter
}

// Register binds the handler to pull_request events.
func (h *Handler) Register(registry *webhook.Registry) {
	registry.Register(webhook.EventPullRequest, h, RequiredFields...)
}

// Handle implements webhook.EventHandler.
func (h *Handler) Handle(ctx context.Context, env *webhook.EventEnvelope) error {
	logger := log.FromContext(ctx)

	parsed, err := gogithub.ParseWebHook(webhook.EventPullRequest, env.Raw)
	if err != nil {
		return fmt.Errorf("failed to decode pull_request payload: %w", err)
	}
	event, ok := parsed.(*gogithub.PullRequestEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", parsed)
	}

	pr := event.GetPullRequest()
	repo := event.GetRepo()
	logger.Info("Processing pull request",
		"number", pr.GetNumber(),
		"action", event.GetAction(),
		"repository", repo.GetFullName(),
		"id", pr.GetID())

	if !reviewableActions[event.GetAction()] {
		logger.V(1).Info("Ignoring PR action", "action", event.GetAction())
		return nil
	}
	if pr.GetDraft() {
		logger.V(1).Info("Ignoring draft pull request", "number", pr.GetNumber())
		return nil
	}

	if !h.limiter.Allow(repo.GetFullName()) {
		return fmt.Errorf("%w for %s", ErrRateLimited, repo.GetFullName())
	}

	change := &Change{
		Owner:      repo.GetOwner().GetLogin(),
		Repository: repo.GetName(),
		Number:     pr.GetNumber(),
		HeadSHA:    pr.GetHead().GetSHA(),
		Title:      pr.GetTitle(),
		Author:     pr.GetUser().GetLogin(),
	}

	if h.client != nil {
		if err := h.enrich(ctx, change); err != nil {
			return err
		}
	}

	if h.analyzer == nil {
		return nil
	}
	if err := h.analyzer.Analyze(ctx, change); err != nil {
		return fmt.Errorf("failed to analyze %s#%d: %w", change.FullName(), change.Number, err)
	}
	return nil
}

// enrich lists the changed files and marks the head commit as pending.
// Payloads without a head SHA are completed from the API.
func (h *Handler) enrich(ctx context.Context, change *Change) error {
	logger := log.FromContext(ctx)

	if change.HeadSHA == "" {
		pr, err := h.client.GetPullRequest(ctx, change.Owner, change.Repository, change.Number)
		if err != nil {
			return err
		}
		change.HeadSHA = pr.HeadSHA
		if change.Title == "" {
			change.Title = pr.Title
		}
		if change.Author == "" {
			change.Author = pr.Author
		}
	}

	files, err := h.client.ListFiles(ctx, change.Owner, change.Repository, change.Number)
	if err != nil {
		return err
	}
	change.Files = files

	if change.HeadSHA == "" {
		return nil
	}
	err = h.client.CreateStatus(ctx, change.Owner, change.Repository, change.HeadSHA, &github.Status{
		State:       github.StatusStatePending,
		Description: fmt.Sprintf("Review queued for %d files", len(files)),
		Context:     StatusContext,
	})
	if err != nil {
		logger.Error(err, "Failed to set commit status", "sha", change.HeadSHA)
	}
	return nil
}
