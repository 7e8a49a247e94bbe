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

package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// githubClient implements Client using go-github
type githubClient struct {
	client *github.Client
	retry  RetryConfig
}

// Option configures the client returned by NewClient.
type Option func(*githubClient) error

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) Option {
	return func(c *githubClient) error {
		if baseURL == "" {
			return nil
		}
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
		}
		c.client.BaseURL = u
		return nil
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *githubClient) error {
		c.retry = cfg
		return nil
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *githubClient) error {
		base := c.client.BaseURL
		c.client = github.NewClient(hc)
		c.client.BaseURL = base
		return nil
	}
}

// NewClient creates a GitHub client. An empty token gives an
// unauthenticated client with GitHub's lower rate limits.
func NewClient(token string, opts ...Option) (Client, error) {
	c := &githubClient{
		client: github.NewClient(nil),
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if token != "" {
		c.client = c.client.WithAuthToken(token)
	}
	return c, nil
}

// GetPullRequest retrieves metadata about a pull request
func (c *githubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr *github.PullRequest
	err := c.retry.do(ctx, func() error {
		var err error
		pr, _, err = c.client.PullRequests.Get(ctx, owner, repo, number)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return convertPullRequest(pr), nil
}

// ListFiles retrieves the files changed in a pull request, 100 per page
func (c *githubClient) ListFiles(ctx context.Context, owner, repo string, number int) ([]*File, error) {
	allFiles := []*File{}
	opts := &github.ListOptions{PerPage: 100}

	for {
		var files []*github.CommitFile
		var resp *github.Response
		err := c.retry.do(ctx, func() error {
			var err error
			files, resp, err = c.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files for %s/%s#%d: %w", owner, repo, number, err)
		}

		for _, f := range files {
			allFiles = append(allFiles, convertFile(f))
		}

		if resp.NextPage == 0 {
			return allFiles, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateStatus sets a commit status on sha
func (c *githubClient) CreateStatus(ctx context.Context, owner, repo, sha string, status *Status) error {
	repoStatus := &github.RepoStatus{
		State:       github.String(string(status.State)),
		Description: github.String(status.Description),
		Context:     github.String(status.Context),
	}
	if status.TargetURL != "" {
		repoStatus.TargetURL = github.String(status.TargetURL)
	}

	err := c.retry.do(ctx, func() error {
		_, _, err := c.client.Repositories.CreateStatus(ctx, owner, repo, sha, repoStatus)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create status on %s/%s@%s: %w", owner, repo, sha, err)
	}
	return nil
}

func convertPullRequest(pr *github.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}

	result := &PullRequest{
		ID:          pr.GetID(),
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		State:       pr.GetState(),
		Draft:       pr.GetDraft(),
		HeadSHA:     pr.GetHead().GetSHA(),
		HeadBranch:  pr.GetHead().GetRef(),
		BaseBranch:  pr.GetBase().GetRef(),
		Author:      pr.GetUser().GetLogin(),
		CreatedAt:   pr.GetCreatedAt().Time,
		UpdatedAt:   pr.GetUpdatedAt().Time,
	}

	for _, label := range pr.Labels {
		if label != nil {
			result.Labels = append(result.Labels, label.GetName())
		}
	}
	return result
}

func convertFile(f *github.CommitFile) *File {
	return &File{
		Filename:  f.GetFilename(),
		Status:    f.GetStatus(),
		Additions: f.GetAdditions(),
		Deletions: f.GetDeletions(),
		Changes:   f.GetChanges(),
		Patch:     f.GetPatch(),
	}
}
