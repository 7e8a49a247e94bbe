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

// Package github provides the GitHub API calls Reviewd makes after a
// pull_request delivery has been authenticated.
//
// The client lists the files a pull request changes and sets a pending
// commit status while a review is queued. Calls are wrapped in a retry loop
// that honors GitHub's rate limit responses:
//   - AbuseRateLimitError waits for the Retry-After duration
//   - RateLimitError waits until the limit resets
//   - 429, 502, 503 and 504 back off exponentially with jitter
//
// Other 4xx responses fail immediately.
//
// Example usage:
//
//	client, err := github.NewClient(token, github.WithBaseURL(apiURL))
//	if err != nil {
//	    return err
//	}
//
//	files, err := client.ListFiles(ctx, "owner", "repo", 123)
//	if err != nil {
//	    return err
//	}
//
//	err = client.CreateStatus(ctx, "owner", "repo", sha, &github.Status{
//	    State:       github.StatusStatePending,
//	    Description: "Review queued",
//	    Context:     "reviewd",
//	})
//
// An empty token gives an unauthenticated client limited to 60 requests
// per hour.
package github
