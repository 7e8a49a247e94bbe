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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/mikelane/reviewd/internal/config"
	"github.com/mikelane/reviewd/internal/github"
	"github.com/mikelane/reviewd/internal/pullrequest"
	"github.com/mikelane/reviewd/internal/webhook"
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file.")
	opts := zap.Options{}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if opts.Level == nil {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid log.level %q: %v\n", cfg.Log.Level, err)
			os.Exit(1)
		}
		opts.Level = level
	}
	if cfg.Log.Development {
		opts.Development = true
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	ctx := log.IntoContext(ctrl.SetupSignalHandler(), ctrl.Log.WithName("reviewd"))
	if err := run(ctx, cfg); err != nil {
		setupLog.Error(err, "reviewd exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	maxBodySize, err := cfg.MaxBodySize()
	if err != nil {
		return fmt.Errorf("webhook.max_body_size: %w", err)
	}

	secrets := cfg.SecretProvider()
	if _, ok := secrets.Secret(); !ok {
		// Keep serving so every delivery gets an explicit 500 instead of a refused connection.
		setupLog.Error(nil, "GITHUB_WEBHOOK_SECRET is not set; all webhook requests will be rejected")
	}

	handlerOpts := []pullrequest.Option{
		pullrequest.WithRateLimiter(pullrequest.NewRateLimiter(cfg.PullRequest.RateLimit, cfg.PullRequest.RateWindow)),
	}
	token, err := cfg.GitHubToken()
	switch {
	case errors.Is(err, config.ErrGitHubTokenNotSet):
		setupLog.Info("GITHUB_PAT not set; GitHub enrichment disabled")
	case err != nil:
		return err
	default:
		client, err := github.NewClient(token, github.WithBaseURL(cfg.GitHub.APIURL))
		if err != nil {
			return fmt.Errorf("creating GitHub client: %w", err)
		}
		handlerOpts = append(handlerOpts, pullrequest.WithClient(client))
	}
	prHandler := pullrequest.NewHandler(handlerOpts...)

	registry := webhook.NewRegistry()
	prHandler.Register(registry)
	setupLog.Info("Registered event handlers", "events", registry.EventTypes())

	g, ctx := errgroup.WithContext(ctx)

	var dispatcherOpts []webhook.DispatcherOption
	if cfg.Webhook.Async {
		queue := webhook.NewQueueInvoker(cfg.Webhook.Workers)
		dispatcherOpts = append(dispatcherOpts, webhook.WithInvoker(queue))
		g.Go(func() error { return queue.Start(ctx) })
	}
	dispatcher := webhook.NewDispatcher(secrets, registry, dispatcherOpts...)

	server := webhook.NewServer(cfg.Server.Host, cfg.Server.Port, dispatcher,
		webhook.WithPath(cfg.Webhook.Path),
		webhook.WithMaxBodySize(maxBodySize),
	)
	g.Go(func() error { return server.Start(ctx) })
	g.Go(func() error { return prHandler.RateLimiter().Run(ctx) })

	return g.Wait()
}
