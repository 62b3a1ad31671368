// Package app provides the document QA server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/docrag/cmd/docrag/app/options"
	"github.com/kart-io/docrag/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "docrag"

	// commandDesc is the description of the command.
	commandDesc = `Document QA Service

Retrieval-augmented question answering over uploaded documents.

This server provides:
  - Document upload to object storage with presigned download URLs
  - Background ingestion: extraction, chunking and vector indexing
  - Ingestion progress tracking
  - Question answering scoped to a single document (OpenAI or Hunyuan)`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.New(
		app.WithName(Name),
		app.WithShortDescription("Document QA service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal forces immediate exit.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
