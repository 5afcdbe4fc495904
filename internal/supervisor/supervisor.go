// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package manages the node workers: each worker runs in its own
// goroutine and the supervisor stops all of them when one fails or when
// the context is canceled.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const DefaultShutdownTimeout = 5 * time.Second
const DefaultStartTimeout = time.Minute

// A worker that runs in the background.
type Worker interface {
	fmt.Stringer

	// Start the worker.
	// The worker should send a message to the ready channel when it is ready.
	Start(ctx context.Context, ready chan<- struct{}) error
}

// The SupervisorWorker starts its workers in order, waiting for each one to
// become ready before starting the next. It stops all workers when one of
// them exits or when its own context is canceled.
type SupervisorWorker struct {
	Name         string
	Workers      []Worker
	StartTimeout time.Duration
}

func (w SupervisorWorker) String() string {
	if w.Name != "" {
		return w.Name
	}
	return "supervisor"
}

func (w SupervisorWorker) Start(ctx context.Context, ready chan<- struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startTimeout := w.StartTimeout
	if startTimeout == 0 {
		startTimeout = DefaultStartTimeout
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	errs := make(chan error, len(w.Workers))
	for _, worker := range w.Workers {
		// buffered so a late ready never blocks the worker goroutine
		workerReady := make(chan struct{}, 1)
		wg.Add(1)
		go func(worker Worker) {
			defer wg.Done()
			defer cancel()
			err := worker.Start(ctx, workerReady)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("supervisor: worker exited with error",
					"worker", worker.String(), "error", err)
				errs <- err
			} else {
				slog.Debug("supervisor: worker exited", "worker", worker.String())
			}
		}(worker)

		select {
		case <-workerReady:
			slog.Debug("supervisor: worker is ready", "worker", worker.String())
		case <-ctx.Done():
			return w.firstError(errs, ctx.Err())
		case <-time.After(startTimeout):
			return fmt.Errorf("supervisor: %v did not become ready", worker.String())
		}
	}

	ready <- struct{}{}
	<-ctx.Done()
	return w.firstError(errs, nil)
}

func (w SupervisorWorker) firstError(errs <-chan error, fallback error) error {
	select {
	case err := <-errs:
		return err
	default:
		return fallback
	}
}

// HttpWorker runs an HTTP server on the given address.
type HttpWorker struct {
	Address string
	Handler http.Handler
}

func (w HttpWorker) String() string {
	return "http " + w.Address
}

func (w HttpWorker) Start(ctx context.Context, ready chan<- struct{}) error {
	listener, err := net.Listen("tcp", w.Address)
	if err != nil {
		return err
	}
	server := http.Server{Handler: w.Handler}
	slog.Info("http: server started listening", "address", w.Address)
	ready <- struct{}{}

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(listener)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
