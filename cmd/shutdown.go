package main

import (
	"context"
	"errors"
	"log/slog"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

type shutdownStep struct {
	name string
	run  func(ctx context.Context) error
}

// inOrder runs steps one after another so later steps (closing storage)
// only start once earlier ones (draining HTTP, stopping the hub) are done.
// A failing step is logged and the rest still run.
func inOrder(steps ...shutdownStep) gfshutdown.Operation {
	return func(ctx context.Context) error {
		var errs []error
		for _, step := range steps {
			if err := step.run(ctx); err != nil {
				slog.Error("shutdown_step_failed", "step", step.name, "error", err)
				errs = append(errs, err)
				continue
			}
			slog.Info("shutdown_step_done", "step", step.name)
		}
		return errors.Join(errs...)
	}
}
