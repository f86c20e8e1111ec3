package main

import (
	"context"
	"errors"

	"github.com/razor389/prop-simulator/internal/ports"
)

func runHistory(ctx context.Context, store ports.Storage, notifier ports.Notifier, limit int) error {
	if store == nil {
		return errors.New("history needs storage; remove -no-store or storage.disabled")
	}
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return notifier.NotifyHistory(ctx, runs)
}
