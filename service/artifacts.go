package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cipherbet/engine/circuits/voteproof"
)

// PrepareArtifacts builds the proving artifacts ahead of serving, so the
// first proof-carrying submission does not pay the one time circuit compile
// and setup. The setup itself cannot be interrupted; the timeout only
// bounds how long the caller waits for it.
func PrepareArtifacts(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := voteproof.VerifyingKey()
		return err
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
