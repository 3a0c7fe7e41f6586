package apply

import (
	"context"
	"fmt"
)

// Checkout guards exclusive use of a single working copy. Holders keep it
// for a whole directive: branch switch, write, commit, push.
type Checkout struct {
	sem chan struct{}
}

// NewCheckout creates an unheld checkout lock.
func NewCheckout() *Checkout {
	return &Checkout{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the working copy is free or ctx ends. The returned
// release func must be called exactly once.
func (c *Checkout) Acquire(ctx context.Context) (func(), error) {
	select {
	case c.sem <- struct{}{}:
		return func() { <-c.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for working copy: %w", ctx.Err())
	}
}
