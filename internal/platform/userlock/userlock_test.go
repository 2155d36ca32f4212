// Copyright (c) 2026 Tikra. All rights reserved.

package userlock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tikra-app/tikra/internal/platform/userlock"
)

/*
TestKeyed_Serializes verifies critical sections under the same key never
overlap: concurrent increments lose no updates.
*/
func TestKeyed_Serializes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keyed := userlock.NewKeyed(ctx)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := keyed.Lock("user-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

/*
TestKeyed_IndependentKeys verifies a held lock never blocks another key.
*/
func TestKeyed_IndependentKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keyed := userlock.NewKeyed(ctx)

	unlockOne := keyed.Lock("user-1")
	defer unlockOne()

	acquired := make(chan struct{})
	go func() {
		unlockTwo := keyed.Lock("user-2")
		defer unlockTwo()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		t.Fatal("lock on an independent key should not block")
	}
}
