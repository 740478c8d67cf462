package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesPerKey(t *testing.T) {
	km := New()
	counter := 0

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			km.Lock("user")
			counter++
			km.Unlock("user")
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
}

func TestLockOrderedAvoidsABBADeadlock(t *testing.T) {
	km := New()

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2 * rounds)
	for i := 0; i < rounds; i++ {
		go func() {
			defer wg.Done()
			unlock := km.LockOrdered("a", "b")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := km.LockOrdered("b", "a")
			unlock()
		}()
	}
	wg.Wait()
}

func TestLockOrderedDedupesKeys(t *testing.T) {
	km := New()
	unlock := km.LockOrdered("a", "a")
	unlock()

	// A second acquisition succeeds, so the duplicate was locked once.
	unlock = km.LockOrdered("a")
	unlock()
}
