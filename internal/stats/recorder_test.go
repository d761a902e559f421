package stats

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeCounter struct {
	mu       sync.Mutex
	messages int
	users    map[string]bool
	err      error
}

func (f *fakeCounter) IncrementMessages(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages += n
	return nil
}

func (f *fakeCounter) AddUsers(ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.users == nil {
		f.users = map[string]bool{}
	}
	for _, id := range ids {
		f.users[id] = true
	}
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func runUntilDrained(r *Recorder, track func()) {
	ctx, cancel := context.WithCancel(context.Background())
	track()
	cancel()
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	<-done
}

func TestRecorder_CountsMessagesAndUsers(t *testing.T) {
	store := &fakeCounter{}
	r := NewRecorder(store, 16, quietLogger())

	runUntilDrained(r, func() {
		r.Track("5411", true)
		r.Track("5411", false)
		r.Track("5422", true)
		r.Track("5433", false)
	})

	assert.Equal(t, 4, store.messages)
	assert.Equal(t, map[string]bool{"5411": true, "5422": true}, store.users)
}

func TestRecorder_TrackNeverBlocks(t *testing.T) {
	store := &fakeCounter{}
	r := NewRecorder(store, 2, quietLogger())

	// Nobody is draining: the third hit is dropped instead of blocking.
	r.Track("a", true)
	r.Track("b", true)
	r.Track("c", true)

	runUntilDrained(r, func() {})
	assert.Equal(t, 2, store.messages)
}

func TestRecorder_StoreErrorsAreAbsorbed(t *testing.T) {
	store := &fakeCounter{err: errors.New("disk full")}
	r := NewRecorder(store, 4, quietLogger())

	assert.NotPanics(t, func() {
		runUntilDrained(r, func() { r.Track("a", true) })
	})
	assert.Zero(t, store.messages)
}
