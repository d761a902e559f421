package stats

import (
	"context"

	"github.com/sirupsen/logrus"
)

const maxBatch = 64

// Counter is the storage side of the usage counters.
type Counter interface {
	IncrementMessages(n int) error
	AddUsers(ids ...string) error
}

type hit struct {
	sender    string
	countUser bool
}

// Recorder collects message and unique-user counts off the dispatch path.
// Track never blocks; Run applies the counts to the store in batches.
type Recorder struct {
	store Counter
	hits  chan hit
	log   logrus.FieldLogger
}

func NewRecorder(store Counter, buffer int, log logrus.FieldLogger) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		store: store,
		hits:  make(chan hit, buffer),
		log:   log.WithField("component", "stats"),
	}
}

// Track counts one inbound message. When countUser is set the sender is
// also added to the unique-user set. Hits are dropped when the buffer is full.
func (r *Recorder) Track(sender string, countUser bool) {
	select {
	case r.hits <- hit{sender: sender, countUser: countUser}:
	default:
		r.log.WithField("from", sender).Warn("stats buffer full, dropping hit")
	}
}

// Run drains tracked hits until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case h := <-r.hits:
			r.apply(r.collect(h))
		case <-ctx.Done():
			for {
				select {
				case h := <-r.hits:
					r.apply(r.collect(h))
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) collect(first hit) []hit {
	batch := []hit{first}
	for len(batch) < maxBatch {
		select {
		case h := <-r.hits:
			batch = append(batch, h)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) apply(batch []hit) {
	var users []string
	for _, h := range batch {
		if h.countUser && h.sender != "" {
			users = append(users, h.sender)
		}
	}

	if err := r.store.IncrementMessages(len(batch)); err != nil {
		r.log.WithError(err).Error("incrementing message count")
	}
	if len(users) == 0 {
		return
	}
	if err := r.store.AddUsers(users...); err != nil {
		r.log.WithError(err).Error("updating unique users")
	}
}
