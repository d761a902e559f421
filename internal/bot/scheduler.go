package bot

import "time"

// Scheduler runs fn once after d. Scheduled work cannot be cancelled.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
