package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many items of a job have been processed.
type ProgressBar struct {
	lock sync.Mutex

	id         string
	name       string
	startTime  time.Time
	total      uint64
	finished   uint64
	inProgress uint64
}

// ProgressStatus is a snapshot of a ProgressBar.
type ProgressStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress items.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress += amount
}

// IncrementFinished adds to the number of finished items.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished += amount
}

// MoveInProgressToFinished reduces the number of in progress items by a
// certain amount and increases the finished items by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress -= amount
	b.finished += amount
}

// Status returns the current counts.
func (b *ProgressBar) Status() ProgressStatus {
	b.lock.Lock()
	defer b.lock.Unlock()

	return ProgressStatus{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.startTime,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}
}
