package migration

import (
	"sync"
	"sync/atomic"
)

// ProgressKind names a progress counter.
type ProgressKind string

// Progress counters maintained during a group migration.
const (
	ProgressUsers     ProgressKind = "users"
	ProgressJoins     ProgressKind = "joins"
	ProgressFollows   ProgressKind = "follows"
	ProgressPosts     ProgressKind = "posts"
	ProgressReactions ProgressKind = "reactions"
	ProgressComments  ProgressKind = "comments"
)

// ProgressKinds lists the counters in display order.
var ProgressKinds = []ProgressKind{ProgressUsers, ProgressJoins, ProgressFollows, ProgressPosts, ProgressReactions, ProgressComments}

// ProgressReporter observes running totals. Implementations must be safe for concurrent use.
type ProgressReporter interface {
	AddTotal(kind ProgressKind, delta int)
	Record(kind ProgressKind, outcome OutcomeKind)
}

// ProgressSnapshot is a point-in-time view of one counter.
type ProgressSnapshot struct {
	Total           int64 `yaml:"total"`
	Created         int64 `yaml:"created"`
	SkippedExisting int64 `yaml:"skipped_existing"`
	Skipped         int64 `yaml:"skipped"`
	Failed          int64 `yaml:"failed"`
}

// Processed is the number of entities that reached any outcome.
func (snapshot ProgressSnapshot) Processed() int64 {
	return snapshot.Created + snapshot.SkippedExisting + snapshot.Skipped + snapshot.Failed
}

type kindCounters struct {
	total           atomic.Int64
	created         atomic.Int64
	skippedExisting atomic.Int64
	skipped         atomic.Int64
	failed          atomic.Int64
}

// ProgressCounters keeps atomic counters per kind and forwards every update to its listeners.
type ProgressCounters struct {
	countersMutex sync.Mutex
	counters      map[ProgressKind]*kindCounters
	listeners     []ProgressReporter
}

// NewProgressCounters constructs counters forwarding to the non-nil listeners.
func NewProgressCounters(listeners ...ProgressReporter) *ProgressCounters {
	activeListeners := make([]ProgressReporter, 0, len(listeners))
	for _, listener := range listeners {
		if listener != nil {
			activeListeners = append(activeListeners, listener)
		}
	}
	return &ProgressCounters{counters: make(map[ProgressKind]*kindCounters), listeners: activeListeners}
}

// AddTotal grows the expected total of kind.
func (progress *ProgressCounters) AddTotal(kind ProgressKind, delta int) {
	if delta == 0 {
		return
	}
	progress.countersFor(kind).total.Add(int64(delta))
	for _, listener := range progress.listeners {
		listener.AddTotal(kind, delta)
	}
}

// Record counts one entity outcome of kind.
func (progress *ProgressCounters) Record(kind ProgressKind, outcome OutcomeKind) {
	counters := progress.countersFor(kind)
	switch outcome {
	case OutcomeCreated:
		counters.created.Add(1)
	case OutcomeSkippedExisting:
		counters.skippedExisting.Add(1)
	case OutcomeSkipped:
		counters.skipped.Add(1)
	case OutcomeFailed:
		counters.failed.Add(1)
	}
	for _, listener := range progress.listeners {
		listener.Record(kind, outcome)
	}
}

// Snapshot returns the current value of one counter.
func (progress *ProgressCounters) Snapshot(kind ProgressKind) ProgressSnapshot {
	counters := progress.countersFor(kind)
	return ProgressSnapshot{
		Total:           counters.total.Load(),
		Created:         counters.created.Load(),
		SkippedExisting: counters.skippedExisting.Load(),
		Skipped:         counters.skipped.Load(),
		Failed:          counters.failed.Load(),
	}
}

// Snapshots returns every counter keyed by kind.
func (progress *ProgressCounters) Snapshots() map[ProgressKind]ProgressSnapshot {
	snapshots := make(map[ProgressKind]ProgressSnapshot, len(ProgressKinds))
	for _, kind := range ProgressKinds {
		snapshots[kind] = progress.Snapshot(kind)
	}
	return snapshots
}

func (progress *ProgressCounters) countersFor(kind ProgressKind) *kindCounters {
	progress.countersMutex.Lock()
	defer progress.countersMutex.Unlock()
	counters, exists := progress.counters[kind]
	if !exists {
		counters = &kindCounters{}
		progress.counters[kind] = counters
	}
	return counters
}
