package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	schedulerNameFieldNameConstant            = "scheduler_name"
	maxConcurrentFieldNameConstant            = "max_concurrent"
	minDispatchIntervalFieldNameConstant      = "min_dispatch_interval"
	requiredValueMessageConstant              = "value required"
	positiveValueMessageConstant              = "must be greater than zero"
	nonNegativeValueMessageConstant           = "must not be negative"
	invalidConfigurationTemplateConstant      = "%s: %s"
	schedulerClosedMessageConstant            = "scheduler closed"
	taskDispatchedMessageConstant             = "task dispatched"
	taskCanceledBeforeDispatchMessageConstant = "task canceled before dispatch"
	queueDepthFieldNameConstant               = "queue_depth"
	inFlightFieldNameConstant                 = "in_flight"
	dispatchSequenceFieldNameConstant         = "dispatch_sequence"
)

const singleSlotWeightConstant int64 = 1

// ErrSchedulerClosed is returned for tasks submitted to, or still queued in, a closed scheduler.
var ErrSchedulerClosed = errors.New(schedulerClosedMessageConstant)

// Configuration bounds the dispatch behavior of a Scheduler.
type Configuration struct {
	Name                string
	MaxConcurrent       int
	MinDispatchInterval time.Duration
}

// InvalidConfigurationError describes a rejected scheduler configuration field.
type InvalidConfigurationError struct {
	FieldName string
	Message   string
}

// Error describes the invalid configuration.
func (configurationError InvalidConfigurationError) Error() string {
	return fmt.Sprintf(invalidConfigurationTemplateConstant, configurationError.FieldName, configurationError.Message)
}

// DispatchObserver is notified every time a task leaves the queue.
type DispatchObserver func(dispatchSequence int64, dispatchedAt time.Time)

// Task is a unit of work executed under the scheduler's bounds.
type Task[T any] func(executionContext context.Context) (T, error)

type queuedTask struct {
	executionContext context.Context
	run              func()
	abandon          func(error)
}

// Scheduler admits queued tasks in FIFO order under concurrency and pacing bounds.
type Scheduler struct {
	configuration     Configuration
	logger            *zap.Logger
	slots             *semaphore.Weighted
	pacing            *rate.Limiter
	dispatchObserver  DispatchObserver
	queueMutex        sync.Mutex
	queue             []queuedTask
	queueSignal       chan struct{}
	closed            bool
	lifetimeContext   context.Context
	cancelLifetime    context.CancelFunc
	dispatcherStopped chan struct{}
	lastDispatchedAt  time.Time
	inFlight          atomic.Int64
	dispatchSequence  atomic.Int64
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger attaches a logger used for dispatch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(scheduler *Scheduler) {
		if logger != nil {
			scheduler.logger = logger
		}
	}
}

// WithDispatchObserver registers a callback invoked on every dispatch.
func WithDispatchObserver(observer DispatchObserver) Option {
	return func(scheduler *Scheduler) {
		scheduler.dispatchObserver = observer
	}
}

// NewScheduler validates the configuration and starts the dispatcher.
func NewScheduler(configuration Configuration, options ...Option) (*Scheduler, error) {
	if len(strings.TrimSpace(configuration.Name)) == 0 {
		return nil, InvalidConfigurationError{FieldName: schedulerNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if configuration.MaxConcurrent <= 0 {
		return nil, InvalidConfigurationError{FieldName: maxConcurrentFieldNameConstant, Message: positiveValueMessageConstant}
	}
	if configuration.MinDispatchInterval < 0 {
		return nil, InvalidConfigurationError{FieldName: minDispatchIntervalFieldNameConstant, Message: nonNegativeValueMessageConstant}
	}

	pacingLimit := rate.Inf
	if configuration.MinDispatchInterval > 0 {
		pacingLimit = rate.Every(configuration.MinDispatchInterval)
	}

	lifetimeContext, cancelLifetime := context.WithCancel(context.Background())

	scheduler := &Scheduler{
		configuration:     configuration,
		logger:            zap.NewNop(),
		slots:             semaphore.NewWeighted(int64(configuration.MaxConcurrent)),
		pacing:            rate.NewLimiter(pacingLimit, 1),
		queueSignal:       make(chan struct{}, 1),
		lifetimeContext:   lifetimeContext,
		cancelLifetime:    cancelLifetime,
		dispatcherStopped: make(chan struct{}),
	}
	for _, option := range options {
		option(scheduler)
	}

	go scheduler.dispatch()

	return scheduler, nil
}

// Name returns the configured scheduler name.
func (scheduler *Scheduler) Name() string {
	return scheduler.configuration.Name
}

// Close stops dispatching and abandons queued tasks with ErrSchedulerClosed.
// Tasks already running are left to complete.
func (scheduler *Scheduler) Close() {
	scheduler.queueMutex.Lock()
	if scheduler.closed {
		scheduler.queueMutex.Unlock()
		return
	}
	scheduler.closed = true
	scheduler.queueMutex.Unlock()

	scheduler.cancelLifetime()
	<-scheduler.dispatcherStopped

	scheduler.queueMutex.Lock()
	abandonedTasks := scheduler.queue
	scheduler.queue = nil
	scheduler.queueMutex.Unlock()

	for _, abandonedTask := range abandonedTasks {
		abandonedTask.abandon(ErrSchedulerClosed)
	}
}

// Schedule enqueues the task and returns a future resolving to its outcome.
// The task runs with the caller's context; a context canceled before dispatch
// resolves the future with the context error and the task never runs.
func Schedule[T any](executionContext context.Context, scheduler *Scheduler, task Task[T]) *Future[T] {
	future := newFuture[T]()
	if executionContext == nil {
		executionContext = context.Background()
	}

	entry := queuedTask{
		executionContext: executionContext,
		run: func() {
			value, taskError := task(executionContext)
			future.resolve(value, taskError)
		},
		abandon: func(abandonError error) {
			var zeroValue T
			future.resolve(zeroValue, abandonError)
		},
	}

	if !scheduler.enqueue(entry) {
		entry.abandon(ErrSchedulerClosed)
	}

	return future
}

// Run schedules the task and waits for its outcome.
func Run[T any](executionContext context.Context, scheduler *Scheduler, task Task[T]) (T, error) {
	return Schedule(executionContext, scheduler, task).Await(executionContext)
}

func (scheduler *Scheduler) enqueue(entry queuedTask) bool {
	scheduler.queueMutex.Lock()
	defer scheduler.queueMutex.Unlock()

	if scheduler.closed {
		return false
	}
	scheduler.queue = append(scheduler.queue, entry)

	select {
	case scheduler.queueSignal <- struct{}{}:
	default:
	}
	return true
}

func (scheduler *Scheduler) dequeue() (queuedTask, int, bool) {
	scheduler.queueMutex.Lock()
	defer scheduler.queueMutex.Unlock()

	if len(scheduler.queue) == 0 {
		return queuedTask{}, 0, false
	}
	entry := scheduler.queue[0]
	scheduler.queue[0] = queuedTask{}
	scheduler.queue = scheduler.queue[1:]
	return entry, len(scheduler.queue), true
}

func (scheduler *Scheduler) dispatch() {
	defer close(scheduler.dispatcherStopped)

	for {
		entry, remainingDepth, available := scheduler.dequeue()
		if !available {
			select {
			case <-scheduler.queueSignal:
				continue
			case <-scheduler.lifetimeContext.Done():
				return
			}
		}

		if contextError := entry.executionContext.Err(); contextError != nil {
			scheduler.logger.Debug(taskCanceledBeforeDispatchMessageConstant, zap.String(schedulerNameFieldNameConstant, scheduler.configuration.Name))
			entry.abandon(contextError)
			continue
		}

		if acquireError := scheduler.slots.Acquire(scheduler.lifetimeContext, singleSlotWeightConstant); acquireError != nil {
			entry.abandon(ErrSchedulerClosed)
			return
		}

		if waitError := scheduler.awaitDispatchWindow(); waitError != nil {
			scheduler.slots.Release(singleSlotWeightConstant)
			entry.abandon(ErrSchedulerClosed)
			return
		}

		dispatchedAt := time.Now()
		scheduler.lastDispatchedAt = dispatchedAt
		sequence := scheduler.dispatchSequence.Add(1)
		inFlight := scheduler.inFlight.Add(1)
		if scheduler.dispatchObserver != nil {
			scheduler.dispatchObserver(sequence, dispatchedAt)
		}
		scheduler.logger.Debug(
			taskDispatchedMessageConstant,
			zap.String(schedulerNameFieldNameConstant, scheduler.configuration.Name),
			zap.Int64(dispatchSequenceFieldNameConstant, sequence),
			zap.Int64(inFlightFieldNameConstant, inFlight),
			zap.Int(queueDepthFieldNameConstant, remainingDepth),
		)

		go func(dispatchedEntry queuedTask) {
			defer func() {
				scheduler.inFlight.Add(-1)
				scheduler.slots.Release(singleSlotWeightConstant)
			}()
			dispatchedEntry.run()
		}(entry)
	}
}

// awaitDispatchWindow blocks until the pacing limiter admits the next task and
// at least MinDispatchInterval has elapsed since the previous actual dispatch.
func (scheduler *Scheduler) awaitDispatchWindow() error {
	if waitError := scheduler.pacing.Wait(scheduler.lifetimeContext); waitError != nil {
		return waitError
	}
	if scheduler.configuration.MinDispatchInterval <= 0 || scheduler.lastDispatchedAt.IsZero() {
		return nil
	}

	earliestDispatch := scheduler.lastDispatchedAt.Add(scheduler.configuration.MinDispatchInterval)
	for {
		remaining := time.Until(earliestDispatch)
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-scheduler.lifetimeContext.Done():
			timer.Stop()
			return scheduler.lifetimeContext.Err()
		}
	}
}
