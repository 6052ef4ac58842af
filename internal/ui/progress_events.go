package ui

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/migration"
)

const (
	progressMessageTemplateConstant       = "%s %d/%d (created %d, existing %d, skipped %d, failed %d)"
	groupStartedMessageTemplateConstant   = "Migrating group %s"
	groupCompletedMessageTemplateConstant = "Group %s migrated into community %s"
	groupFailedMessageTemplateConstant    = "Group %s stopped in state %s: %s"
	unknownFailureMessageConstant         = "unknown error"
	defaultReportIntervalConstant         = 10
)

// ProgressEventFormatter builds human-readable messages for migration progress.
type ProgressEventFormatter struct{}

// BuildProgressMessage formats the running counter of one entity kind.
func (formatter ProgressEventFormatter) BuildProgressMessage(kind migration.ProgressKind, snapshot migration.ProgressSnapshot) string {
	total := snapshot.Total
	if processed := snapshot.Processed(); processed > total {
		total = processed
	}
	return fmt.Sprintf(
		progressMessageTemplateConstant,
		kind,
		snapshot.Processed(),
		total,
		snapshot.Created,
		snapshot.SkippedExisting,
		snapshot.Skipped,
		snapshot.Failed,
	)
}

// BuildGroupStartedMessage formats the message announcing a group migration.
func (formatter ProgressEventFormatter) BuildGroupStartedMessage(groupLabel string) string {
	return fmt.Sprintf(groupStartedMessageTemplateConstant, groupLabel)
}

// BuildGroupFinishedMessage formats the outcome of one group migration.
func (formatter ProgressEventFormatter) BuildGroupFinishedMessage(report migration.GroupReport) string {
	if report.FinalState == migration.StateDone {
		return fmt.Sprintf(groupCompletedMessageTemplateConstant, report.GroupID, report.CommunityID)
	}
	failureMessage := report.Failure
	if len(failureMessage) == 0 {
		failureMessage = unknownFailureMessageConstant
	}
	return fmt.Sprintf(groupFailedMessageTemplateConstant, report.GroupID, lastActiveState(report), failureMessage)
}

// lastActiveState is the state the group was in when it failed.
func lastActiveState(report migration.GroupReport) migration.State {
	for transitionIndex := len(report.Transitions) - 1; transitionIndex >= 0; transitionIndex-- {
		if state := report.Transitions[transitionIndex]; state != migration.StateFailed {
			return state
		}
	}
	return report.FinalState
}

// ConsoleProgressReporter renders progress through a zap logger configured for human-readable output.
// A line is emitted every reportInterval outcomes of a kind and whenever a kind reaches its total.
type ConsoleProgressReporter struct {
	logger         *zap.Logger
	formatter      ProgressEventFormatter
	reportInterval int64
	counters       *migration.ProgressCounters
	emitMutex      sync.Mutex
}

// NewConsoleProgressReporter constructs a reporter. A non-positive interval uses 10.
func NewConsoleProgressReporter(logger *zap.Logger, reportInterval int) *ConsoleProgressReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reportInterval <= 0 {
		reportInterval = defaultReportIntervalConstant
	}
	return &ConsoleProgressReporter{
		logger:         logger,
		formatter:      ProgressEventFormatter{},
		reportInterval: int64(reportInterval),
		counters:       migration.NewProgressCounters(),
	}
}

// AddTotal implements migration.ProgressReporter.
func (reporter *ConsoleProgressReporter) AddTotal(kind migration.ProgressKind, delta int) {
	if reporter == nil {
		return
	}
	reporter.emitMutex.Lock()
	defer reporter.emitMutex.Unlock()
	reporter.counters.AddTotal(kind, delta)
}

// Record implements migration.ProgressReporter.
func (reporter *ConsoleProgressReporter) Record(kind migration.ProgressKind, outcome migration.OutcomeKind) {
	if reporter == nil {
		return
	}
	reporter.emitMutex.Lock()
	defer reporter.emitMutex.Unlock()
	reporter.counters.Record(kind, outcome)
	snapshot := reporter.counters.Snapshot(kind)
	processed := snapshot.Processed()
	if processed%reporter.reportInterval == 0 || processed == snapshot.Total {
		reporter.logger.Info(reporter.formatter.BuildProgressMessage(kind, snapshot))
	}
}

// GroupStarted logs the start of a group migration and resets the counters.
func (reporter *ConsoleProgressReporter) GroupStarted(groupLabel string) {
	if reporter == nil {
		return
	}
	reporter.emitMutex.Lock()
	reporter.counters = migration.NewProgressCounters()
	reporter.emitMutex.Unlock()
	reporter.logger.Info(reporter.formatter.BuildGroupStartedMessage(groupLabel))
}

// GroupFinished logs the outcome of a group migration.
func (reporter *ConsoleProgressReporter) GroupFinished(report migration.GroupReport) {
	if reporter == nil {
		return
	}
	message := reporter.formatter.BuildGroupFinishedMessage(report)
	if report.FinalState == migration.StateDone {
		reporter.logger.Info(message)
		return
	}
	reporter.logger.Error(message)
}
