package migration

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	groupStartedMessageConstant        = "group migration started"
	groupFinishedMessageConstant       = "group migration finished"
	groupFailedMessageConstant         = "group migration failed"
	stateChangedMessageConstant        = "migration state changed"
	postCompletedMessageConstant       = "post fan-out already completed"
	ledgerUnavailableMessageConstant   = "completion ledger unavailable"
	membersPageMessageConstant         = "member page migrated"
	postsPageMessageConstant           = "post page migrated"
	stateFieldNameConstant             = "state"
	pagesFetchedFieldNameConstant      = "pages_fetched"
	itemCountFieldNameConstant         = "item_count"
	invalidTransitionTemplateConstant  = "%w: %s -> %s"
	postLedgerKeyTemplateConstant      = "post:%s:%s"
	communityUnavailableReasonConstant = "community not available"
)

// ErrInvalidStateTransition indicates an orchestrator bug: a transition the state machine does not allow.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// State is a step of a group migration.
type State string

// Group migration states.
const (
	StateGroupPending State      = "group_pending"
	StateCommunityResolved State = "community_resolved"
	StateMembersMigrating State  = "members_migrating"
	StatePostsMigrating State    = "posts_migrating"
	StateDone State              = "done"
	StateFailed State            = "failed"
)

var allowedTransitions = map[State]State{
	StateGroupPending:      StateCommunityResolved,
	StateCommunityResolved: StateMembersMigrating,
	StateMembersMigrating:  StatePostsMigrating,
	StatePostsMigrating:    StateDone,
}

// CanTransition reports whether the state machine allows moving from one state to another.
// Failed is reachable from every non-terminal state.
func CanTransition(from State, to State) bool {
	if from == StateDone || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	return allowedTransitions[from] == to
}

// CompletionLedger records source posts whose reactions and comments were fully migrated.
type CompletionLedger interface {
	IsCompleted(executionContext context.Context, key string) (bool, error)
	MarkCompleted(executionContext context.Context, key string) error
}

// OrchestratorOptions tune a group migration.
type OrchestratorOptions struct {
	AuthIdentity            string
	MediaHostPrefix         string
	DeviceIDPrefix          string
	ContinueOnEntityFailure bool
}

// OrchestratorDependencies supplies the collaborators of an Orchestrator.
// Reporter, Ledger and Logger are optional.
type OrchestratorDependencies struct {
	Source      SourceReader
	Destination Destination
	Downloader  MediaDownloader
	Reporter    ProgressReporter
	Ledger      CompletionLedger
	Logger      *zap.Logger
	Options     OrchestratorOptions
}

// GroupReport summarizes one group migration.
type GroupReport struct {
	GroupID     string                            `yaml:"group_id"`
	CommunityID string                            `yaml:"community_id,omitempty"`
	FinalState  State                             `yaml:"final_state"`
	Transitions []State                           `yaml:"transitions"`
	Progress    map[ProgressKind]ProgressSnapshot `yaml:"progress"`
	Failure     string                            `yaml:"failure,omitempty"`
}

// Orchestrator drives a group through the migration state machine.
type Orchestrator struct {
	source      SourceReader
	reporter    ProgressReporter
	ledger      CompletionLedger
	logger      *zap.Logger
	policy      FailurePolicy
	communities *CommunityMigrator
	memberships *MembershipMigrator
	posts       *PostMigrator
	reactions   *ReactionMigrator
	comments    *CommentMigrator
}

// NewOrchestrator wires the entity migrators around the supplied collaborators.
func NewOrchestrator(dependencies OrchestratorDependencies) (*Orchestrator, error) {
	if dependencies.Source == nil {
		return nil, ErrSourceNotConfigured
	}
	if dependencies.Destination == nil {
		return nil, ErrDestinationNotConfigured
	}
	if dependencies.Downloader == nil {
		return nil, ErrDownloaderNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	options := dependencies.Options
	policy := FailurePolicy{ContinueOnEntityFailure: options.ContinueOnEntityFailure, logger: logger}
	destination := dependencies.Destination
	guard := NewIdempotencyGuard(destination, logger)
	sessions := NewSessionProvider(destination, options.DeviceIDPrefix, logger)
	attachments := NewAttachmentMigrator(dependencies.Downloader, destination, logger)
	users := NewUserMigrator(destination, sessions, attachments, UserMigratorOptions{
		AuthIdentity:    options.AuthIdentity,
		MediaHostPrefix: options.MediaHostPrefix,
	}, logger)

	return &Orchestrator{
		source:      dependencies.Source,
		reporter:    dependencies.Reporter,
		ledger:      dependencies.Ledger,
		logger:      logger,
		policy:      policy,
		communities: NewCommunityMigrator(guard, destination, attachments, logger),
		memberships: NewMembershipMigrator(dependencies.Source, users, sessions, destination, policy, logger),
		posts:       NewPostMigrator(guard, destination, sessions, attachments, logger),
		reactions:   NewReactionMigrator(destination, sessions, logger),
		comments:    NewCommentMigrator(destination, sessions, attachments, logger),
	}, nil
}

type groupRun struct {
	orchestrator *Orchestrator
	group        getsocial.Group
	progress     *ProgressCounters
	report       GroupReport
	logger       *zap.Logger
}

// MigrateGroup runs group from GroupPending to Done. On an unrecovered error the
// report ends in Failed and the error is returned alongside it.
func (orchestrator *Orchestrator) MigrateGroup(executionContext context.Context, group getsocial.Group) (GroupReport, error) {
	run := &groupRun{
		orchestrator: orchestrator,
		group:        group,
		progress:     NewProgressCounters(orchestrator.reporter),
		report:       GroupReport{GroupID: group.ID, FinalState: StateGroupPending, Transitions: []State{StateGroupPending}},
		logger:       orchestrator.logger.With(zap.String(groupIDFieldNameConstant, group.ID)),
	}
	run.logger.Info(groupStartedMessageConstant)

	runError := run.execute(executionContext)
	run.report.Progress = run.progress.Snapshots()
	if runError != nil {
		run.report.Failure = runError.Error()
		if transitionError := run.transition(StateFailed); transitionError != nil {
			runError = errors.Join(runError, transitionError)
		}
		run.logger.Error(groupFailedMessageConstant, zap.Error(runError))
		return run.report, runError
	}
	run.logger.Info(groupFinishedMessageConstant, zap.String(communityIDFieldNameConstant, run.report.CommunityID))
	return run.report, nil
}

func (run *groupRun) execute(executionContext context.Context) error {
	communityOutcome := run.orchestrator.communities.Migrate(executionContext, run.group)
	if !communityOutcome.Available() {
		if communityError := communityOutcome.Err(); communityError != nil {
			return communityError
		}
		return EntityError{Kind: EntityKindCommunity, SourceID: run.group.ID, Cause: errors.New(communityUnavailableReasonConstant)}
	}
	community := communityOutcome.Value
	run.report.CommunityID = community.CommunityID
	if transitionError := run.transition(StateCommunityResolved); transitionError != nil {
		return transitionError
	}

	if transitionError := run.transition(StateMembersMigrating); transitionError != nil {
		return transitionError
	}
	if membersError := run.migrateMembers(executionContext, community); membersError != nil {
		return membersError
	}

	if transitionError := run.transition(StatePostsMigrating); transitionError != nil {
		return transitionError
	}
	if postsError := run.migratePosts(executionContext, community); postsError != nil {
		return postsError
	}
	return run.transition(StateDone)
}

func (run *groupRun) transition(next State) error {
	current := run.report.FinalState
	if !CanTransition(current, next) {
		return fmt.Errorf(invalidTransitionTemplateConstant, ErrInvalidStateTransition, current, next)
	}
	run.report.FinalState = next
	run.report.Transitions = append(run.report.Transitions, next)
	run.logger.Debug(stateChangedMessageConstant, zap.String(stateFieldNameConstant, string(next)))
	return nil
}

// migrateMembers drains member pagination, one page at a time.
func (run *groupRun) migrateMembers(executionContext context.Context, community amity.Community) error {
	run.progress.AddTotal(ProgressUsers, run.group.MembersCount)
	run.progress.AddTotal(ProgressJoins, run.group.MembersCount)

	memberFetcher := run.orchestrator.source.GroupMembers(run.group.ID)
	for members, pageError := range memberFetcher.Pages(executionContext) {
		if pageError != nil {
			return pageError
		}
		if pageMigrationError := run.orchestrator.memberships.MigratePage(executionContext, community, members, run.progress); pageMigrationError != nil {
			return pageMigrationError
		}
		run.logger.Debug(membersPageMessageConstant, zap.Int(pagesFetchedFieldNameConstant, memberFetcher.PagesFetched()), zap.Int(itemCountFieldNameConstant, len(members)))
	}
	return nil
}

// migratePosts drains post pagination; the posts of one page migrate concurrently.
func (run *groupRun) migratePosts(executionContext context.Context, community amity.Community) error {
	postFetcher := run.orchestrator.source.GroupPosts(run.group.ID)
	for posts, pageError := range postFetcher.Pages(executionContext) {
		if pageError != nil {
			return pageError
		}
		run.progress.AddTotal(ProgressPosts, len(posts))

		var postBatch errgroup.Group
		for _, post := range posts {
			postBatch.Go(func() error {
				return run.migratePost(executionContext, community, post)
			})
		}
		if batchError := postBatch.Wait(); batchError != nil {
			return batchError
		}
		run.logger.Debug(postsPageMessageConstant, zap.Int(pagesFetchedFieldNameConstant, postFetcher.PagesFetched()), zap.Int(itemCountFieldNameConstant, len(posts)))
	}
	return nil
}

func (run *groupRun) migratePost(executionContext context.Context, community amity.Community, post getsocial.Activity) error {
	postOutcome := run.orchestrator.posts.Migrate(executionContext, community, post)
	run.progress.Record(ProgressPosts, postOutcome.Kind)
	if !postOutcome.Available() {
		return run.orchestrator.policy.escalate(postOutcome.Err())
	}

	ledgerKey := fmt.Sprintf(postLedgerKeyTemplateConstant, community.CommunityID, post.ID)
	if postOutcome.Kind == OutcomeSkippedExisting && run.completed(executionContext, ledgerKey) {
		run.logger.Debug(postCompletedMessageConstant, zap.String(postIDFieldNameConstant, post.ID))
		run.progress.AddTotal(ProgressReactions, post.TotalReactions())
		run.progress.AddTotal(ProgressComments, post.CommentsCount)
		for range post.TotalReactions() {
			run.progress.Record(ProgressReactions, OutcomeSkippedExisting)
		}
		for range post.CommentsCount {
			run.progress.Record(ProgressComments, OutcomeSkippedExisting)
		}
		return nil
	}

	destinationPost := postOutcome.Value
	reactionFailures := run.migrateReactions(executionContext, post, destinationPost)
	commentFailures := run.migrateComments(executionContext, post, destinationPost)
	if reactionFailures == 0 && commentFailures == 0 && run.orchestrator.ledger != nil {
		if markError := run.orchestrator.ledger.MarkCompleted(executionContext, ledgerKey); markError != nil {
			run.logger.Warn(ledgerUnavailableMessageConstant, zap.String(postIDFieldNameConstant, post.ID), zap.Error(markError))
		}
	}
	return nil
}

func (run *groupRun) completed(executionContext context.Context, ledgerKey string) bool {
	if run.orchestrator.ledger == nil {
		return false
	}
	completed, ledgerError := run.orchestrator.ledger.IsCompleted(executionContext, ledgerKey)
	if ledgerError != nil {
		run.logger.Warn(ledgerUnavailableMessageConstant, zap.String(postIDFieldNameConstant, ledgerKey), zap.Error(ledgerError))
		return false
	}
	return completed
}

// migrateReactions walks reaction pages in order; reactions of one page migrate concurrently.
// It returns the number of failures, which never abort the post.
func (run *groupRun) migrateReactions(executionContext context.Context, post getsocial.Activity, destinationPost amity.Post) int64 {
	run.progress.AddTotal(ProgressReactions, post.TotalReactions())
	var failures atomic.Int64
	for reactions, pageError := range run.orchestrator.source.PostReactions(post.ID).Pages(executionContext) {
		if pageError != nil {
			run.logger.Error(reactionFailedMessageConstant, zap.String(postIDFieldNameConstant, post.ID), zap.Error(pageError))
			failures.Add(1)
			break
		}
		var reactionBatch errgroup.Group
		for _, reaction := range reactions {
			for _, reactionName := range reaction.Reactions {
				reactionBatch.Go(func() error {
					reactionOutcome := run.orchestrator.reactions.Migrate(executionContext, destinationPost, reaction.Author, reactionName)
					run.progress.Record(ProgressReactions, reactionOutcome.Kind)
					if reactionOutcome.Kind == OutcomeFailed {
						failures.Add(1)
					}
					return nil
				})
			}
		}
		_ = reactionBatch.Wait()
	}
	return failures.Load()
}

// migrateComments creates comments one at a time in source order, skipping the
// prefix the destination post already holds. It returns the number of failures.
func (run *groupRun) migrateComments(executionContext context.Context, post getsocial.Activity, destinationPost amity.Post) int64 {
	run.progress.AddTotal(ProgressComments, post.CommentsCount)
	var failures int64
	commentIndex := 0
	for comment, itemError := range run.orchestrator.source.PostComments(post.ID).Items(executionContext) {
		if itemError != nil {
			run.logger.Error(commentFailedMessageConstant, zap.String(postIDFieldNameConstant, post.ID), zap.Error(itemError))
			failures++
			break
		}
		if commentIndex < destinationPost.CommentsCount {
			run.progress.Record(ProgressComments, OutcomeSkippedExisting)
			commentIndex++
			continue
		}
		commentIndex++
		commentOutcome := run.orchestrator.comments.Migrate(executionContext, destinationPost, comment)
		run.progress.Record(ProgressComments, commentOutcome.Kind)
		if commentOutcome.Kind == OutcomeFailed {
			failures++
		}
	}
	return failures
}
