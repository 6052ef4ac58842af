package migration

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	membersJoinedMessageConstant    = "members added to community"
	membershipFailedMessageConstant = "membership batch failed"
	followersListedMessageConstant  = "member followers listed"
	followFailedMessageConstant     = "follow migration failed"
	followSkippedMessageConstant    = "follow already present"
	followerCountFieldNameConstant  = "follower_count"
	memberCountFieldNameConstant    = "member_count"
	memberIDFieldNameConstant       = "member_id"
	followerIDFieldNameConstant     = "follower_id"
)

// MembershipMigrator migrates one page of group members with their followers,
// follow relationships, and community membership.
type MembershipMigrator struct {
	source      SourceReader
	users       *UserMigrator
	sessions    *SessionProvider
	destination MembershipDestination
	policy      FailurePolicy
	logger      *zap.Logger
}

// NewMembershipMigrator constructs a MembershipMigrator.
func NewMembershipMigrator(source SourceReader, users *UserMigrator, sessions *SessionProvider, destination MembershipDestination, policy FailurePolicy, logger *zap.Logger) *MembershipMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy.logger = logger
	return &MembershipMigrator{source: source, users: users, sessions: sessions, destination: destination, policy: policy, logger: logger}
}

// MigratePage migrates members concurrently, then adds every successfully migrated
// member to community in one batch. Siblings always run to completion; the first
// escalated failure is returned afterwards.
func (migrator *MembershipMigrator) MigratePage(executionContext context.Context, community amity.Community, members []getsocial.GroupMember, progress *ProgressCounters) error {
	migratedMemberIDs := make([]string, len(members))
	var memberBatch errgroup.Group
	for memberIndex, member := range members {
		memberBatch.Go(func() error {
			migrated, memberError := migrator.migrateMember(executionContext, member.User, progress)
			if migrated {
				migratedMemberIDs[memberIndex] = member.User.ID
			}
			return memberError
		})
	}
	batchError := memberBatch.Wait()

	joinedIDs := make([]string, 0, len(migratedMemberIDs))
	for _, memberID := range migratedMemberIDs {
		if len(memberID) > 0 {
			joinedIDs = append(joinedIDs, memberID)
		}
	}

	if joinError := migrator.join(executionContext, community, joinedIDs, progress); joinError != nil && batchError == nil {
		batchError = joinError
	}
	if batchError != nil {
		migrator.logger.Error(membershipFailedMessageConstant, zap.String(communityIDFieldNameConstant, community.CommunityID), zap.Error(batchError))
	}
	return batchError
}

func (migrator *MembershipMigrator) join(executionContext context.Context, community amity.Community, memberIDs []string, progress *ProgressCounters) error {
	if len(memberIDs) == 0 {
		return nil
	}
	if addError := migrator.destination.AddUsersToCommunity(executionContext, community.CommunityID, memberIDs); addError != nil {
		for range memberIDs {
			progress.Record(ProgressJoins, OutcomeFailed)
		}
		return migrator.policy.escalate(EntityError{Kind: EntityKindMembership, SourceID: community.CommunityID, Cause: addError})
	}
	for range memberIDs {
		progress.Record(ProgressJoins, OutcomeCreated)
	}
	migrator.logger.Debug(membersJoinedMessageConstant, zap.String(communityIDFieldNameConstant, community.CommunityID), zap.Int(memberCountFieldNameConstant, len(memberIDs)))
	return nil
}

// migrateMember reports whether the member itself was migrated, plus any escalated failure.
func (migrator *MembershipMigrator) migrateMember(executionContext context.Context, member getsocial.User, progress *ProgressCounters) (bool, error) {
	memberOutcome := migrator.users.Migrate(executionContext, member)
	progress.Record(ProgressUsers, memberOutcome.Kind)
	if memberOutcome.Kind == OutcomeFailed {
		return false, migrator.policy.escalate(memberOutcome.Err())
	}

	followers, followersError := migrator.source.UserFollowers(member.ID).Collect(executionContext)
	if followersError != nil {
		return true, migrator.policy.escalate(EntityError{Kind: EntityKindFollow, SourceID: member.ID, Cause: followersError})
	}
	progress.AddTotal(ProgressUsers, len(followers))
	progress.AddTotal(ProgressFollows, len(followers))
	migrator.logger.Debug(followersListedMessageConstant, zap.String(memberIDFieldNameConstant, member.ID), zap.Int(followerCountFieldNameConstant, len(followers)))

	migratedFollowers := make([]bool, len(followers))
	var followerBatch errgroup.Group
	for followerIndex, follower := range followers {
		followerBatch.Go(func() error {
			followerOutcome := migrator.users.Migrate(executionContext, follower)
			progress.Record(ProgressUsers, followerOutcome.Kind)
			if followerOutcome.Kind == OutcomeFailed {
				return migrator.policy.escalate(followerOutcome.Err())
			}
			migratedFollowers[followerIndex] = true
			return nil
		})
	}
	followerError := followerBatch.Wait()

	var followBatch errgroup.Group
	for followerIndex, follower := range followers {
		if !migratedFollowers[followerIndex] {
			progress.Record(ProgressFollows, OutcomeSkipped)
			continue
		}
		followBatch.Go(func() error {
			progress.Record(ProgressFollows, migrator.follow(executionContext, member, follower.ID))
			return nil
		})
	}
	_ = followBatch.Wait()

	return true, followerError
}

// follow makes member follow the target. Follow failures never fail the batch.
func (migrator *MembershipMigrator) follow(executionContext context.Context, member getsocial.User, targetUserID string) OutcomeKind {
	accessToken, sessionError := migrator.sessions.AccessToken(executionContext, member)
	if sessionError != nil {
		migrator.logger.Error(followFailedMessageConstant, zap.String(memberIDFieldNameConstant, member.ID), zap.String(followerIDFieldNameConstant, targetUserID), zap.Error(sessionError))
		return OutcomeFailed
	}
	status, followError := migrator.destination.FollowUser(executionContext, accessToken, targetUserID)
	if followError != nil {
		migrator.logger.Error(followFailedMessageConstant, zap.String(memberIDFieldNameConstant, member.ID), zap.String(followerIDFieldNameConstant, targetUserID), zap.Error(followError))
		return OutcomeFailed
	}
	if status == amity.FollowStatusAlreadyAccepted {
		migrator.logger.Debug(followSkippedMessageConstant, zap.String(memberIDFieldNameConstant, member.ID), zap.String(followerIDFieldNameConstant, targetUserID))
		return OutcomeSkippedExisting
	}
	return OutcomeCreated
}
