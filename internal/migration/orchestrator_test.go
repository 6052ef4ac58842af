package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/migration"
)

const testGroupIDConstant = "group-1"

var completeTransitions = []migration.State{
	migration.StateGroupPending,
	migration.StateCommunityResolved,
	migration.StateMembersMigrating,
	migration.StatePostsMigrating,
	migration.StateDone,
}

type groupFixture struct {
	group  getsocial.Group
	source *stubSource
}

func newGroupFixture(pageSize int) groupFixture {
	alice := getsocial.User{ID: "alice", DisplayName: "Alice"}
	bob := getsocial.User{ID: "bob", DisplayName: "Bob", CanModerate: true}
	carol := getsocial.User{ID: "carol", DisplayName: "Carol"}
	dave := getsocial.User{ID: "dave", DisplayName: "Dave"}

	firstPost := textActivity("post-1", "first", &alice)
	firstPost.Content[0].Attachments = []getsocial.Attachment{{Image: "https://cdn.example/x.png"}, {Video: "https://cdn.example/y.mp4"}}
	firstPost.CommentsCount = 3
	firstPost.ReactionsCount = map[string]int{"like": 2, "love": 1}
	secondPost := textActivity("post-2", "second", nil)

	return groupFixture{
		group: getsocial.Group{
			ID:           testGroupIDConstant,
			Title:        getsocial.LocalizedText{"en": "Readers"},
			MembersCount: 2,
		},
		source: &stubSource{
			pageSize: pageSize,
			members: map[string][]getsocial.GroupMember{
				testGroupIDConstant: {{User: alice}, {User: bob}},
			},
			followers: map[string][]getsocial.User{"alice": {carol}},
			posts:     map[string][]getsocial.Activity{testGroupIDConstant: {firstPost, secondPost}},
			reactions: map[string][]getsocial.Reaction{
				"post-1": {
					{Author: getsocial.Author{User: &dave}, Reactions: []string{"like", "love"}},
					{Author: getsocial.Author{IsApp: true}, Reactions: []string{"like"}},
				},
			},
			comments: map[string][]getsocial.Activity{
				"post-1": {
					textActivity("c0", "zeroth", &carol),
					textActivity("c1", "from admin", nil),
					textActivity("c2", "second comment", &bob),
				},
			},
		},
	}
}

func newTestOrchestrator(testInstance *testing.T, source migration.SourceReader, destination *stubDestination, ledger migration.CompletionLedger, continueOnFailure bool) *migration.Orchestrator {
	orchestrator, orchestratorError := migration.NewOrchestrator(migration.OrchestratorDependencies{
		Source:      source,
		Destination: destination,
		Downloader:  &stubDownloader{},
		Ledger:      ledger,
		Options:     migration.OrchestratorOptions{ContinueOnEntityFailure: continueOnFailure},
	})
	require.NoError(testInstance, orchestratorError)
	return orchestrator
}

func TestMigrateGroupCopiesEverything(testInstance *testing.T) {
	fixture := newGroupFixture(1)
	destination := &stubDestination{}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, migrateError)

	require.Equal(testInstance, migration.StateDone, report.FinalState)
	require.Equal(testInstance, completeTransitions, report.Transitions)
	require.Equal(testInstance, "community-1", report.CommunityID)
	require.Empty(testInstance, report.Failure)

	require.Len(testInstance, destination.communityCreations, 1)
	require.Equal(testInstance, "Readers", destination.communityCreations[0].DisplayName)
	require.Equal(testInstance, []string{"gsId=group-1"}, destination.communityCreations[0].Tags)
	require.True(testInstance, destination.communityCreations[0].IsPublic)

	upsertedUserIDs := make([]string, 0, len(destination.userUpdates))
	for _, update := range destination.userUpdates {
		upsertedUserIDs = append(upsertedUserIDs, update.UserID)
		if update.UserID == "bob" {
			require.Equal(testInstance, []string{"moderator"}, update.Roles)
		}
	}
	require.ElementsMatch(testInstance, []string{"alice", "bob", "carol"}, upsertedUserIDs)
	require.Equal(testInstance, [][]string{{"alice"}, {"bob"}}, destination.communityBatches)
	require.Equal(testInstance, []followCall{{accessToken: "token-alice", targetUserID: "carol"}}, destination.follows)

	require.Len(testInstance, destination.posts, 2)
	postTokens := map[string]string{}
	for _, call := range destination.postCalls {
		postTokens[call.creation.Data.Text] = call.accessToken
		if call.creation.Data.Text == "first" {
			require.Equal(testInstance, []amity.Attachment{{FileID: "video-y.mp4", Type: amity.AttachmentTypeVideo}}, call.creation.Attachments)
			require.Contains(testInstance, call.creation.Tags, "gsId=post-1")
		}
	}
	require.Equal(testInstance, map[string]string{"first": "token-alice", "second": ""}, postTokens)

	require.Equal(testInstance, []string{"zeroth", "second comment"}, destination.commentTexts())
	require.Equal(testInstance, "token-carol", destination.comments[0].accessToken)
	require.Equal(testInstance, "c0", destination.comments[0].creation.Metadata["gsId"])

	reactionTokens := map[string]int{}
	for _, call := range destination.reactions {
		reactionTokens[call.accessToken+"/"+call.creation.ReactionName]++
	}
	require.Equal(testInstance, map[string]int{"token-dave/like": 1, "token-dave/love": 1, "/like": 1}, reactionTokens)

	require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, Created: 3}, report.Progress[migration.ProgressUsers])
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 2, Created: 2}, report.Progress[migration.ProgressJoins])
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 1, Created: 1}, report.Progress[migration.ProgressFollows])
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 2, Created: 2}, report.Progress[migration.ProgressPosts])
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, Created: 3}, report.Progress[migration.ProgressReactions])
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, Created: 2, Skipped: 1}, report.Progress[migration.ProgressComments])
}

func TestMigrateGroupRerunDoesNotDuplicate(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	_, firstError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, firstError)
	report, secondError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, secondError)

	require.Equal(testInstance, migration.StateDone, report.FinalState)
	require.Len(testInstance, destination.communities, 1)
	require.Len(testInstance, destination.posts, 2)
	require.Equal(testInstance, int64(2), report.Progress[migration.ProgressPosts].SkippedExisting)
}

func TestMigrateGroupResumesCommentsByCount(testInstance *testing.T) {
	author := getsocial.User{ID: "alice"}
	source := &stubSource{
		posts: map[string][]getsocial.Activity{testGroupIDConstant: {textActivity("post-1", "first", &author)}},
		comments: map[string][]getsocial.Activity{
			"post-1": {
				textActivity("c0", "zeroth", &author),
				textActivity("c1", "first comment", &author),
				textActivity("c2", "second comment", &author),
			},
		},
	}
	destination := &stubDestination{
		communities: []amity.Community{{CommunityID: "community-7", Tags: []string{"gsId=group-1"}}},
		posts:       []amity.Post{{PostID: "post-9", TargetID: "community-7", Tags: []string{"gsId=post-1"}, CommentsCount: 2}},
	}
	orchestrator := newTestOrchestrator(testInstance, source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), getsocial.Group{ID: testGroupIDConstant})
	require.NoError(testInstance, migrateError)

	require.Equal(testInstance, "community-7", report.CommunityID)
	require.Empty(testInstance, destination.communityCreations)
	require.Empty(testInstance, destination.postCalls)
	require.Equal(testInstance, []string{"second comment"}, destination.commentTexts())
	require.Equal(testInstance, "post-9", destination.comments[0].creation.ReferenceID)

	commentProgress := report.Progress[migration.ProgressComments]
	require.Equal(testInstance, int64(2), commentProgress.SkippedExisting)
	require.Equal(testInstance, int64(1), commentProgress.Created)
}

func TestMigrateGroupResumesCommentsByCountAfterSkippedAdminComment(testInstance *testing.T) {
	author := getsocial.User{ID: "alice"}
	firstPost := textActivity("post-1", "first", &author)
	firstPost.CommentsCount = 3
	source := &stubSource{
		posts: map[string][]getsocial.Activity{testGroupIDConstant: {firstPost}},
		comments: map[string][]getsocial.Activity{
			"post-1": {
				textActivity("c0", "zeroth", &author),
				textActivity("c1", "from admin", nil),
				textActivity("c2", "second comment", &author),
			},
		},
	}
	destination := &stubDestination{}
	orchestrator := newTestOrchestrator(testInstance, source, destination, nil, false)

	_, firstError := orchestrator.MigrateGroup(context.Background(), getsocial.Group{ID: testGroupIDConstant})
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, []string{"zeroth", "second comment"}, destination.commentTexts())
	require.Equal(testInstance, 2, destination.posts[0].CommentsCount)

	report, secondError := orchestrator.MigrateGroup(context.Background(), getsocial.Group{ID: testGroupIDConstant})
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, []string{"zeroth", "second comment", "second comment"}, destination.commentTexts())
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, Created: 1, SkippedExisting: 2}, report.Progress[migration.ProgressComments])
}

func TestMigrateGroupFailsWhenPostFails(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{rejectPostText: map[string]bool{"first": true}}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.Error(testInstance, migrateError)

	var entityError migration.EntityError
	require.ErrorAs(testInstance, migrateError, &entityError)
	require.Equal(testInstance, migration.EntityKindPost, entityError.Kind)
	require.Equal(testInstance, "post-1", entityError.SourceID)
	require.ErrorIs(testInstance, migrateError, errStubRejected)

	require.Equal(testInstance, migration.StateFailed, report.FinalState)
	require.Equal(testInstance, []migration.State{
		migration.StateGroupPending,
		migration.StateCommunityResolved,
		migration.StateMembersMigrating,
		migration.StatePostsMigrating,
		migration.StateFailed,
	}, report.Transitions)
	require.NotEmpty(testInstance, report.Failure)
	require.Len(testInstance, destination.postCalls, 2)
}

func TestMigrateGroupContinuesOnEntityFailureWhenConfigured(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{rejectPostText: map[string]bool{"first": true}}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, true)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, migrateError)
	require.Equal(testInstance, migration.StateDone, report.FinalState)

	postProgress := report.Progress[migration.ProgressPosts]
	require.Equal(testInstance, int64(1), postProgress.Failed)
	require.Equal(testInstance, int64(1), postProgress.Created)
	require.Empty(testInstance, destination.comments)
}

func TestMigrateGroupFailsWhenMemberFails(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{rejectUsers: map[string]bool{"bob": true}}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.ErrorIs(testInstance, migrateError, errStubRejected)
	require.Equal(testInstance, migration.StateFailed, report.FinalState)
	require.Equal(testInstance, [][]string{{"alice"}}, destination.communityBatches)
	require.Empty(testInstance, destination.postCalls)
}

func TestMigrateGroupFailsWhenCommunityFails(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{rejectCommunity: true}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.ErrorIs(testInstance, migrateError, errStubRejected)
	require.Equal(testInstance, []migration.State{migration.StateGroupPending, migration.StateFailed}, report.Transitions)
	require.Empty(testInstance, report.CommunityID)
	require.Empty(testInstance, destination.userUpdates)
}

func TestMigrateGroupToleratesLeafFailures(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{
		rejectComments:  map[string]bool{"zeroth": true},
		rejectReactions: map[string]bool{"love": true},
		rejectUploads:   map[string]bool{"y.mp4": true},
	}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, migrateError)
	require.Equal(testInstance, migration.StateDone, report.FinalState)

	require.Equal(testInstance, int64(1), report.Progress[migration.ProgressComments].Failed)
	require.Equal(testInstance, int64(1), report.Progress[migration.ProgressReactions].Failed)
	for _, call := range destination.postCalls {
		require.Empty(testInstance, call.creation.Attachments)
	}
}

func TestMigrateGroupTreatsAcceptedFollowAsExisting(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{acceptedFollows: map[string]bool{"carol": true}}
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, nil, false)

	report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, migrateError)
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 1, SkippedExisting: 1}, report.Progress[migration.ProgressFollows])
}

func TestMigrateGroupSkipsCompletedPostsFromLedger(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{}
	ledger := newStubLedger()
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, ledger, false)

	_, firstError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, firstError)
	require.True(testInstance, ledger.completed["post:community-1:post-1"])
	require.True(testInstance, ledger.completed["post:community-1:post-2"])
	commentCount := len(destination.comments)
	reactionCount := len(destination.reactions)

	report, secondError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, secondError)
	require.Len(testInstance, destination.comments, commentCount)
	require.Len(testInstance, destination.reactions, reactionCount)
	require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, SkippedExisting: 3}, report.Progress[migration.ProgressComments])
}

func TestMigrateGroupFansOutCreatedPostsDespiteLedger(testInstance *testing.T) {
	testCases := []struct {
		name         string
		completedKey string
	}{
		{name: "same community", completedKey: "post:community-1:post-1"},
		{name: "other community", completedKey: "post:community-9:post-1"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newGroupFixture(0)
			destination := &stubDestination{}
			ledger := newStubLedger()
			ledger.completed[testCase.completedKey] = true
			orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, ledger, false)

			report, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
			require.NoError(testInstance, migrateError)
			require.Equal(testInstance, migration.ProgressSnapshot{Total: 2, Created: 2}, report.Progress[migration.ProgressPosts])
			require.Equal(testInstance, []string{"zeroth", "second comment"}, destination.commentTexts())
			require.Len(testInstance, destination.reactions, 3)
			require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, Created: 3}, report.Progress[migration.ProgressReactions])
			require.Equal(testInstance, migration.ProgressSnapshot{Total: 3, Created: 2, Skipped: 1}, report.Progress[migration.ProgressComments])
		})
	}
}

func TestMigrateGroupLeavesLedgerUntouchedOnLeafFailure(testInstance *testing.T) {
	fixture := newGroupFixture(0)
	destination := &stubDestination{rejectReactions: map[string]bool{"like": true}}
	ledger := newStubLedger()
	orchestrator := newTestOrchestrator(testInstance, fixture.source, destination, ledger, false)

	_, migrateError := orchestrator.MigrateGroup(context.Background(), fixture.group)
	require.NoError(testInstance, migrateError)
	require.False(testInstance, ledger.completed["post:community-1:post-1"])
	require.True(testInstance, ledger.completed["post:community-1:post-2"])
}

func TestNewOrchestratorValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  migration.OrchestratorDependencies
		expectedError error
	}{
		{
			name:          "missing source",
			dependencies:  migration.OrchestratorDependencies{Destination: &stubDestination{}, Downloader: &stubDownloader{}},
			expectedError: migration.ErrSourceNotConfigured,
		},
		{
			name:          "missing destination",
			dependencies:  migration.OrchestratorDependencies{Source: &stubSource{}, Downloader: &stubDownloader{}},
			expectedError: migration.ErrDestinationNotConfigured,
		},
		{
			name:          "missing downloader",
			dependencies:  migration.OrchestratorDependencies{Source: &stubSource{}, Destination: &stubDestination{}},
			expectedError: migration.ErrDownloaderNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, constructionError := migration.NewOrchestrator(testCase.dependencies)
			require.ErrorIs(subTest, constructionError, testCase.expectedError)
		})
	}
}

func TestCanTransition(testInstance *testing.T) {
	testCases := []struct {
		from     migration.State
		to       migration.State
		expected bool
	}{
		{from: migration.StateGroupPending, to: migration.StateCommunityResolved, expected: true},
		{from: migration.StateCommunityResolved, to: migration.StateMembersMigrating, expected: true},
		{from: migration.StateMembersMigrating, to: migration.StatePostsMigrating, expected: true},
		{from: migration.StatePostsMigrating, to: migration.StateDone, expected: true},
		{from: migration.StateMembersMigrating, to: migration.StateFailed, expected: true},
		{from: migration.StateGroupPending, to: migration.StatePostsMigrating, expected: false},
		{from: migration.StatePostsMigrating, to: migration.StateMembersMigrating, expected: false},
		{from: migration.StateDone, to: migration.StateFailed, expected: false},
		{from: migration.StateFailed, to: migration.StateGroupPending, expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(string(testCase.from)+"->"+string(testCase.to), func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, migration.CanTransition(testCase.from, testCase.to))
		})
	}
}
