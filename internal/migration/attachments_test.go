package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/migration"
)

func TestSelectAttachments(testInstance *testing.T) {
	testCases := []struct {
		name        string
		attachments []getsocial.Attachment
		expected    []getsocial.Attachment
	}{
		{
			name:        "mixed set collapses to videos",
			attachments: []getsocial.Attachment{{Image: "x"}, {Video: "y"}},
			expected:    []getsocial.Attachment{{Video: "y"}},
		},
		{
			name:        "images are all kept",
			attachments: []getsocial.Attachment{{Image: "x"}, {Image: "z"}},
			expected:    []getsocial.Attachment{{Image: "x"}, {Image: "z"}},
		},
		{
			name:        "video with poster counts as video",
			attachments: []getsocial.Attachment{{Image: "poster", Video: "clip"}, {Image: "x"}},
			expected:    []getsocial.Attachment{{Image: "poster", Video: "clip"}},
		},
		{
			name:        "empty entries are dropped",
			attachments: []getsocial.Attachment{{}, {Image: "x"}},
			expected:    []getsocial.Attachment{{Image: "x"}},
		},
		{
			name:     "no attachments",
			expected: []getsocial.Attachment{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, migration.SelectAttachments(testCase.attachments))
		})
	}
}

func TestMigrateSetUploadsOnlySelectedAttachments(testInstance *testing.T) {
	destination := &stubDestination{}
	downloader := &stubDownloader{}
	migrator := migration.NewAttachmentMigrator(downloader, destination, nil)

	uploaded := migrator.MigrateSet(context.Background(), "post-1", []getsocial.Attachment{
		{Image: "https://cdn.example/x.png"},
		{Video: "https://cdn.example/y.mp4"},
	})

	require.Equal(testInstance, []amity.Attachment{{FileID: "video-y.mp4", Type: amity.AttachmentTypeVideo}}, uploaded)
	require.Equal(testInstance, []string{"https://cdn.example/y.mp4"}, downloader.downloads)
}

func TestMigrateSetOmitsFailedUploads(testInstance *testing.T) {
	destination := &stubDestination{rejectUploads: map[string]bool{"b.png": true}}
	migrator := migration.NewAttachmentMigrator(&stubDownloader{}, destination, nil)

	uploaded := migrator.MigrateSet(context.Background(), "post-1", []getsocial.Attachment{
		{Image: "https://cdn.example/a.png"},
		{Image: "https://cdn.example/b.png"},
		{Image: "https://cdn.example/c.png"},
	})

	require.Equal(testInstance, []amity.Attachment{
		{FileID: "image-a.png", Type: amity.AttachmentTypeImage},
		{FileID: "image-c.png", Type: amity.AttachmentTypeImage},
	}, uploaded)
}

func TestMigrateImageOutcomes(testInstance *testing.T) {
	destination := &stubDestination{rejectUploads: map[string]bool{"broken.png": true}}
	migrator := migration.NewAttachmentMigrator(&stubDownloader{}, destination, nil)

	skipped := migrator.MigrateImage(context.Background(), "")
	require.Equal(testInstance, migration.OutcomeSkipped, skipped.Kind)

	failed := migrator.MigrateImage(context.Background(), "https://cdn.example/broken.png")
	require.Equal(testInstance, migration.OutcomeFailed, failed.Kind)
	var entityError migration.EntityError
	require.ErrorAs(testInstance, failed.Err(), &entityError)
	require.Equal(testInstance, migration.EntityKindAttachment, entityError.Kind)

	created := migrator.MigrateImage(context.Background(), "https://cdn.example/fine.png")
	require.True(testInstance, created.Available())
	require.Equal(testInstance, "image-fine.png", created.Value)
}
