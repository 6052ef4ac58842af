package migration

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/transport"
)

const (
	uploadFieldNameConstant             = "files"
	attachmentFailedMessageConstant     = "attachment migration failed"
	attachmentsCollapsedMessageConstant = "mixed attachments collapsed to videos"
	mediaURLFieldNameConstant           = "media_url"
	ownerIDFieldNameConstant            = "owner_id"
	droppedImageCountFieldNameConstant  = "dropped_image_count"
	emptyMediaURLReasonConstant         = "no media url"
)

// AttachmentMigrator re-uploads source media into the destination.
type AttachmentMigrator struct {
	downloader  MediaDownloader
	destination MediaDestination
	logger      *zap.Logger
}

// NewAttachmentMigrator constructs an AttachmentMigrator.
func NewAttachmentMigrator(downloader MediaDownloader, destination MediaDestination, logger *zap.Logger) *AttachmentMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentMigrator{downloader: downloader, destination: destination, logger: logger}
}

// MigrateImage downloads an image and uploads it, yielding the destination file id.
func (migrator *AttachmentMigrator) MigrateImage(executionContext context.Context, imageURL string) Outcome[string] {
	return migrator.migrateMedia(executionContext, imageURL, migrator.destination.UploadImage)
}

// MigrateVideo downloads a video and uploads it, yielding the destination file id.
func (migrator *AttachmentMigrator) MigrateVideo(executionContext context.Context, videoURL string) Outcome[string] {
	return migrator.migrateMedia(executionContext, videoURL, migrator.destination.UploadVideo)
}

// MigrateSet migrates a content's attachments concurrently and returns the uploaded
// references in source order. Failed uploads are logged and omitted.
func (migrator *AttachmentMigrator) MigrateSet(executionContext context.Context, ownerID string, attachments []getsocial.Attachment) []amity.Attachment {
	selected := SelectAttachments(attachments)
	if droppedImages := countImages(attachments) - countImages(selected); droppedImages > 0 {
		migrator.logger.Debug(attachmentsCollapsedMessageConstant, zap.String(ownerIDFieldNameConstant, ownerID), zap.Int(droppedImageCountFieldNameConstant, droppedImages))
	}

	uploaded := make([]amity.Attachment, len(selected))
	var uploads errgroup.Group
	for attachmentIndex, attachment := range selected {
		uploads.Go(func() error {
			if attachment.IsVideo() {
				if outcome := migrator.MigrateVideo(executionContext, attachment.Video); outcome.Available() {
					uploaded[attachmentIndex] = amity.Attachment{FileID: outcome.Value, Type: amity.AttachmentTypeVideo}
				}
				return nil
			}
			if outcome := migrator.MigrateImage(executionContext, attachment.Image); outcome.Available() {
				uploaded[attachmentIndex] = amity.Attachment{FileID: outcome.Value, Type: amity.AttachmentTypeImage}
			}
			return nil
		})
	}
	_ = uploads.Wait()

	references := make([]amity.Attachment, 0, len(uploaded))
	for _, reference := range uploaded {
		if len(reference.FileID) > 0 {
			references = append(references, reference)
		}
	}
	return references
}

// SelectAttachments keeps only videos when any attachment is a video, otherwise only images.
// Entries carrying neither are dropped.
func SelectAttachments(attachments []getsocial.Attachment) []getsocial.Attachment {
	containsVideo := false
	for _, attachment := range attachments {
		if attachment.IsVideo() {
			containsVideo = true
			break
		}
	}

	selected := make([]getsocial.Attachment, 0, len(attachments))
	for _, attachment := range attachments {
		if (containsVideo && attachment.IsVideo()) || (!containsVideo && attachment.IsImage()) {
			selected = append(selected, attachment)
		}
	}
	return selected
}

func countImages(attachments []getsocial.Attachment) int {
	imageCount := 0
	for _, attachment := range attachments {
		if attachment.IsImage() {
			imageCount++
		}
	}
	return imageCount
}

type uploadFunc func(executionContext context.Context, upload transport.FileUpload) (string, error)

func (migrator *AttachmentMigrator) migrateMedia(executionContext context.Context, mediaURL string, upload uploadFunc) Outcome[string] {
	if len(mediaURL) == 0 {
		return Skipped[string](emptyMediaURLReasonConstant)
	}

	file, downloadError := migrator.downloader.Download(executionContext, mediaURL, uploadFieldNameConstant)
	if downloadError != nil {
		migrator.logger.Error(attachmentFailedMessageConstant, zap.String(mediaURLFieldNameConstant, mediaURL), zap.Error(downloadError))
		return Failed[string](EntityKindAttachment, mediaURL, downloadError)
	}

	fileID, uploadError := upload(executionContext, file)
	if uploadError != nil {
		migrator.logger.Error(attachmentFailedMessageConstant, zap.String(mediaURLFieldNameConstant, mediaURL), zap.Error(uploadError))
		return Failed[string](EntityKindAttachment, mediaURL, uploadError)
	}
	return Created(fileID)
}
