package migrate

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/migration"
	"github.com/temirov/socialmigrate/internal/scheduler"
	"github.com/temirov/socialmigrate/internal/transport"
)

const (
	sourceSchedulerErrorTemplateConstant      = "unable to construct source scheduler: %w"
	destinationSchedulerErrorTemplateConstant = "unable to construct destination scheduler: %w"
	sourceClientErrorTemplateConstant         = "unable to construct source client: %w"
	destinationClientErrorTemplateConstant    = "unable to construct destination client: %w"
)

// GroupSource lists source groups and reads their content.
type GroupSource interface {
	migration.SourceReader
	ListGroups(executionContext context.Context) ([]getsocial.Group, error)
}

// Services bundles the remote collaborators of a migration run.
type Services struct {
	Source      GroupSource
	Destination migration.Destination
	Downloader  migration.MediaDownloader
	release     func()
}

// NewServices wraps collaborators with an optional release function.
func NewServices(source GroupSource, destination migration.Destination, downloader migration.MediaDownloader, release func()) Services {
	return Services{Source: source, Destination: destination, Downloader: downloader, release: release}
}

// Close releases the resources held by the services.
func (services Services) Close() {
	if services.release != nil {
		services.release()
	}
}

// ServicesFactory builds the remote collaborators from resolved configuration.
type ServicesFactory func(configuration Configuration, logger *zap.Logger) (Services, error)

// NewRemoteServices connects to the live source and destination APIs.
// Each service gets its own scheduler. Media downloads share the HTTP client and bypass both schedulers.
func NewRemoteServices(configuration Configuration, logger *zap.Logger) (Services, error) {
	sourceScheduler, sourceSchedulerError := scheduler.NewScheduler(
		scheduler.Configuration{
			Name:                sourceSchedulerNameConstant,
			MaxConcurrent:       configuration.Source.RateLimit.MaxConcurrent,
			MinDispatchInterval: configuration.Source.RateLimit.MinDispatchInterval,
		},
		scheduler.WithLogger(logger),
	)
	if sourceSchedulerError != nil {
		return Services{}, fmt.Errorf(sourceSchedulerErrorTemplateConstant, sourceSchedulerError)
	}

	destinationScheduler, destinationSchedulerError := scheduler.NewScheduler(
		scheduler.Configuration{
			Name:                destinationSchedulerNameConstant,
			MaxConcurrent:       configuration.Destination.RateLimit.MaxConcurrent,
			MinDispatchInterval: configuration.Destination.RateLimit.MinDispatchInterval,
		},
		scheduler.WithLogger(logger),
	)
	if destinationSchedulerError != nil {
		sourceScheduler.Close()
		return Services{}, fmt.Errorf(destinationSchedulerErrorTemplateConstant, destinationSchedulerError)
	}

	release := func() {
		sourceScheduler.Close()
		destinationScheduler.Close()
	}

	sender := transport.NewHTTPSender(&http.Client{Timeout: configuration.HTTP.Timeout}, logger)

	sourceClient, sourceClientError := getsocial.NewClient(
		getsocial.ClientConfiguration{
			BaseURL:   configuration.Source.BaseURL,
			AppID:     configuration.Source.AppID,
			APIKey:    configuration.Source.APIKey,
			PageLimit: configuration.Source.PageLimit,
		},
		getsocial.ClientDependencies{Sender: sender, Scheduler: sourceScheduler, Logger: logger},
	)
	if sourceClientError != nil {
		release()
		return Services{}, fmt.Errorf(sourceClientErrorTemplateConstant, sourceClientError)
	}

	destinationClient, destinationClientError := amity.NewClient(
		amity.ClientConfiguration{
			Region:     configuration.Destination.Region,
			BaseURL:    configuration.Destination.BaseURL,
			APIKey:     configuration.Destination.APIKey,
			AdminToken: configuration.Destination.AdminToken,
		},
		amity.ClientDependencies{Sender: sender, Scheduler: destinationScheduler, Logger: logger},
	)
	if destinationClientError != nil {
		release()
		return Services{}, fmt.Errorf(destinationClientErrorTemplateConstant, destinationClientError)
	}

	return NewServices(sourceClient, destinationClient, transport.NewDownloader(sender), release), nil
}
