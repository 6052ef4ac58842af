package migrate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/checkpoint"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/migration"
	"github.com/temirov/socialmigrate/internal/prompt"
	"github.com/temirov/socialmigrate/internal/ui"
	"github.com/temirov/socialmigrate/internal/utils"
	pathutils "github.com/temirov/socialmigrate/internal/utils/path"
)

const (
	commandUseConstant                    = "migrate"
	commandShortDescriptionConstant       = "Migrate source groups into destination communities"
	commandLongDescriptionConstant        = "migrate copies groups, their members, followers, posts, reactions and comments from the source application into the destination application. Re-running skips everything already copied."
	groupFlagNameConstant                 = "group"
	groupFlagDescriptionConstant          = "Source group id to migrate (repeatable)"
	allFlagNameConstant                   = "all"
	allFlagDescriptionConstant            = "Migrate every source group"
	noPromptFlagNameConstant              = "no-prompt"
	noPromptFlagDescriptionConstant       = "Fail instead of prompting for missing settings"
	reportFlagNameConstant                = "report"
	reportFlagDescriptionConstant         = "Write a YAML run report to this path"
	groupFieldNameConstant                = "group"
	groupSelectionRequiredMessageConstant = "select groups with --group, --all or migration.groups"
	groupSelectionQuestionConstant        = "Group to migrate"
	groupChoiceLabelTemplateConstant      = "%s (%s, %d members)"
	unknownGroupTemplateConstant          = "%w: %s"
	groupSelectionErrorTemplateConstant   = "unable to select group: %w"
	checkpointOpenErrorTemplateConstant   = "unable to open checkpoint store: %w"
	orchestratorErrorTemplateConstant     = "unable to construct orchestrator: %w"
	groupMigrationErrorTemplateConstant   = "group %s: %w"
	runStartedMessageConstant             = "migration run started"
	runFinishedMessageConstant            = "migration run finished"
	checkpointCloseFailedMessageConstant  = "checkpoint store close failed"
	reportWrittenMessageConstant          = "run report written"
	runIDFieldConstant                    = "run_id"
	groupCountFieldNameConstant           = "group_count"
	succeededFieldConstant                = "succeeded"
	reportPathFieldConstant               = "report_path"
)

// ErrUnknownGroup indicates a requested group id that the source does not list.
var ErrUnknownGroup = errors.New("unknown source group")

// CommandBuilder assembles the migrate command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	PrompterFactory       PrompterFactory
	ServicesFactory       ServicesFactory
	ConfigurationProvider func() Configuration
	Clock                 func() time.Time
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().StringSlice(groupFlagNameConstant, nil, groupFlagDescriptionConstant)
	command.Flags().Bool(allFlagNameConstant, false, allFlagDescriptionConstant)
	command.Flags().Bool(noPromptFlagNameConstant, false, noPromptFlagDescriptionConstant)
	command.Flags().String(reportFlagNameConstant, "", reportFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	prompter := resolvePrompter(builder.PrompterFactory, command)

	noPrompt, _ := command.Flags().GetBool(noPromptFlagNameConstant)
	migrateAll, _ := command.Flags().GetBool(allFlagNameConstant)
	reportPath, _ := command.Flags().GetString(reportFlagNameConstant)
	requestedGroupIDs := trimmedValues(configuration.Migration.Groups)
	if command.Flags().Changed(groupFlagNameConstant) {
		flagGroupIDs, _ := command.Flags().GetStringSlice(groupFlagNameConstant)
		requestedGroupIDs = trimmedValues(flagGroupIDs)
	}

	resolver := credentialResolver{prompter: prompter, promptAllowed: !noPrompt}
	sourceConfiguration, sourceError := resolver.resolveSource(configuration.Source)
	if sourceError != nil {
		return sourceError
	}
	sourceConfiguration, destinationConfiguration, destinationError := resolver.resolveDestination(sourceConfiguration, configuration.Destination)
	if destinationError != nil {
		return destinationError
	}
	configuration.Source = sourceConfiguration
	configuration.Destination = destinationConfiguration

	services, servicesError := resolveServicesFactory(builder.ServicesFactory)(configuration, logger)
	if servicesError != nil {
		return servicesError
	}
	defer services.Close()

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	availableGroups, listError := services.Source.ListGroups(executionContext)
	if listError != nil {
		return fmt.Errorf(listGroupsErrorTemplateConstant, listError)
	}

	selectedGroups, selectionError := selectGroups(availableGroups, requestedGroupIDs, migrateAll, prompter, !noPrompt)
	if selectionError != nil {
		return selectionError
	}

	store, storeError := checkpoint.Open(executionContext, configuration.Checkpoint, logger)
	if storeError != nil {
		return fmt.Errorf(checkpointOpenErrorTemplateConstant, storeError)
	}
	if store != nil {
		defer func() {
			if closeError := store.Close(); closeError != nil {
				logger.Warn(checkpointCloseFailedMessageConstant, zap.Error(closeError))
			}
		}()
	}

	runID := uuid.NewString()
	executionContext = utils.NewCommandContextAccessor().WithRunIdentifier(executionContext, runID)
	runLogger := logger.With(zap.String(runIDFieldConstant, runID))
	reporter := ui.NewConsoleProgressReporter(runLogger, 0)

	dependencies := migration.OrchestratorDependencies{
		Source:      services.Source,
		Destination: services.Destination,
		Downloader:  services.Downloader,
		Reporter:    reporter,
		Logger:      runLogger,
		Options: migration.OrchestratorOptions{
			AuthIdentity:            configuration.Source.AuthIdentity,
			MediaHostPrefix:         configuration.Source.MediaHostPrefix,
			DeviceIDPrefix:          configuration.Migration.DeviceIDPrefix,
			ContinueOnEntityFailure: configuration.Migration.ContinueOnEntityFailure,
		},
	}
	if store != nil {
		dependencies.Ledger = store
	}
	orchestrator, orchestratorError := migration.NewOrchestrator(dependencies)
	if orchestratorError != nil {
		return fmt.Errorf(orchestratorErrorTemplateConstant, orchestratorError)
	}

	runReport := ui.RunReport{RunID: runID, StartedAt: builder.now()}
	runLogger.Info(runStartedMessageConstant, zap.Int(groupCountFieldNameConstant, len(selectedGroups)))

	var groupErrors []error
	for _, group := range selectedGroups {
		reporter.GroupStarted(groupLabel(group))
		groupReport, migrationError := orchestrator.MigrateGroup(executionContext, group)
		reporter.GroupFinished(groupReport)
		runReport.Groups = append(runReport.Groups, groupReport)
		if migrationError != nil {
			groupErrors = append(groupErrors, fmt.Errorf(groupMigrationErrorTemplateConstant, group.ID, migrationError))
		}
	}
	runReport.FinishedAt = builder.now()
	runLogger.Info(runFinishedMessageConstant, zap.Bool(succeededFieldConstant, runReport.Succeeded()))

	if trimmedReportPath := strings.TrimSpace(reportPath); len(trimmedReportPath) > 0 {
		expandedReportPath := pathutils.NewHomeExpander().Expand(trimmedReportPath)
		if writeError := ui.WriteRunReport(expandedReportPath, runReport); writeError != nil {
			groupErrors = append(groupErrors, writeError)
		} else {
			runLogger.Info(reportWrittenMessageConstant, zap.String(reportPathFieldConstant, expandedReportPath))
		}
	}

	return errors.Join(groupErrors...)
}

func (builder *CommandBuilder) now() time.Time {
	if builder.Clock != nil {
		return builder.Clock()
	}
	return time.Now().UTC()
}

// selectGroups resolves the groups of a run: --all wins, then explicit ids, then an interactive choice.
func selectGroups(available []getsocial.Group, requestedIDs []string, migrateAll bool, prompter Prompter, promptAllowed bool) ([]getsocial.Group, error) {
	if migrateAll {
		return available, nil
	}

	if len(requestedIDs) > 0 {
		selected := make([]getsocial.Group, 0, len(requestedIDs))
		for _, requestedID := range requestedIDs {
			groupIndex := slices.IndexFunc(available, func(group getsocial.Group) bool {
				return group.ID == requestedID
			})
			if groupIndex < 0 {
				return nil, fmt.Errorf(unknownGroupTemplateConstant, ErrUnknownGroup, requestedID)
			}
			selected = append(selected, available[groupIndex])
		}
		return selected, nil
	}

	if !promptAllowed {
		return nil, InvalidInputError{FieldName: groupFieldNameConstant, Message: groupSelectionRequiredMessageConstant}
	}

	choices := make([]prompt.Choice, 0, len(available))
	for _, group := range available {
		choices = append(choices, prompt.Choice{
			Value: group.ID,
			Label: fmt.Sprintf(groupChoiceLabelTemplateConstant, group.Title.English(), group.ID, group.MembersCount),
		})
	}
	choice, selectError := prompter.Select(groupSelectionQuestionConstant, choices)
	if selectError != nil {
		return nil, fmt.Errorf(groupSelectionErrorTemplateConstant, selectError)
	}
	for _, group := range available {
		if group.ID == choice.Value {
			return []getsocial.Group{group}, nil
		}
	}
	return nil, fmt.Errorf(unknownGroupTemplateConstant, ErrUnknownGroup, choice.Value)
}

func groupLabel(group getsocial.Group) string {
	if title := group.Title.English(); len(title) > 0 {
		return fmt.Sprintf("%s (%s)", title, group.ID)
	}
	return group.ID
}
