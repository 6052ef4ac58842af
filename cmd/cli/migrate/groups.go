package migrate

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	groupsCommandUseConstant              = "groups"
	groupsCommandShortDescriptionConstant = "List source groups"
	groupsCommandLongDescriptionConstant  = "groups lists the source application's groups with their English title and member count."
	groupsTableHeaderConstant             = "ID\tTITLE\tMEMBERS\n"
	groupsTableRowTemplateConstant        = "%s\t%s\t%s\n"
	listGroupsErrorTemplateConstant       = "unable to list source groups: %w"
	groupsListedMessageConstant           = "source groups listed"
	groupCountFieldConstant               = "group_count"
	tableMinimumWidthConstant             = 0
	tableTabWidthConstant                 = 4
	tablePaddingConstant                  = 2
	tablePaddingCharacterConstant         = ' '
)

// GroupsCommandBuilder assembles the groups command.
type GroupsCommandBuilder struct {
	LoggerProvider        LoggerProvider
	PrompterFactory       PrompterFactory
	ServicesFactory       ServicesFactory
	ConfigurationProvider func() Configuration
}

// Build constructs the groups command.
func (builder *GroupsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   groupsCommandUseConstant,
		Short: groupsCommandShortDescriptionConstant,
		Long:  groupsCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().Bool(noPromptFlagNameConstant, false, noPromptFlagDescriptionConstant)
	return command, nil
}

func (builder *GroupsCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	noPrompt, _ := command.Flags().GetBool(noPromptFlagNameConstant)

	resolver := credentialResolver{prompter: resolvePrompter(builder.PrompterFactory, command), promptAllowed: !noPrompt}
	sourceConfiguration, sourceError := resolver.resolveSource(configuration.Source)
	if sourceError != nil {
		return sourceError
	}
	configuration.Source = sourceConfiguration

	services, servicesError := resolveServicesFactory(builder.ServicesFactory)(configuration, logger)
	if servicesError != nil {
		return servicesError
	}
	defer services.Close()

	groups, listError := services.Source.ListGroups(command.Context())
	if listError != nil {
		return fmt.Errorf(listGroupsErrorTemplateConstant, listError)
	}
	logger.Debug(groupsListedMessageConstant, zap.Int(groupCountFieldConstant, len(groups)))

	return writeGroupsTable(command, groups)
}

func writeGroupsTable(command *cobra.Command, groups []getsocial.Group) error {
	tableWriter := tabwriter.NewWriter(command.OutOrStdout(), tableMinimumWidthConstant, tableTabWidthConstant, tablePaddingConstant, tablePaddingCharacterConstant, 0)
	if _, writeError := fmt.Fprint(tableWriter, groupsTableHeaderConstant); writeError != nil {
		return writeError
	}
	for _, group := range groups {
		if _, writeError := fmt.Fprintf(tableWriter, groupsTableRowTemplateConstant, group.ID, group.Title.English(), strconv.Itoa(group.MembersCount)); writeError != nil {
			return writeError
		}
	}
	return tableWriter.Flush()
}

func resolveServicesFactory(factory ServicesFactory) ServicesFactory {
	if factory == nil {
		return NewRemoteServices
	}
	return factory
}
