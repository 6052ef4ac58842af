package migrate

import (
	"fmt"
	"strings"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/utils/flags"
)

const (
	sourceAppIDFieldConstant              = "source.app_id"
	sourceAPIKeyFieldConstant             = "source.api_key"
	sourceAuthIdentityFieldConstant       = "source.auth_identity"
	destinationRegionFieldConstant        = "destination.region"
	destinationAPIKeyFieldConstant        = "destination.api_key"
	destinationAdminTokenFieldConstant    = "destination.admin_token"
	sourceAppIDQuestionConstant           = "Source application id"
	sourceAPIKeyQuestionConstant          = "Source API key"
	sourceAuthIdentityQuestionConstant    = "Source auth identity used as destination user id"
	destinationRegionQuestionTemplate     = "Destination region (%s)"
	destinationAPIKeyQuestionConstant     = "Destination API key"
	destinationAdminTokenQuestionConstant = "Destination admin token"
	requiredValueMessageConstant          = "value required; set it in configuration or allow prompting"
	invalidInputTemplateConstant          = "%s: %s"
	promptErrorTemplateConstant           = "unable to read %s: %w"
)

// InvalidInputError describes a missing or invalid setting.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

type credentialResolver struct {
	prompter      Prompter
	promptAllowed bool
}

// requireValue returns current when set, otherwise asks for the value.
func (resolver credentialResolver) requireValue(fieldName string, question string, current string, defaultValue string) (string, error) {
	if trimmed := strings.TrimSpace(current); len(trimmed) > 0 {
		return trimmed, nil
	}
	if !resolver.promptAllowed {
		if len(defaultValue) > 0 {
			return defaultValue, nil
		}
		return "", InvalidInputError{FieldName: fieldName, Message: requiredValueMessageConstant}
	}
	answer, promptError := resolver.prompter.Ask(question, defaultValue)
	if promptError != nil {
		return "", fmt.Errorf(promptErrorTemplateConstant, fieldName, promptError)
	}
	return strings.TrimSpace(answer), nil
}

func (resolver credentialResolver) resolveSource(configuration SourceConfiguration) (SourceConfiguration, error) {
	resolved := configuration
	var resolveError error
	if resolved.AppID, resolveError = resolver.requireValue(sourceAppIDFieldConstant, sourceAppIDQuestionConstant, configuration.AppID, ""); resolveError != nil {
		return SourceConfiguration{}, resolveError
	}
	if resolved.APIKey, resolveError = resolver.requireValue(sourceAPIKeyFieldConstant, sourceAPIKeyQuestionConstant, configuration.APIKey, ""); resolveError != nil {
		return SourceConfiguration{}, resolveError
	}
	return resolved, nil
}

func (resolver credentialResolver) resolveDestination(source SourceConfiguration, destination DestinationConfiguration) (SourceConfiguration, DestinationConfiguration, error) {
	resolvedSource := source
	resolvedDestination := destination
	var resolveError error
	if resolvedSource.AuthIdentity, resolveError = resolver.requireValue(sourceAuthIdentityFieldConstant, sourceAuthIdentityQuestionConstant, source.AuthIdentity, defaultAuthIdentityConstant); resolveError != nil {
		return SourceConfiguration{}, DestinationConfiguration{}, resolveError
	}

	if len(strings.TrimSpace(destination.BaseURL)) == 0 {
		regionQuestion := fmt.Sprintf(destinationRegionQuestionTemplate, strings.Join(SupportedRegions, "|"))
		region, regionError := resolver.requireValue(destinationRegionFieldConstant, regionQuestion, destination.Region, amity.RegionUS)
		if regionError != nil {
			return SourceConfiguration{}, DestinationConfiguration{}, regionError
		}
		normalizedRegion, validationError := flags.ValidateChoice(region, SupportedRegions)
		if validationError != nil {
			return SourceConfiguration{}, DestinationConfiguration{}, InvalidInputError{FieldName: destinationRegionFieldConstant, Message: validationError.Error()}
		}
		resolvedDestination.Region = normalizedRegion
	}

	if resolvedDestination.APIKey, resolveError = resolver.requireValue(destinationAPIKeyFieldConstant, destinationAPIKeyQuestionConstant, destination.APIKey, ""); resolveError != nil {
		return SourceConfiguration{}, DestinationConfiguration{}, resolveError
	}
	if resolvedDestination.AdminToken, resolveError = resolver.requireValue(destinationAdminTokenFieldConstant, destinationAdminTokenQuestionConstant, destination.AdminToken, ""); resolveError != nil {
		return SourceConfiguration{}, DestinationConfiguration{}, resolveError
	}
	return resolvedSource, resolvedDestination, nil
}
