package migrate

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/checkpoint"
	"github.com/temirov/socialmigrate/internal/utils/flags"
)

const (
	defaultSourceBaseURLConstant            = "https://api.getsocial.im"
	defaultAuthIdentityConstant             = "email"
	defaultMediaHostPrefixConstant          = "https://cdn.getsocial.im/"
	defaultPageLimitConstant                = 10
	defaultSourceMaxConcurrentConstant      = 1
	defaultDestinationMaxConcurrentConstant = 10
	defaultMinDispatchIntervalConstant      = time.Second
	defaultDeviceIDPrefixConstant           = "socialmigrate"
	defaultCheckpointKeyPrefixConstant      = "socialmigrate"
	regionConfigurationKeyConstant          = "region"
	sourceConfigurationKeyConstant          = "source"
	destinationConfigurationKeyConstant     = "destination"
	migrationConfigurationKeyConstant       = "migration"
	checkpointConfigurationKeyConstant      = "checkpoint"
	httpConfigurationKeyConstant            = "http"
	configurationKeySeparatorConstant       = "."
	rateLimitMaxConcurrentKeyConstant       = "rate_limit.max_concurrent"
	rateLimitMinDispatchIntervalKeyConstant = "rate_limit.min_dispatch_interval"
	sourceSchedulerNameConstant             = "source"
	destinationSchedulerNameConstant        = "destination"
)

// SupportedRegions lists the destination regions accepted in configuration and prompts.
var SupportedRegions = []string{amity.RegionUS, amity.RegionEU, amity.RegionSG}

// Configuration captures every setting consumed by the groups and migrate commands.
type Configuration struct {
	Source      SourceConfiguration      `mapstructure:"source"`
	Destination DestinationConfiguration `mapstructure:"destination"`
	Migration   MigrationConfiguration   `mapstructure:"migration"`
	Checkpoint  checkpoint.Configuration `mapstructure:"checkpoint"`
	HTTP        HTTPConfiguration        `mapstructure:"http"`
}

// SourceConfiguration identifies the source application.
type SourceConfiguration struct {
	BaseURL         string                 `mapstructure:"base_url"`
	AppID           string                 `mapstructure:"app_id"`
	APIKey          string                 `mapstructure:"api_key"`
	AuthIdentity    string                 `mapstructure:"auth_identity"`
	MediaHostPrefix string                 `mapstructure:"media_host_prefix"`
	PageLimit       int                    `mapstructure:"page_limit"`
	RateLimit       RateLimitConfiguration `mapstructure:"rate_limit"`
}

// DestinationConfiguration identifies the destination application. BaseURL overrides Region when set.
type DestinationConfiguration struct {
	Region     string                 `mapstructure:"region"`
	BaseURL    string                 `mapstructure:"base_url"`
	APIKey     string                 `mapstructure:"api_key"`
	AdminToken string                 `mapstructure:"admin_token"`
	RateLimit  RateLimitConfiguration `mapstructure:"rate_limit"`
}

// RateLimitConfiguration bounds the requests issued against one service.
type RateLimitConfiguration struct {
	MaxConcurrent       int           `mapstructure:"max_concurrent"`
	MinDispatchInterval time.Duration `mapstructure:"min_dispatch_interval"`
}

// MigrationConfiguration tunes the migration run.
type MigrationConfiguration struct {
	ContinueOnEntityFailure bool     `mapstructure:"continue_on_entity_failure"`
	DeviceIDPrefix          string   `mapstructure:"device_id_prefix"`
	Groups                  []string `mapstructure:"groups"`
}

// HTTPConfiguration tunes the shared HTTP client. A zero timeout waits indefinitely.
type HTTPConfiguration struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfiguration provides the settings used when nothing is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		Source: SourceConfiguration{
			BaseURL:         defaultSourceBaseURLConstant,
			AuthIdentity:    defaultAuthIdentityConstant,
			MediaHostPrefix: defaultMediaHostPrefixConstant,
			PageLimit:       defaultPageLimitConstant,
			RateLimit: RateLimitConfiguration{
				MaxConcurrent:       defaultSourceMaxConcurrentConstant,
				MinDispatchInterval: defaultMinDispatchIntervalConstant,
			},
		},
		Destination: DestinationConfiguration{
			Region: amity.RegionUS,
			RateLimit: RateLimitConfiguration{
				MaxConcurrent:       defaultDestinationMaxConcurrentConstant,
				MinDispatchInterval: defaultMinDispatchIntervalConstant,
			},
		},
		Migration: MigrationConfiguration{
			DeviceIDPrefix: defaultDeviceIDPrefixConstant,
		},
		Checkpoint: checkpoint.Configuration{
			Backend: checkpoint.BackendNone,
			Redis: checkpoint.RedisConfiguration{
				KeyPrefix: defaultCheckpointKeyPrefixConstant,
			},
		},
	}
}

// DefaultConfigurationValues flattens the defaults into configuration keys.
func DefaultConfigurationValues() map[string]any {
	defaults := DefaultConfiguration()
	values := make(map[string]any)
	values[joinKeys(sourceConfigurationKeyConstant, "base_url")] = defaults.Source.BaseURL
	values[joinKeys(sourceConfigurationKeyConstant, "auth_identity")] = defaults.Source.AuthIdentity
	values[joinKeys(sourceConfigurationKeyConstant, "media_host_prefix")] = defaults.Source.MediaHostPrefix
	values[joinKeys(sourceConfigurationKeyConstant, "page_limit")] = defaults.Source.PageLimit
	values[joinKeys(sourceConfigurationKeyConstant, rateLimitMaxConcurrentKeyConstant)] = defaults.Source.RateLimit.MaxConcurrent
	values[joinKeys(sourceConfigurationKeyConstant, rateLimitMinDispatchIntervalKeyConstant)] = defaults.Source.RateLimit.MinDispatchInterval
	values[joinKeys(destinationConfigurationKeyConstant, regionConfigurationKeyConstant)] = defaults.Destination.Region
	values[joinKeys(destinationConfigurationKeyConstant, rateLimitMaxConcurrentKeyConstant)] = defaults.Destination.RateLimit.MaxConcurrent
	values[joinKeys(destinationConfigurationKeyConstant, rateLimitMinDispatchIntervalKeyConstant)] = defaults.Destination.RateLimit.MinDispatchInterval
	values[joinKeys(migrationConfigurationKeyConstant, "continue_on_entity_failure")] = defaults.Migration.ContinueOnEntityFailure
	values[joinKeys(migrationConfigurationKeyConstant, "device_id_prefix")] = defaults.Migration.DeviceIDPrefix
	values[joinKeys(checkpointConfigurationKeyConstant, "backend")] = string(defaults.Checkpoint.Backend)
	values[joinKeys(checkpointConfigurationKeyConstant, "redis.key_prefix")] = defaults.Checkpoint.Redis.KeyPrefix
	values[joinKeys(httpConfigurationKeyConstant, "timeout")] = defaults.HTTP.Timeout
	return values
}

func joinKeys(section string, key string) string {
	return section + configurationKeySeparatorConstant + key
}

// RegionDecodeHook validates and normalizes the destination region while configuration is decoded.
func RegionDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, targetType reflect.Type, value any) (any, error) {
		if targetType != reflect.TypeOf(DestinationConfiguration{}) {
			return value, nil
		}
		rawSettings, isMap := value.(map[string]any)
		if !isMap {
			return value, nil
		}
		rawRegion, regionPresent := rawSettings[regionConfigurationKeyConstant]
		if !regionPresent {
			return value, nil
		}
		regionText, isText := rawRegion.(string)
		if !isText || len(strings.TrimSpace(regionText)) == 0 {
			return value, nil
		}
		normalizedRegion, validationError := flags.ValidateChoice(regionText, SupportedRegions)
		if validationError != nil {
			return nil, validationError
		}
		normalizedSettings := make(map[string]any, len(rawSettings))
		for key, setting := range rawSettings {
			normalizedSettings[key] = setting
		}
		normalizedSettings[regionConfigurationKeyConstant] = normalizedRegion
		return normalizedSettings, nil
	}
}

func trimmedValues(rawValues []string) []string {
	values := make([]string, 0, len(rawValues))
	for _, rawValue := range rawValues {
		value := strings.TrimSpace(rawValue)
		if len(value) == 0 {
			continue
		}
		values = append(values, value)
	}
	return values
}
