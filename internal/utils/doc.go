// Package utils exposes reusable helpers consumed by the CLI commands.
//
// It houses the ConfigurationLoader, which layers embedded defaults, a config
// file and SOCIALMIGRATE_* environment variables through Viper, and the
// LoggerFactory, which builds zap loggers with optional detail and error file sinks.
package utils
