package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant            = "~"
	homeShortcutSlashConstant       = "~/"
	variableMarkerConstant          = "$"
	unresolvedVariableOpenConstant  = "${"
	unresolvedVariableCloseConstant = "}"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// EnvironmentLookup resolves an environment variable.
type EnvironmentLookup func(name string) (string, bool)

// HomeExpander resolves user-supplied file locations such as the configuration
// file, log sinks and run reports. It expands $VAR and ${VAR} references and a
// leading ~ for the current user. References to unset variables are kept verbatim.
type HomeExpander struct {
	homeDirectory     func() (string, error)
	lookupEnvironment EnvironmentLookup
}

// NewHomeExpander constructs a HomeExpander backed by the operating system.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander resolving the home directory through provider.
// The provider is consulted at most once.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{
		homeDirectory:     sync.OnceValues(provider),
		lookupEnvironment: os.LookupEnv,
	}
}

// WithEnvironment replaces the environment used for variable references.
func (expander *HomeExpander) WithEnvironment(lookup EnvironmentLookup) *HomeExpander {
	if expander != nil && lookup != nil {
		expander.lookupEnvironment = lookup
	}
	return expander
}

// Expand returns candidatePath with variables and the home shortcut resolved.
// ~user forms are left alone, as is a path whose home directory cannot be resolved.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || len(candidatePath) == 0 {
		return candidatePath
	}

	expandedPath := expander.expandVariables(candidatePath)
	remainder, homeRelative := trimHomeShortcut(expandedPath)
	if !homeRelative {
		return expandedPath
	}

	homeDirectory, homeError := expander.homeDirectory()
	if homeError != nil || len(homeDirectory) == 0 {
		return expandedPath
	}
	if len(remainder) == 0 {
		return homeDirectory
	}
	return filepath.Join(homeDirectory, remainder)
}

func (expander *HomeExpander) expandVariables(candidatePath string) string {
	if !strings.Contains(candidatePath, variableMarkerConstant) {
		return candidatePath
	}
	return os.Expand(candidatePath, func(variableName string) string {
		if value, present := expander.lookupEnvironment(variableName); present {
			return value
		}
		return unresolvedVariableOpenConstant + variableName + unresolvedVariableCloseConstant
	})
}

func trimHomeShortcut(candidatePath string) (string, bool) {
	if candidatePath == homeShortcutConstant {
		return "", true
	}
	if remainder, found := strings.CutPrefix(candidatePath, homeShortcutSlashConstant); found {
		return remainder, true
	}
	if remainder, found := strings.CutPrefix(candidatePath, homeShortcutConstant+string(os.PathSeparator)); found {
		return remainder, true
	}
	return "", false
}
