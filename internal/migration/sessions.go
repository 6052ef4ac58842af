package migration

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	defaultDeviceIDPrefixConstant     = "socialmigrate"
	deviceIDSeparatorConstant         = "-"
	deviceKindConstant                = "web"
	deviceSDKVersionConstant          = "1.0"
	sessionEstablishedMessageConstant = "destination session established"
	userIDFieldNameConstant           = "user_id"
)

// SessionProvider establishes one destination session per source user and reuses its token.
type SessionProvider struct {
	destination    SessionDestination
	deviceIDPrefix string
	logger         *zap.Logger
	inFlight       singleflight.Group
	tokensMutex    sync.RWMutex
	tokens         map[string]string
}

// NewSessionProvider constructs a provider. An empty prefix uses "socialmigrate".
func NewSessionProvider(destination SessionDestination, deviceIDPrefix string, logger *zap.Logger) *SessionProvider {
	if len(strings.TrimSpace(deviceIDPrefix)) == 0 {
		deviceIDPrefix = defaultDeviceIDPrefixConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionProvider{
		destination:    destination,
		deviceIDPrefix: deviceIDPrefix,
		logger:         logger,
		tokens:         make(map[string]string),
	}
}

// AccessToken returns the session token for user, creating the session on first use.
// Concurrent callers for the same user share one session request.
func (provider *SessionProvider) AccessToken(executionContext context.Context, user getsocial.User) (string, error) {
	if cachedToken, cached := provider.cachedToken(user.ID); cached {
		return cachedToken, nil
	}

	token, sessionError, _ := provider.inFlight.Do(user.ID, func() (any, error) {
		if cachedToken, cached := provider.cachedToken(user.ID); cached {
			return cachedToken, nil
		}
		accessToken, createError := provider.destination.CreateSession(executionContext, amity.SessionRequest{
			UserID:   user.ID,
			DeviceID: provider.deviceIDPrefix + deviceIDSeparatorConstant + user.ID,
			DeviceInfo: amity.DeviceInfo{
				Kind:       deviceKindConstant,
				Model:      provider.deviceIDPrefix,
				SDKVersion: deviceSDKVersionConstant,
			},
			DisplayName: user.DisplayName,
		})
		if createError != nil {
			return "", createError
		}
		provider.tokensMutex.Lock()
		provider.tokens[user.ID] = accessToken
		provider.tokensMutex.Unlock()
		provider.logger.Debug(sessionEstablishedMessageConstant, zap.String(userIDFieldNameConstant, user.ID))
		return accessToken, nil
	})
	if sessionError != nil {
		return "", sessionError
	}
	return token.(string), nil
}

func (provider *SessionProvider) cachedToken(userID string) (string, bool) {
	provider.tokensMutex.RLock()
	defer provider.tokensMutex.RUnlock()
	token, cached := provider.tokens[userID]
	return token, cached
}
