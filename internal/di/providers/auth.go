package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/auth"
	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
)

// AuthKey wraps the PASETO key bytes.
type AuthKey []byte

// ProvideAuthKey loads the key from AUTH_TOKEN_KEY or from the data path,
// generating one on first run.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if cfg.Auth.TokenKeyHex != "" {
		key, err := auth.ParseKey(cfg.Auth.TokenKeyHex)
		if err != nil {
			return nil, err
		}
		return AuthKey(key), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}
	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	authKey := do.MustInvoke[AuthKey](i)
	return auth.NewTokenService([]byte(authKey))
}

// ProvideVerifier provides the bearer token verifier for the configured
// identity provider.
func ProvideVerifier(i do.Injector) (auth.Verifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.Provider == config.AuthProviderFirebase {
		verifier, err := auth.NewFirebaseVerifier(context.Background(), auth.FirebaseConfig{
			ProjectID:       cfg.Auth.FirebaseProjectID,
			CredentialsFile: cfg.Auth.FirebaseCredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Authentication via Firebase", "project_id", cfg.Auth.FirebaseProjectID)
		return verifier, nil
	}

	tokens := do.MustInvoke[*auth.TokenService](i)
	log.Info("Authentication via PASETO tokens")
	return tokens, nil
}
