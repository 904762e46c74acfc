package parsing

import (
	"github.com/jxo-me/talpa/config"
	"github.com/jxo-me/talpa/core/credential"
	xcredential "github.com/jxo-me/talpa/sdk/credential"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrStoreNotSupported = errors.New("credential backend not supported")
	Stores               = map[string]func(cfg *config.CredentialsConfig) credential.IStore{
		xcredential.KeychainCode: func(cfg *config.CredentialsConfig) credential.IStore {
			return xcredential.NewKeychainStore(cfg.Service)
		},
		xcredential.FileCode: func(cfg *config.CredentialsConfig) credential.IStore {
			return xcredential.NewFileStore(afero.NewOsFs(), cfg.File)
		},
		xcredential.EnvCode: func(cfg *config.CredentialsConfig) credential.IStore {
			return xcredential.NewEnvStore()
		},
	}
)

// ParseStore picks the credential backend named by cfg.Backend.
func ParseStore(cfg *config.CredentialsConfig) (credential.IStore, error) {
	newStore, ok := Stores[cfg.Backend]
	if !ok {
		return nil, errors.Wrapf(ErrStoreNotSupported, "%q", cfg.Backend)
	}
	return newStore(cfg), nil
}
