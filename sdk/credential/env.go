package credential

import (
	"github.com/jxo-me/talpa/core/credential"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"strings"
)

const (
	EnvCode = "env"

	EnvPrefix = "CLOUDFLARE"
)

var _ credential.IStore = (*EnvStore)(nil)

// EnvStore reads CLOUDFLARE_ACCOUNT_ID, CLOUDFLARE_ZONE_ID, CLOUDFLARE_TUNNEL_ID
// and CLOUDFLARE_API_TOKEN. It cannot be written.
type EnvStore struct {
	v *viper.Viper
}

func NewEnvStore() *EnvStore {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &EnvStore{v: v}
}

func (s *EnvStore) String() string {
	return EnvCode
}

// EnvName is the variable a key is read from.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

func (s *EnvStore) Get(key string) (string, error) {
	v := strings.TrimSpace(s.v.GetString(key))
	if v == "" {
		return "", errors.Wrapf(errdefs.ErrCredentialNotFound, "%s is not set", EnvName(key))
	}
	return v, nil
}

func (s *EnvStore) Set(key, _ string) error {
	return errors.Wrapf(errdefs.ErrReadOnlyStore, "export %s instead", EnvName(key))
}
