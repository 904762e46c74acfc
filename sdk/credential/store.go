// Package credential implements the secret stores behind `talpa setup` and
// loads the credential bundle every route command needs.
package credential

import (
	"github.com/google/uuid"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/credential"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"strings"
)

// Load reads every credential key from store. All missing keys are reported
// at once.
func Load(store credential.IStore) (*credential.Credentials, error) {
	values := make(map[string]string, len(consts.CredentialKeys))
	var missing []string
	for _, key := range consts.CredentialKeys {
		v, err := store.Get(key)
		switch {
		case errors.Is(err, errdefs.ErrCredentialNotFound):
			missing = append(missing, key)
		case err != nil:
			return nil, err
		default:
			values[key] = v
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(errdefs.ErrCredentialNotFound,
			"%s missing from %s store, run `talpa setup`", strings.Join(missing, ", "), store.String())
	}
	return &credential.Credentials{
		AccountID: values[consts.KeyAccountID],
		ZoneID:    values[consts.KeyZoneID],
		TunnelID:  values[consts.KeyTunnelID],
		APIToken:  values[consts.KeyAPIToken],
	}, nil
}

// Save writes the whole bundle, stopping at the first failure.
func Save(store credential.IStore, creds *credential.Credentials) error {
	for _, kv := range pairs(creds) {
		if err := store.Set(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the bundle before it is stored.
func Validate(creds *credential.Credentials) error {
	for _, kv := range pairs(creds) {
		if strings.TrimSpace(kv[1]) == "" {
			return errors.Wrapf(errdefs.ErrInvalidArgument, "%s is empty", kv[0])
		}
	}
	if _, err := uuid.Parse(creds.TunnelID); err != nil {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "tunnel id %q is not a UUID", creds.TunnelID)
	}
	return nil
}

func pairs(creds *credential.Credentials) [][2]string {
	return [][2]string{
		{consts.KeyAccountID, creds.AccountID},
		{consts.KeyZoneID, creds.ZoneID},
		{consts.KeyTunnelID, creds.TunnelID},
		{consts.KeyAPIToken, creds.APIToken},
	}
}
