package credential

// IStore is an opaque secret store. Get returns errdefs.ErrCredentialNotFound
// for a key that was never set.
type IStore interface {
	String() string
	Get(key string) (string, error)
	Set(key, secret string) error
}

// Credentials is everything a route command needs to reach the API.
type Credentials struct {
	AccountID string `json:"account_id" yaml:"account_id"`
	ZoneID    string `json:"zone_id" yaml:"zone_id"`
	TunnelID  string `json:"tunnel_id" yaml:"tunnel_id"`
	APIToken  string `json:"-" yaml:"-"`
}
