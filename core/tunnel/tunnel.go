package tunnel

import (
	"context"
	"github.com/jxo-me/talpa/sdk/ingress"
)

// IConfigs is the tunnel configuration endpoint. Replace is a whole-document
// write; there is no partial patch.
type IConfigs interface {
	FetchConfig(ctx context.Context, tunnelID string) (*ingress.Config, error)
	ReplaceConfig(ctx context.Context, tunnelID string, cfg *ingress.Config) error
}
