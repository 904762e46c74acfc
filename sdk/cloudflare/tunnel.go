package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/jxo-me/talpa/core/tunnel"
	"github.com/jxo-me/talpa/sdk/ingress"
	"github.com/pkg/errors"
	"net/http"
	"net/url"
)

var _ tunnel.IConfigs = (*Client)(nil)

// tunnelConfigResult is the result of GET .../configurations.
type tunnelConfigResult struct {
	TunnelID string          `json:"tunnel_id"`
	Version  int             `json:"version"`
	Config   json.RawMessage `json:"config"`
	Source   string          `json:"source"`
}

type tunnelConfigUpdate struct {
	Config *ingress.Config `json:"config"`
}

func (c *Client) tunnelConfigPath(tunnelID string) string {
	return fmt.Sprintf("/accounts/%s/cfd_tunnel/%s/configurations", url.PathEscape(c.accountID), url.PathEscape(tunnelID))
}

// FetchConfig reads the remotely-managed configuration of a tunnel. The
// ingress list is returned as stored; validation is up to the caller.
func (c *Client) FetchConfig(ctx context.Context, tunnelID string) (*ingress.Config, error) {
	var resp cfResponse[json.RawMessage]
	if err := c.doRequest(ctx, "get tunnel configuration", http.MethodGet, c.tunnelConfigPath(tunnelID), nil, &resp); err != nil {
		return nil, err
	}
	var result tunnelConfigResult
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, errors.Wrapf(errdefs.ErrMalformedRemoteConfig, "decode tunnel configuration result: %v", err)
		}
	}
	cfg, err := ingress.ParseConfig(result.Config)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("tunnel %s configuration version %d: %d ingress rules", tunnelID, result.Version, len(cfg.Ingress))
	return cfg, nil
}

// ReplaceConfig writes the whole configuration document.
func (c *Client) ReplaceConfig(ctx context.Context, tunnelID string, cfg *ingress.Config) error {
	var resp cfResponse[json.RawMessage]
	return c.doRequest(ctx, "update tunnel configuration", http.MethodPut, c.tunnelConfigPath(tunnelID), &tunnelConfigUpdate{Config: cfg}, &resp)
}

// VerifyZone checks that the token can read the zone.
func (c *Client) VerifyZone(ctx context.Context, zoneID string) (string, error) {
	var resp cfResponse[json.RawMessage]
	if err := c.doRequest(ctx, "get zone", http.MethodGet, "/zones/"+url.PathEscape(zoneID), nil, &resp); err != nil {
		return "", err
	}
	var zone struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Result, &zone); err != nil {
		return "", errors.Wrap(err, "decode zone")
	}
	return zone.Name, nil
}
