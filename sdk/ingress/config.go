package ingress

import (
	"bytes"
	"encoding/json"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"sort"
)

const ingressKey = "ingress"

// Config is a tunnel configuration document. Only the ingress list is
// interpreted; every other top-level key (warp-routing, originRequest, ...)
// is carried through untouched so a whole-document replace does not drop it.
type Config struct {
	Ingress Rules
	extra   map[string]json.RawMessage
}

// ParseConfig decodes a configuration document. A JSON null yields an empty
// Config, which then fails Validate.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(errdefs.ErrMalformedRemoteConfig, "decode tunnel configuration: %v", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return c.Ingress.Validate()
}

// WithIngress returns a copy of c holding rules. The extra keys are shared;
// they are never mutated.
func (c *Config) WithIngress(rules Rules) *Config {
	return &Config{Ingress: rules, extra: c.extra}
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Ingress = nil
	if v, ok := raw[ingressKey]; ok {
		if err := json.Unmarshal(v, &c.Ingress); err != nil {
			return err
		}
		delete(raw, ingressKey)
	}
	if len(raw) > 0 {
		c.extra = raw
	} else {
		c.extra = nil
	}
	return nil
}

func (c Config) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(c.extra))
	for k := range c.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, k := range keys {
		name, _ := json.Marshal(k)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(c.extra[k])
		buf.WriteByte(',')
	}
	rules := c.Ingress
	if rules == nil {
		rules = Rules{}
	}
	body, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"ingress":`)
	buf.Write(body)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Extra returns the names of the preserved non-ingress keys.
func (c *Config) Extra() []string {
	keys := make([]string, 0, len(c.extra))
	for k := range c.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
