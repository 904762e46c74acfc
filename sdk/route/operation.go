package route

import (
	"fmt"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/sdk/ingress"
	"strings"
)

type Kind string

const (
	KindCreate Kind = "dig"
	KindRemove Kind = "plug"
)

// Operation is one requested route change. It lives for a single invocation.
type Operation struct {
	Kind     Kind
	Hostname string
	Service  string
	// Force replaces (dig) or deletes (plug) a DNS record that points
	// somewhere other than the tunnel.
	Force bool
}

// NewCreate validates and normalizes a dig request.
func NewCreate(hostname, service string) (Operation, error) {
	h, err := ingress.NormalizeHostname(hostname)
	if err != nil {
		return Operation{}, err
	}
	service = strings.TrimSpace(service)
	if err = ingress.ValidateService(service); err != nil {
		return Operation{}, err
	}
	return Operation{Kind: KindCreate, Hostname: h, Service: service}, nil
}

// NewRemove validates and normalizes a plug request.
func NewRemove(hostname string) (Operation, error) {
	h, err := ingress.NormalizeHostname(hostname)
	if err != nil {
		return Operation{}, err
	}
	return Operation{Kind: KindRemove, Hostname: h}, nil
}

func (o Operation) String() string {
	if o.Kind == KindCreate {
		return fmt.Sprintf("%s %s -> %s", o.Kind, o.Hostname, o.Service)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Hostname)
}

// TunnelTarget is the CNAME target that routes a hostname into the tunnel.
func TunnelTarget(tunnelID string) string {
	return tunnelID + "." + consts.TunnelTargetSuffix
}
