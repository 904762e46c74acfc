package ingress

import (
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/miekg/dns"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
	"net/url"
	"strings"
)

// NormalizeHostname lower-cases hostname, strips a trailing dot and checks it
// is a DNS name below a public suffix. A leading "*." wildcard label is allowed.
func NormalizeHostname(hostname string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hostname))
	h = strings.TrimSuffix(h, ".")
	if h == "" {
		return "", errors.Wrap(errdefs.ErrInvalidArgument, "hostname is empty")
	}
	if _, ok := dns.IsDomainName(dns.Fqdn(h)); !ok {
		return "", errors.Wrapf(errdefs.ErrInvalidArgument, "%q is not a valid hostname", hostname)
	}
	labels := strings.Split(h, ".")
	for i, label := range labels {
		if label == "" {
			return "", errors.Wrapf(errdefs.ErrInvalidArgument, "%q has an empty label", hostname)
		}
		if label == "*" && i == 0 {
			continue
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
				return "", errors.Wrapf(errdefs.ErrInvalidArgument, "%q contains %q", hostname, r)
			}
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimPrefix(h, "*.")); err != nil {
		return "", errors.Wrapf(errdefs.ErrInvalidArgument, "%q is not below a registrable domain: %v", hostname, err)
	}
	return h, nil
}

// ValidateService accepts the origin forms cloudflared understands:
// http_status:<code>, hello_world, unix:<path>, or a URL with scheme and host.
func ValidateService(service string) error {
	s := strings.TrimSpace(service)
	switch {
	case s == "":
		return errors.Wrap(errdefs.ErrInvalidArgument, "service is empty")
	case strings.HasPrefix(s, "http_status:"):
		if len(s) == len("http_status:") {
			return errors.Wrapf(errdefs.ErrInvalidArgument, "%q has no status code", service)
		}
		return nil
	case s == "hello_world":
		return nil
	case strings.HasPrefix(s, "unix:"), strings.HasPrefix(s, "unix+tls:"):
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "service %q: %v", service, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "service %q must look like scheme://host[:port]", service)
	}
	return nil
}
