package route

import (
	"context"
	"github.com/jxo-me/talpa/core/tunnel"
	"github.com/jxo-me/talpa/sdk/ingress"
	"iter"
)

// Entry is one displayed route.
type Entry struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Service  string `json:"service" yaml:"service"`
}

// Listing is a read-only snapshot of a tunnel's ingress list.
type Listing struct {
	TunnelID string
	Rules    ingress.Rules
}

// Routes yields (hostname, service) for every rule except the catch-all.
func (l *Listing) Routes() iter.Seq2[string, string] {
	return l.Rules.Display()
}

func (l *Listing) Count() int {
	return l.Rules.Routes()
}

// CatchAll returns the terminal rule, if the list has one.
func (l *Listing) CatchAll() (ingress.Rule, bool) {
	if n := len(l.Rules); n > 0 && l.Rules[n-1].IsCatchAll() {
		return l.Rules[n-1], true
	}
	return ingress.Rule{}, false
}

func (l *Listing) Entries() []Entry {
	entries := make([]Entry, 0, len(l.Rules))
	for _, r := range l.Rules {
		if r.IsCatchAll() {
			continue
		}
		entries = append(entries, Entry{Hostname: r.Hostname, Path: r.Path, Service: r.Service})
	}
	return entries
}

type Lister struct {
	configs  tunnel.IConfigs
	tunnelID string
}

func NewLister(configs tunnel.IConfigs, tunnelID string) *Lister {
	return &Lister{configs: configs, tunnelID: tunnelID}
}

// List fetches the current ingress list. Nothing is written.
func (l *Lister) List(ctx context.Context) (*Listing, error) {
	cfg, err := l.configs.FetchConfig(ctx, l.tunnelID)
	if err != nil {
		return nil, err
	}
	return &Listing{TunnelID: l.tunnelID, Rules: cfg.Ingress}, nil
}
