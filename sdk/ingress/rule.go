package ingress

import (
	"bytes"
	"encoding/json"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"iter"
	"strings"
)

// Rule is one entry of a tunnel's ordered ingress list. The catch-all rule has
// neither hostname nor path.
type Rule struct {
	Hostname      string          `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Path          string          `json:"path,omitempty" yaml:"path,omitempty"`
	Service       string          `json:"service" yaml:"service"`
	OriginRequest json.RawMessage `json:"originRequest,omitempty" yaml:"-"`
}

// CatchAll returns the terminal rule written by this tool.
func CatchAll() Rule {
	return Rule{Service: consts.CatchAllService}
}

func (r Rule) IsCatchAll() bool {
	return r.Hostname == "" && r.Path == ""
}

func (r Rule) matches(hostname string) bool {
	return r.Hostname != "" && strings.EqualFold(r.Hostname, hostname)
}

func (r Rule) equal(o Rule) bool {
	return r.Hostname == o.Hostname &&
		r.Path == o.Path &&
		r.Service == o.Service &&
		sameJSON(r.OriginRequest, o.OriginRequest)
}

func sameJSON(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// Rules is an ordered ingress list whose last element is the only catch-all.
// Mutating methods return a new list and leave the receiver untouched, so a
// caller can keep the fetched list around for rollback.
type Rules []Rule

// Validate rejects lists that break the catch-all invariant. Nothing is
// repaired: a broken list may be the result of an edit made elsewhere.
func (l Rules) Validate() error {
	if len(l) == 0 {
		return errors.Wrap(errdefs.ErrMalformedRemoteConfig, "ingress list is empty, catch-all rule missing")
	}
	for i, r := range l {
		if r.Service == "" {
			return errors.Wrapf(errdefs.ErrMalformedRemoteConfig, "ingress rule %d has no service", i)
		}
		if r.IsCatchAll() && i != len(l)-1 {
			return errors.Wrapf(errdefs.ErrMalformedRemoteConfig, "catch-all rule at position %d is not last (%d rules)", i, len(l))
		}
	}
	if !l[len(l)-1].IsCatchAll() {
		return errors.Wrap(errdefs.ErrMalformedRemoteConfig, "last ingress rule is not a catch-all")
	}
	return nil
}

// Contains reports whether any rule routes hostname, compared case-insensitively.
func (l Rules) Contains(hostname string) bool {
	_, ok := l.Lookup(hostname)
	return ok
}

// Lookup returns the first path-less rule for hostname, or the first rule for
// it at all when every rule for hostname is path-scoped.
func (l Rules) Lookup(hostname string) (Rule, bool) {
	idx := l.index(hostname)
	if idx < 0 {
		return Rule{}, false
	}
	return l[idx], true
}

func (l Rules) index(hostname string) int {
	first := -1
	for i, r := range l {
		if !r.matches(hostname) {
			continue
		}
		if r.Path == "" {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// InsertOrReplace points hostname at service. An existing path-less rule for
// hostname keeps its position and gets the new service; otherwise a new rule is
// inserted right before the catch-all. changed is false when the list already
// held exactly this mapping.
func (l Rules) InsertOrReplace(hostname, service string) (updated Rules, changed bool, err error) {
	if err = l.Validate(); err != nil {
		return nil, false, err
	}
	updated = l.clone()
	for i, r := range updated {
		if r.matches(hostname) && r.Path == "" {
			if r.Service == service {
				return updated, false, nil
			}
			updated[i].Service = service
			return updated, true, nil
		}
	}
	last := len(updated) - 1
	updated = append(updated[:last], Rule{Hostname: hostname, Service: service}, l[last])
	return updated, true, nil
}

// Remove drops every rule for hostname. It fails with errdefs.ErrRouteNotFound
// when there is none; the receiver is never modified.
func (l Rules) Remove(hostname string) (Rules, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	updated := make(Rules, 0, len(l))
	for _, r := range l {
		if r.matches(hostname) {
			continue
		}
		updated = append(updated, r)
	}
	if len(updated) == len(l) {
		return nil, errors.Wrapf(errdefs.ErrRouteNotFound, "%s is not in the tunnel ingress", hostname)
	}
	return updated, nil
}

// Display yields (hostname, service) for every rule except catch-alls, in
// stored order. Path-scoped rules are shown as hostname+path. Each range over
// the returned sequence reads the list afresh.
func (l Rules) Display() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, r := range l {
			if r.IsCatchAll() {
				continue
			}
			if !yield(r.Hostname+r.Path, r.Service) {
				return
			}
		}
	}
}

// Routes counts the rules Display yields.
func (l Rules) Routes() int {
	n := 0
	for range l.Display() {
		n++
	}
	return n
}

func (l Rules) Equal(o Rules) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].equal(o[i]) {
			return false
		}
	}
	return true
}

func (l Rules) clone() Rules {
	out := make(Rules, len(l), len(l)+1)
	copy(out, l)
	return out
}
