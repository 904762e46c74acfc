package route

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/jxo-me/talpa/core/dns"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/jxo-me/talpa/core/hook"
	"github.com/jxo-me/talpa/sdk/ingress"
	"github.com/pkg/errors"
	"strings"
	"sync"
)

const (
	testTunnel = "c1744f8b-faa1-48a4-9e5c-02ac921467fa"
	testZone   = "zone1"
)

// fakeTunnel stores the configuration as JSON, the way the remote does.
type fakeTunnel struct {
	mu       sync.Mutex
	doc      []byte
	fetchErr error
	// putErrs is consumed one entry per ReplaceConfig call; nil entries succeed.
	putErrs []error
	puts    int
}

func newFakeTunnel(doc string) *fakeTunnel {
	return &fakeTunnel{doc: []byte(doc)}
}

func (f *fakeTunnel) FetchConfig(_ context.Context, tunnelID string) (*ingress.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return ingress.ParseConfig(f.doc)
}

func (f *fakeTunnel) ReplaceConfig(_ context.Context, tunnelID string, cfg *ingress.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.puts
	f.puts++
	if call < len(f.putErrs) && f.putErrs[call] != nil {
		return f.putErrs[call]
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	f.doc = data
	return nil
}

type fakeRecords struct {
	mu        sync.Mutex
	records   map[string]*dns.Record
	nextID    int
	findErr   error
	createErr error
	updateErr error
	deleteErr error
	creates   int
	updates   int
	deletes   int
	onCreate  func()
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]*dns.Record{}}
}

func (f *fakeRecords) add(name, target string) {
	f.addTyped(name, "CNAME", target)
}

func (f *fakeRecords) addTyped(name, recordType, target string) {
	f.nextID++
	f.records[strings.ToLower(name)] = &dns.Record{ID: fmt.Sprintf("rec%d", f.nextID), Name: name, Type: recordType, Target: target, Proxied: true}
}

func (f *fakeRecords) FindByName(_ context.Context, zoneID, name string) (*dns.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.records[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(errdefs.ErrRecordNotFound, "no record for %s", name)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) Create(_ context.Context, zoneID, name, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	f.add(name, target)
	return f.records[strings.ToLower(name)].ID, nil
}

func (f *fakeRecords) Update(_ context.Context, zoneID, recordID, name, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, rec := range f.records {
		if rec.ID == recordID {
			rec.Type = "CNAME"
			rec.Target = target
			return nil
		}
	}
	return errors.Wrapf(errdefs.ErrAPIRequest, "record %s does not exist", recordID)
}

func (f *fakeRecords) Delete(_ context.Context, zoneID, recordID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for name, rec := range f.records {
		if rec.ID == recordID {
			delete(f.records, name)
			return nil
		}
	}
	return errors.Wrapf(errdefs.ErrAPIRequest, "record %s does not exist", recordID)
}

type recordingHook struct {
	events []*hook.Event
}

func (h *recordingHook) String() string { return "recording" }

func (h *recordingHook) ExecHook(_ context.Context, ev *hook.Event) error {
	h.events = append(h.events, ev)
	return nil
}
