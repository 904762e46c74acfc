package dns

import "context"

// Record is the DNS record occupying a public hostname, normally a CNAME
// pointing at a tunnel.
type Record struct {
	ID      string
	Name    string
	Type    string
	Target  string
	Proxied bool
}

// IRecords is the DNS record endpoint of one provider.
type IRecords interface {
	// FindByName returns the record at name, preferring a CNAME when several
	// records share it. errdefs.ErrRecordNotFound when the name is free.
	FindByName(ctx context.Context, zoneID, name string) (*Record, error)
	// Create adds a proxied CNAME and returns the new record id.
	Create(ctx context.Context, zoneID, name, target string) (string, error)
	// Update overwrites record recordID in place with a proxied CNAME.
	Update(ctx context.Context, zoneID, recordID, name, target string) error
	Delete(ctx context.Context, zoneID, recordID string) error
}
