package cloudflare

import (
	"context"
	cf "github.com/cloudflare/cloudflare-go/v6"
	cfdns "github.com/cloudflare/cloudflare-go/v6/dns"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/dns"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"strings"
)

var _ dns.IRecords = (*Client)(nil)

// FindByName returns the record called name in the zone. The lookup is
// filtered by the API; a CNAME wins over other records sharing the name.
func (c *Client) FindByName(ctx context.Context, zoneID, name string) (*dns.Record, error) {
	want := normalizeName(name)
	iter := c.cf.DNS.Records.ListAutoPaging(ctx, cfdns.RecordListParams{
		ZoneID: cf.F(zoneID),
		Name:   cf.F(cfdns.RecordListParamsName{Exact: cf.F(want)}),
	})
	var found *dns.Record
	for iter.Next() {
		r := iter.Current()
		if normalizeName(r.Name) != want {
			continue
		}
		rec := &dns.Record{
			ID:      r.ID,
			Name:    r.Name,
			Type:    string(r.Type),
			Target:  r.Content,
			Proxied: r.Proxied,
		}
		if strings.EqualFold(rec.Type, consts.RecordTypeCNAME) {
			return rec, nil
		}
		if found == nil {
			found = rec
		}
	}
	if err := iter.Err(); err != nil {
		return nil, classify("list dns records", err)
	}
	if found != nil {
		return found, nil
	}
	return nil, errors.Wrapf(errdefs.ErrRecordNotFound, "no record for %s", name)
}

// Create adds a proxied CNAME from name to target.
func (c *Client) Create(ctx context.Context, zoneID, name, target string) (string, error) {
	rec, err := c.cf.DNS.Records.New(ctx, cfdns.RecordNewParams{
		ZoneID: cf.F(zoneID),
		Body: cfdns.CNAMERecordParam{
			Name:    cf.F(name),
			Content: cf.F(target),
			Type:    cf.F(cfdns.CNAMERecordTypeCNAME),
			Proxied: cf.F(true),
			TTL:     cf.F(cfdns.TTL(consts.RecordTTLAuto)),
		},
	})
	if err != nil {
		return "", classify("create dns record "+name, err)
	}
	c.logger.Debugf("created CNAME %s -> %s (id %s)", name, target, rec.ID)
	return rec.ID, nil
}

// Update overwrites a record in place, so a failed call leaves the old one intact.
func (c *Client) Update(ctx context.Context, zoneID, recordID, name, target string) error {
	_, err := c.cf.DNS.Records.Update(ctx, recordID, cfdns.RecordUpdateParams{
		ZoneID: cf.F(zoneID),
		Body: cfdns.CNAMERecordParam{
			Name:    cf.F(name),
			Content: cf.F(target),
			Type:    cf.F(cfdns.CNAMERecordTypeCNAME),
			Proxied: cf.F(true),
			TTL:     cf.F(cfdns.TTL(consts.RecordTTLAuto)),
		},
	})
	if err != nil {
		return classify("update dns record "+name, err)
	}
	c.logger.Debugf("updated dns record %s: CNAME %s -> %s", recordID, name, target)
	return nil
}

func (c *Client) Delete(ctx context.Context, zoneID, recordID string) error {
	_, err := c.cf.DNS.Records.Delete(ctx, recordID, cfdns.RecordDeleteParams{
		ZoneID: cf.F(zoneID),
	})
	if err != nil {
		return classify("delete dns record "+recordID, err)
	}
	c.logger.Debugf("deleted dns record %s", recordID)
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
