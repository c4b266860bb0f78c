package picker

import (
	"fmt"
	"strings"

	"github.com/runger/logistix/internal/backend"
	"github.com/runger/logistix/internal/config"
	"github.com/runger/logistix/internal/domain"
)

// CustomerOption maps a customer to an option labelled by name.
func CustomerOption(c domain.Customer) Option {
	return Option{
		Value:       c.ID,
		Label:       fallback(c.Name, c.Code, c.ID),
		Description: joinNonEmpty(" · ", c.Code, c.City, c.Country),
	}
}

// VendorOption maps a vendor to an option labelled by name.
func VendorOption(v domain.Vendor) Option {
	return Option{
		Value:       v.ID,
		Label:       fallback(v.Name, v.Code, v.ID),
		Description: joinNonEmpty(" · ", v.Code, v.ServiceType),
	}
}

// LocationOption maps a location to an option labelled by name.
func LocationOption(l domain.Location) Option {
	return Option{
		Value:       l.ID,
		Label:       fallback(l.Name, l.Code, l.ID),
		Description: joinNonEmpty(" · ", l.Type, joinNonEmpty(", ", l.City, l.Country)),
	}
}

// PriceListOption maps a price list to an option showing its headline rate.
func PriceListOption(p domain.PriceList) Option {
	return Option{
		Value:       p.ID,
		Label:       fallback(p.Name, p.Code, p.ID),
		Description: joinNonEmpty(" · ", p.Side, p.RateLabel()),
	}
}

// ResourceSource builds the Source for a configured resource.
func ResourceSource(c *backend.Client, def config.ResourceDef) (Source, error) {
	kind, err := domain.ParseKind(def.Kind)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", def.ID, err)
	}
	res := backend.Resource{Path: def.Path, SearchParam: def.SearchParam}

	switch kind {
	case domain.KindCustomer:
		return MapSource(backend.Fetcher[domain.Customer](c, res), CustomerOption), nil
	case domain.KindVendor:
		return MapSource(backend.Fetcher[domain.Vendor](c, res), VendorOption), nil
	case domain.KindLocation:
		return MapSource(backend.Fetcher[domain.Location](c, res), LocationOption), nil
	case domain.KindPriceList:
		return MapSource(backend.Fetcher[domain.PriceList](c, res), PriceListOption), nil
	default:
		return nil, fmt.Errorf("resource %s: unsupported kind %s", def.ID, kind)
	}
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
