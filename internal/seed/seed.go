// Package seed fills an empty store with deterministic master data so the
// mock API has realistic volumes to page and search through.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/runger/logistix/internal/domain"
	"github.com/runger/logistix/internal/storage"
)

// namespace scopes the name-based record IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://logistix.local/masterdata"))

var (
	companyStems = []string{
		"Acme", "Nordic", "Baltic", "Alpine", "Rhein", "Danube", "Atlas", "Meridian",
		"Harbor", "Summit", "Pioneer", "Vega", "Orion", "Falcon", "Lindqvist", "Kovac",
		"Moreau", "Santos", "Brandt", "Okafor",
	}
	companyForms   = []string{"GmbH", "AG", "Ltd", "BV", "SA", "Srl", "Oy", "AB"}
	customerTrades = []string{"Foods", "Retail", "Pharma", "Textiles", "Machinery", "Chemicals", "Electronics", "Furniture"}
	vendorTrades   = []string{"Freight", "Haulage", "Logistics", "Shipping", "Transport", "Forwarding"}
	serviceTypes   = []string{"trucking", "warehousing", "customs", "ocean", "air", "rail"}
	locationTypes  = []string{"warehouse", "port", "terminal", "site"}
	units          = []string{"pallet", "kg", "trip", "container", "cbm"}
	currencies     = []string{"EUR", "EUR", "EUR", "USD", "GBP", "CHF", "SEK"}

	cities = []struct{ name, country, postal string }{
		{"Hamburg", "DE", "20457"}, {"Rotterdam", "NL", "3011"}, {"Antwerp", "BE", "2000"},
		{"Gdansk", "PL", "80-001"}, {"Gothenburg", "SE", "41101"}, {"Milan", "IT", "20121"},
		{"Lyon", "FR", "69001"}, {"Vienna", "AT", "1010"}, {"Basel", "CH", "4001"},
		{"Felixstowe", "GB", "IP11"}, {"Valencia", "ES", "46001"}, {"Duisburg", "DE", "47051"},
	}
)

// ID returns the deterministic identifier of the n-th record of kind.
func ID(kind domain.Kind, n int) string {
	return uuid.NewSHA1(namespace, fmt.Appendf(nil, "%s:%d", kind, n)).String()
}

// Seed inserts count records of every kind into an empty store. It is
// idempotent: kinds that already hold rows are left untouched.
func Seed(ctx context.Context, store storage.Store, count int) error {
	if count <= 0 {
		return nil
	}
	g := &generator{rng: rand.New(rand.NewPCG(42, uint64(count)))}

	steps := []struct {
		kind   domain.Kind
		insert func() error
	}{
		{domain.KindCustomer, func() error { return store.InsertCustomers(ctx, g.customers(count)) }},
		{domain.KindVendor, func() error { return store.InsertVendors(ctx, g.vendors(count)) }},
		{domain.KindLocation, func() error { return store.InsertLocations(ctx, g.locations(count)) }},
		{domain.KindPriceList, func() error { return store.InsertPriceLists(ctx, g.priceLists(count)) }},
	}

	for _, step := range steps {
		n, err := store.Count(ctx, step.kind)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if err := step.insert(); err != nil {
			return fmt.Errorf("seed %s: %w", step.kind, err)
		}
	}
	return nil
}

type generator struct {
	rng *rand.Rand
}

func (g *generator) pick(list []string) string {
	return list[g.rng.IntN(len(list))]
}

func (g *generator) company(i int, trades []string) string {
	stem := companyStems[i%len(companyStems)]
	trade := trades[(i/len(companyStems))%len(trades)]
	return fmt.Sprintf("%s %s %s", stem, trade, g.pick(companyForms))
}

func slug(name string) string {
	f := strings.Fields(strings.ToLower(name))
	if len(f) > 2 {
		f = f[:2]
	}
	return strings.Join(f, "-")
}

func (g *generator) customers(count int) []domain.Customer {
	out := make([]domain.Customer, count)
	for i := range out {
		name := g.company(i, customerTrades)
		city := cities[g.rng.IntN(len(cities))]
		out[i] = domain.Customer{
			ID:      ID(domain.KindCustomer, i),
			Code:    fmt.Sprintf("C%05d", i+1),
			Name:    name,
			Email:   fmt.Sprintf("orders@%s.example", slug(name)),
			Phone:   fmt.Sprintf("+49 40 %07d", g.rng.IntN(10_000_000)),
			City:    city.name,
			Country: city.country,
			Active:  g.rng.IntN(10) > 0,
		}
	}
	return out
}

func (g *generator) vendors(count int) []domain.Vendor {
	out := make([]domain.Vendor, count)
	for i := range out {
		name := g.company(i, vendorTrades)
		out[i] = domain.Vendor{
			ID:          ID(domain.KindVendor, i),
			Code:        fmt.Sprintf("V%05d", i+1),
			Name:        name,
			Email:       fmt.Sprintf("dispatch@%s.example", slug(name)),
			Phone:       fmt.Sprintf("+31 10 %07d", g.rng.IntN(10_000_000)),
			ServiceType: g.pick(serviceTypes),
			Active:      g.rng.IntN(8) > 0,
		}
	}
	return out
}

func (g *generator) locations(count int) []domain.Location {
	out := make([]domain.Location, count)
	for i := range out {
		city := cities[i%len(cities)]
		typ := g.pick(locationTypes)
		out[i] = domain.Location{
			ID:         ID(domain.KindLocation, i),
			Code:       fmt.Sprintf("L%05d", i+1),
			Name:       fmt.Sprintf("%s %s %d", city.name, strings.ToUpper(typ[:1])+typ[1:], i/len(cities)+1),
			Type:       typ,
			Address:    fmt.Sprintf("Dock %d", g.rng.IntN(400)+1),
			City:       city.name,
			PostalCode: city.postal,
			Country:    city.country,
		}
	}
	return out
}

func (g *generator) priceLists(count int) []domain.PriceList {
	out := make([]domain.PriceList, count)
	for i := range out {
		side := "customer"
		if i%2 == 1 {
			side = "vendor"
		}
		party := ID(domain.KindCustomer, i/2)
		if side == "vendor" {
			party = ID(domain.KindVendor, i/2)
		}
		unit := g.pick(units)
		// Cents, so rates stay exact.
		rate := decimal.New(int64(g.rng.IntN(250_000)+500), -2)
		out[i] = domain.PriceList{
			ID:       ID(domain.KindPriceList, i),
			Code:     fmt.Sprintf("P%05d", i+1),
			Name:     fmt.Sprintf("%s %s rates %d", strings.ToUpper(side[:1])+side[1:], unit, 2024+i%3),
			Side:     side,
			PartyID:  party,
			Currency: g.pick(currencies),
			BaseRate: rate,
			Unit:     unit,
		}
	}
	return out
}
