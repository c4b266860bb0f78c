// Package domain holds the logistics master-data records served by the
// back-office API.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind identifies a master-data collection.
type Kind string

const (
	KindCustomer  Kind = "customer"
	KindVendor    Kind = "vendor"
	KindLocation  Kind = "location"
	KindPriceList Kind = "pricelist"
)

// Kinds lists every supported collection in display order.
func Kinds() []Kind {
	return []Kind{KindCustomer, KindVendor, KindLocation, KindPriceList}
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Customer is a party goods are shipped for.
type Customer struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Active  bool   `json:"active"`
}

// Vendor is a carrier or service provider.
type Vendor struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ServiceType string `json:"serviceType,omitempty"` // trucking, warehousing, customs, ...
	Active      bool   `json:"active"`
}

// Location is a pickup, delivery or storage site.
type Location struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"` // warehouse, port, terminal, site
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// PriceList is a customer or vendor rate card. Pricing rules are owned by
// the backend; only the headline rate is carried here for display.
type PriceList struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Side     string          `json:"side"` // customer or vendor
	PartyID  string          `json:"partyId,omitempty"`
	Currency string          `json:"currency"`
	BaseRate decimal.Decimal `json:"baseRate"`
	Unit     string          `json:"unit,omitempty"` // pallet, kg, trip, ...
}

// RateLabel renders the headline rate, e.g. "12.50 EUR/pallet".
func (p PriceList) RateLabel() string {
	s := p.BaseRate.StringFixed(2)
	if p.Currency != "" {
		s += " " + p.Currency
	}
	if p.Unit != "" {
		s += "/" + p.Unit
	}
	return s
}
