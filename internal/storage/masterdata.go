package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/runger/logistix/internal/domain"
)

// collection describes how one master-data table is listed.
type collection struct {
	table   string
	columns string   // Selected columns, in scan order
	search  []string // Columns matched by Query.Search
}

var (
	customersTable = collection{
		table:   "customers",
		columns: "id, code, name, email, phone, city, country, active",
		search:  []string{"name", "code", "email", "city"},
	}
	vendorsTable = collection{
		table:   "vendors",
		columns: "id, code, name, email, phone, service_type, active",
		search:  []string{"name", "code", "service_type"},
	}
	locationsTable = collection{
		table:   "locations",
		columns: "id, code, name, type, address, city, postal_code, country",
		search:  []string{"name", "code", "city", "postal_code"},
	}
	priceListsTable = collection{
		table:   "price_lists",
		columns: "id, code, name, side, party_id, currency, base_rate, unit",
		search:  []string{"name", "code"},
	}
)

func tableFor(kind domain.Kind) (collection, error) {
	switch kind {
	case domain.KindCustomer:
		return customersTable, nil
	case domain.KindVendor:
		return vendorsTable, nil
	case domain.KindLocation:
		return locationsTable, nil
	case domain.KindPriceList:
		return priceListsTable, nil
	}
	return collection{}, fmt.Errorf("storage: unknown kind %q", kind)
}

// ListCustomers returns one page of customers and the total match count.
func (s *SQLiteStore) ListCustomers(ctx context.Context, q Query) ([]domain.Customer, int, error) {
	var out []domain.Customer
	total, err := s.list(ctx, customersTable, q, func(rows *sql.Rows) error {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.City, &c.Country, &c.Active); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, total, err
}

// ListVendors returns one page of vendors and the total match count.
func (s *SQLiteStore) ListVendors(ctx context.Context, q Query) ([]domain.Vendor, int, error) {
	var out []domain.Vendor
	total, err := s.list(ctx, vendorsTable, q, func(rows *sql.Rows) error {
		var v domain.Vendor
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.Email, &v.Phone, &v.ServiceType, &v.Active); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, total, err
}

// ListLocations returns one page of locations and the total match count.
func (s *SQLiteStore) ListLocations(ctx context.Context, q Query) ([]domain.Location, int, error) {
	var out []domain.Location
	total, err := s.list(ctx, locationsTable, q, func(rows *sql.Rows) error {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Type, &l.Address, &l.City, &l.PostalCode, &l.Country); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	return out, total, err
}

// ListPriceLists returns one page of price lists and the total match count.
func (s *SQLiteStore) ListPriceLists(ctx context.Context, q Query) ([]domain.PriceList, int, error) {
	var out []domain.PriceList
	total, err := s.list(ctx, priceListsTable, q, func(rows *sql.Rows) error {
		var p domain.PriceList
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Side, &p.PartyID, &p.Currency, &p.BaseRate, &p.Unit); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, total, err
}

// list counts the rows matching q and scans the requested page, ordered by
// name then id so page boundaries are stable.
func (s *SQLiteStore) list(ctx context.Context, c collection, q Query, scan func(*sql.Rows) error) (int, error) {
	q = q.Normalize()

	where, args := searchClause(c.search, q.Search)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.table, err)
	}

	query := "SELECT " + c.columns + " FROM " + c.table + where + " ORDER BY name COLLATE NOCASE, id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", c.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, fmt.Errorf("scan %s: %w", c.table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate %s: %w", c.table, err)
	}
	return total, nil
}

// searchClause builds a WHERE clause matching term as a substring of any of
// columns. An empty term matches everything.
func searchClause(columns []string, term string) (string, []any) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return "", nil
	}
	pattern := "%" + escapeLike(term) + "%"
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		conds[i] = col + ` LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return " WHERE (" + strings.Join(conds, " OR ") + ")", args
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// InsertCustomers inserts customers, skipping rows whose id already exists.
func (s *SQLiteStore) InsertCustomers(ctx context.Context, rows []domain.Customer) error {
	return s.insert(ctx, `INSERT OR IGNORE INTO customers (id, code, name, email, phone, city, country, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, len(rows), func(stmt *sql.Stmt, i int) error {
		c := rows[i]
		_, err := stmt.ExecContext(ctx, c.ID, c.Code, c.Name, c.Email, c.Phone, c.City, c.Country, c.Active)
		return err
	})
}

// InsertVendors inserts vendors, skipping rows whose id already exists.
func (s *SQLiteStore) InsertVendors(ctx context.Context, rows []domain.Vendor) error {
	return s.insert(ctx, `INSERT OR IGNORE INTO vendors (id, code, name, email, phone, service_type, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, len(rows), func(stmt *sql.Stmt, i int) error {
		v := rows[i]
		_, err := stmt.ExecContext(ctx, v.ID, v.Code, v.Name, v.Email, v.Phone, v.ServiceType, v.Active)
		return err
	})
}

// InsertLocations inserts locations, skipping rows whose id already exists.
func (s *SQLiteStore) InsertLocations(ctx context.Context, rows []domain.Location) error {
	return s.insert(ctx, `INSERT OR IGNORE INTO locations (id, code, name, type, address, city, postal_code, country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, len(rows), func(stmt *sql.Stmt, i int) error {
		l := rows[i]
		_, err := stmt.ExecContext(ctx, l.ID, l.Code, l.Name, l.Type, l.Address, l.City, l.PostalCode, l.Country)
		return err
	})
}

// InsertPriceLists inserts price lists, skipping rows whose id already
// exists. Rates are stored as exact decimal strings.
func (s *SQLiteStore) InsertPriceLists(ctx context.Context, rows []domain.PriceList) error {
	return s.insert(ctx, `INSERT OR IGNORE INTO price_lists (id, code, name, side, party_id, currency, base_rate, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, len(rows), func(stmt *sql.Stmt, i int) error {
		p := rows[i]
		_, err := stmt.ExecContext(ctx, p.ID, p.Code, p.Name, p.Side, p.PartyID, p.Currency, p.BaseRate.String(), p.Unit)
		return err
	})
}

// insert runs n executions of query in one transaction.
func (s *SQLiteStore) insert(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Count returns the number of rows of kind.
func (s *SQLiteStore) Count(ctx context.Context, kind domain.Kind) (int, error) {
	c, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.table, err)
	}
	return n, nil
}
