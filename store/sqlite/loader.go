/*
loader.go - One-time CSV batch load into the record store

PURPOSE:
  Populates the clients table and the two catalog tables from flat files.
  This is the offline load step; the engine itself never writes.

CLIENTS:
  The clients CSV header defines the table schema. Column types are inferred
  from the data (INTEGER, REAL, or TEXT); empty cells become NULL. The table
  is dropped and recreated on every load.

CATALOG:
  The catalog CSV holds products and offers together, partitioned by the ID
  prefix: "P" rows become products, "O" rows become offers. The partitioning
  is purely a load-time detail; the engine treats the two tables as distinct
  catalogs of the same shape.
*/
package sqlite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Expected catalog CSV column order, LINK optional.
const (
	catalogMinColumns = 6 // ID, SEG_ID, CLUS_ID, PROD, ELIG, DESCR
	catalogLinkColumn = 6
)

// LoadClients replaces the clients table with the contents of the CSV.
// Returns the number of rows loaded.
func (s *Store) LoadClients(ctx context.Context, r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read clients header: %w", err)
	}
	if len(header) == 0 || !containsColumn(header, "ID") {
		return 0, fmt.Errorf("clients CSV must carry an ID column")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read clients rows: %w", err)
	}

	types := inferColumnTypes(header, records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clients load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS clients"); err != nil {
		return 0, err
	}

	defs := make([]string, len(header))
	for i, col := range header {
		defs[i] = quoteIdent(col) + " " + types[i]
	}
	create := fmt.Sprintf("CREATE TABLE clients (%s)", strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create clients table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	insert := fmt.Sprintf("INSERT INTO clients VALUES (%s)", placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range records {
		args := make([]any, len(header))
		for i := range header {
			if i >= len(rec) || rec[i] == "" {
				args[i] = nil
				continue
			}
			args[i] = convertValue(rec[i], types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert client row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// LoadCatalog replaces the products and offers tables with the contents of
// the combined catalog CSV. Returns the per-table row counts.
func (s *Store) LoadCatalog(ctx context.Context, r io.Reader) (products, offers int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // LINK column present on offer rows only in some exports

	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read catalog header: %w", err)
	}
	if len(header) < catalogMinColumns {
		return 0, 0, fmt.Errorf("catalog CSV needs at least %d columns, got %d", catalogMinColumns, len(header))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin catalog load: %w", err)
	}
	defer tx.Rollback()

	recreate := []string{
		"DROP TABLE IF EXISTS products",
		`CREATE TABLE products (
			ID TEXT, SEG_ID INTEGER, CLUS_ID INTEGER, PROD TEXT, ELIG TEXT, DESCR TEXT
		)`,
		"CREATE INDEX idx_products_seg_clus ON products(SEG_ID, CLUS_ID)",
		"DROP TABLE IF EXISTS offers",
		`CREATE TABLE offers (
			ID TEXT, SEG_ID INTEGER, CLUS_ID INTEGER, PROD TEXT, ELIG TEXT, DESCR TEXT, LINK TEXT
		)`,
		"CREATE INDEX idx_offers_seg_clus ON offers(SEG_ID, CLUS_ID)",
	}
	for _, q := range recreate {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return 0, 0, err
		}
	}

	insertProduct, err := tx.PrepareContext(ctx,
		"INSERT INTO products VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, 0, err
	}
	defer insertProduct.Close()

	insertOffer, err := tx.PrepareContext(ctx,
		"INSERT INTO offers VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, 0, err
	}
	defer insertOffer.Close()

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("read catalog row: %w", err)
		}
		if len(rec) < catalogMinColumns {
			return 0, 0, fmt.Errorf("catalog row for %q has %d columns", field(rec, 0), len(rec))
		}

		segID, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("catalog row %q: bad SEG_ID %q", rec[0], rec[1])
		}
		clusID, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return 0, 0, fmt.Errorf("catalog row %q: bad CLUS_ID %q", rec[0], rec[2])
		}

		switch {
		case strings.HasPrefix(rec[0], "P"):
			if _, err := insertProduct.ExecContext(ctx,
				rec[0], segID, clusID, rec[3], rec[4], rec[5]); err != nil {
				return 0, 0, fmt.Errorf("insert product %q: %w", rec[0], err)
			}
			products++
		case strings.HasPrefix(rec[0], "O"):
			if _, err := insertOffer.ExecContext(ctx,
				rec[0], segID, clusID, rec[3], rec[4], rec[5], field(rec, catalogLinkColumn)); err != nil {
				return 0, 0, fmt.Errorf("insert offer %q: %w", rec[0], err)
			}
			offers++
		default:
			// Not a product or offer id; skipped, matching the source load.
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return products, offers, nil
}

// =============================================================================
// TYPE INFERENCE
// =============================================================================

// inferColumnTypes picks INTEGER, REAL, or TEXT per column from the data.
// The ID column is always TEXT: ids like "0042" must keep their zeros.
func inferColumnTypes(header []string, records [][]string) []string {
	types := make([]string, len(header))
	for i, col := range header {
		if col == "ID" {
			types[i] = "TEXT"
			continue
		}
		types[i] = inferType(records, i)
	}
	return types
}

func inferType(records [][]string, col int) string {
	sawValue := false
	isInt, isReal := true, true

	for _, rec := range records {
		if col >= len(rec) || rec[col] == "" {
			continue
		}
		sawValue = true
		v := strings.TrimSpace(rec[col])
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isReal = false
		}
		if !isInt && !isReal {
			break
		}
	}

	switch {
	case !sawValue:
		return "TEXT"
	case isInt:
		return "INTEGER"
	case isReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func convertValue(raw, colType string) any {
	v := strings.TrimSpace(raw)
	switch colType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return raw
}

func containsColumn(header []string, name string) bool {
	for _, c := range header {
		if c == name {
			return true
		}
	}
	return false
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
