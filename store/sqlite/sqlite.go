/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements all persistence interfaces (segments.ProfileStore,
  segments.Catalog, clients.Store, stats.Source) over a single SQLite
  database. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

KEY TABLES:
  clients:   One row per client; wide, deployment-specific schema created by
             the batch loader (see loader.go). ID is the only guaranteed
             column.
  products:  Catalog entries scoped to one (SEG_ID, CLUS_ID) pair
  offers:    Same shape plus a LINK column

INDEXES:
  idx_products_seg_clus / idx_offers_seg_clus back the per-dimension match
  lookups (hot path): one indexed probe per segment dimension instead of a
  six-way OR scan.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The data is read-only after load, so
  readers dominate; WAL mode keeps them from blocking each other.

USAGE:
  store, err := sqlite.New("./data/clients.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - loader.go: CSV batch load
  - segments/types.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vantage/client-engine/clients"
	"github.com/vantage/client-engine/segments"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewWithDB wraps an existing database handle. The caller keeps ownership of
// the handle's lifecycle. Used by tests that drive the handle directly.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the catalog tables. The clients table is created by the
// batch loader because its schema is deployment-specific.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		ID TEXT,
		SEG_ID INTEGER,
		CLUS_ID INTEGER,
		PROD TEXT,
		ELIG TEXT,
		DESCR TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_products_seg_clus
		ON products(SEG_ID, CLUS_ID);

	CREATE TABLE IF NOT EXISTS offers (
		ID TEXT,
		SEG_ID INTEGER,
		CLUS_ID INTEGER,
		PROD TEXT,
		ELIG TEXT,
		DESCR TEXT,
		LINK TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_offers_seg_clus
		ON offers(SEG_ID, CLUS_ID);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENT STORE (clients.Store interface)
// =============================================================================

// Exists checks membership without materializing the record.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM clients WHERE ID = ? LIMIT 1", id,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err)
	}
	return true, nil
}

// Get returns the full client row as a column-keyed map, or (nil, nil) when
// no record exists. The column set is whatever the loader created.
func (s *Store) Get(ctx context.Context, id string) (clients.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM clients WHERE ID = ?", id)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return record, rows.Err()
}

// Search returns every client matching all the given exact-match filters.
// Filter keys must name existing columns; anything else is rejected before
// it can reach the query text.
func (s *Store) Search(ctx context.Context, filters map[string]string) ([]clients.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	known, err := s.clientColumnSet(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM clients WHERE 1=1"
	var args []any
	for key, value := range filters {
		if !known[key] {
			return nil, fmt.Errorf("%w: %q", segments.ErrUnknownColumn, key)
		}
		query += fmt.Sprintf(" AND %s = ?", quoteIdent(key))
		args = append(args, value)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var records []clients.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// SampleIDs returns up to n client ids, in storage order.
func (s *Store) SampleIDs(ctx context.Context, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT ID FROM clients LIMIT ?", n)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanRecord scans the current row into a column-keyed map.
func scanRecord(rows *sql.Rows) (clients.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan client row: %w", err)
	}

	record := make(clients.Record, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			record[col] = string(b)
			continue
		}
		record[col] = values[i]
	}
	return record, nil
}

// =============================================================================
// PROFILE STORE (segments.ProfileStore interface)
// =============================================================================

// Profile reads the client's age and all six segment values in one query.
// Null columns are simply absent from the profile: a null segment can never
// equal a catalog cluster id.
func (s *Store) Profile(ctx context.Context, clientID string) (*segments.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT GPI_AGE, DEM_SEG, FIN_SEG, TRANS_SEG, PROD_SEG, DIG_SEG, REL_SEG
		FROM clients
		WHERE ID = ?
		LIMIT 1
	`

	var age sql.NullInt64
	segs := make([]sql.NullInt64, len(segments.Dimensions))

	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&age, &segs[0], &segs[1], &segs[2], &segs[3], &segs[4], &segs[5],
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}

	profile := &segments.Profile{
		ClientID: clientID,
		Values:   make(map[segments.Dimension]int, len(segs)),
	}
	if age.Valid {
		a := int(age.Int64)
		profile.Age = &a
	}
	for i, dim := range segments.Dimensions {
		if segs[i].Valid {
			profile.Values[dim] = int(segs[i].Int64)
		}
	}
	return profile, nil
}

// =============================================================================
// CATALOG (segments.Catalog interface)
// =============================================================================

// Entries performs one indexed lookup against the requested catalog table.
func (s *Store) Entries(ctx context.Context, kind segments.CatalogKind, dim segments.Dimension, cluster int) ([]segments.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	switch kind {
	case segments.Products:
		query = `
			SELECT ID, SEG_ID, CLUS_ID, PROD, ELIG, DESCR
			FROM products
			WHERE SEG_ID = ? AND CLUS_ID = ?
		`
	case segments.Offers:
		query = `
			SELECT ID, SEG_ID, CLUS_ID, PROD, ELIG, DESCR, LINK
			FROM offers
			WHERE SEG_ID = ? AND CLUS_ID = ?
		`
	default:
		return nil, fmt.Errorf("unknown catalog kind %q", kind)
	}

	rows, err := s.db.QueryContext(ctx, query, int(dim), cluster)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var entries []segments.Entry
	for rows.Next() {
		var (
			e                 segments.Entry
			segID             int
			prod, elig, descr sql.NullString
			link              sql.NullString
		)

		if kind == segments.Offers {
			err = rows.Scan(&e.ID, &segID, &e.ClusID, &prod, &elig, &descr, &link)
		} else {
			err = rows.Scan(&e.ID, &segID, &e.ClusID, &prod, &elig, &descr)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}

		e.SegID = segments.Dimension(segID)
		e.Prod = prod.String
		e.Elig = segments.EligibilityCode(elig.String)
		e.Descr = descr.String
		e.Link = link.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// STATS SOURCE (stats.Source interface)
// =============================================================================

// ClientColumns lists the clients table's columns. A missing table yields an
// empty list; stats.New treats that as fatal.
func (s *Store) ClientColumns(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.clientColumnList(ctx)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// CountClients returns the total number of client rows.
func (s *Store) CountClients(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count); err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// GroupCount returns row counts grouped by the given column. Rows with a
// null group value are skipped.
func (s *Store) GroupCount(ctx context.Context, column string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := quoteIdent(column)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM clients GROUP BY %s", col, col)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var group sql.NullString
		var count int64
		if err := rows.Scan(&group, &count); err != nil {
			return nil, err
		}
		if group.Valid {
			result[group.String] = count
		}
	}
	return result, rows.Err()
}

// Avg returns the mean of the column over all clients, 0 when there are no
// non-null values.
func (s *Store) Avg(ctx context.Context, column string) (float64, error) {
	return s.aggregate(ctx, "AVG", column)
}

// Sum returns the total of the column over all clients, 0 when there are no
// non-null values.
func (s *Store) Sum(ctx context.Context, column string) (float64, error) {
	return s.aggregate(ctx, "SUM", column)
}

func (s *Store) aggregate(ctx context.Context, fn, column string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT %s(%s) FROM clients", fn, quoteIdent(column))

	var value sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return 0, storeErr(err)
	}
	if !value.Valid {
		return 0, nil
	}
	return value.Float64, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) clientColumnList(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(clients)")
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func (s *Store) clientColumnSet(ctx context.Context) (map[string]bool, error) {
	columns, err := s.clientColumnList(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return set, nil
}

// quoteIdent quotes a SQL identifier. Identifiers only ever come from the
// discovered schema or this package's own constants, but quoting keeps odd
// column names in source data from breaking queries.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// storeErr tags database-level failures so callers can classify them as
// availability problems via errors.Is.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", segments.ErrDataUnavailable, err)
}
