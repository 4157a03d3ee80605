/*
Package stats computes read-only aggregate statistics over the full client
record set.

PURPOSE:
  Population counts per customer type, average balances per account type,
  transaction count/amount averages per transaction type, total spend per
  merchant category group, and digital channel adoption percentages. All
  operations are pure columnar aggregations: no side effects, tolerant of an
  empty record set, results rounded to 2 decimal places for presentation
  stability.

SCHEMA DISCOVERY:
  The clients table is wide and schema-driven: the set of tracked balance,
  transaction and category columns varies across deployments. Instead of
  pattern-matching column names inside every query, the physical schema is
  discovered once at construction into an explicit Schema descriptor and
  validated against the actual table. A missing clients table fails fast;
  missing optional metric columns merely produce empty results.

SEE ALSO:
  - stats.go: The aggregation operations
  - store/sqlite: The Source implementation
*/
package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/vantage/client-engine/segments"
)

// Column naming conventions of the clients schema. A column counts toward a
// metric iff its name carries the convention's markers.
const (
	avgBalanceSuffix = "_AVG_BALANCE_AMT"
	trxPrefix        = "TRX_"
	countSuffix      = "_CNT"
	amountSuffix     = "_AMT"
	mccPrefix        = "MCC_"
	flagSuffix       = "_FLAG"

	segmentColumn    = "GPI_CUSTOMER_TYPE_DESC"
	loginCountColumn = "CHNL_IB_LOGINS_CNT"
)

// digitalChannelFlags are the named digital-service flag columns tracked for
// engagement reporting.
var digitalChannelFlags = []string{
	"PTS_IB_FLAG",
	"APPLE_PAY_FLAG",
	"GEORGE_PAY_FLAG",
	"GOOGLE_PAY_FLAG",
	"WALLET_FLAG",
	"GEORGE_INFO_FLAG",
}

// Schema maps logical metrics to the physical columns backing them. Empty
// slices and empty strings mean the deployment simply does not track that
// metric.
type Schema struct {
	SegmentColumn     string
	AvgBalanceColumns []string
	TrxCountColumns   []string
	TrxAmountColumns  []string
	MCCAmountColumns  []string
	DigitalFlags      []string
	LoginCountColumn  string
}

// DiscoverSchema derives a Schema from the clients table's column list.
func DiscoverSchema(columns []string) Schema {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var s Schema
	for _, c := range columns {
		switch {
		case strings.HasSuffix(c, avgBalanceSuffix):
			s.AvgBalanceColumns = append(s.AvgBalanceColumns, c)
		case strings.HasPrefix(c, trxPrefix) && strings.HasSuffix(c, countSuffix):
			s.TrxCountColumns = append(s.TrxCountColumns, c)
		case strings.HasPrefix(c, trxPrefix) && strings.HasSuffix(c, amountSuffix):
			s.TrxAmountColumns = append(s.TrxAmountColumns, c)
		case strings.HasPrefix(c, mccPrefix) && strings.HasSuffix(c, amountSuffix):
			s.MCCAmountColumns = append(s.MCCAmountColumns, c)
		}
	}

	if present[segmentColumn] {
		s.SegmentColumn = segmentColumn
	}
	if present[loginCountColumn] {
		s.LoginCountColumn = loginCountColumn
	}
	for _, flag := range digitalChannelFlags {
		if present[flag] {
			s.DigitalFlags = append(s.DigitalFlags, flag)
		}
	}

	return s
}

// Source is the columnar read interface the aggregations run against. Column
// arguments always come from a discovered Schema, never from caller input.
type Source interface {
	// ClientColumns lists the clients table's columns, erroring if the table
	// itself is missing.
	ClientColumns(ctx context.Context) ([]string, error)
	CountClients(ctx context.Context) (int64, error)
	GroupCount(ctx context.Context, column string) (map[string]int64, error)
	Avg(ctx context.Context, column string) (float64, error)
	Sum(ctx context.Context, column string) (float64, error)
}

// New discovers the schema and returns a ready Service. The clients table
// must exist: an unreachable store or empty column list is fatal here rather
// than a per-request surprise later.
func New(ctx context.Context, src Source) (*Service, error) {
	columns, err := src.ClientColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover clients schema: %w", err)
	}
	if len(columns) == 0 {
		return nil, &segments.SchemaError{Table: "clients", Detail: "table missing or has no columns"}
	}

	return &Service{src: src, schema: DiscoverSchema(columns)}, nil
}
