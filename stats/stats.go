package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Service exposes the aggregate statistics operations. Construct with New so
// the schema descriptor is validated up front.
type Service struct {
	src    Source
	schema Schema
}

// Schema returns the discovered schema descriptor.
func (s *Service) Schema() Schema {
	return s.schema
}

// TransactionStats groups per-transaction-type averages by metric kind.
type TransactionStats struct {
	Counts  map[string]float64 `json:"counts"`
	Amounts map[string]float64 `json:"amounts"`
}

// =============================================================================
// AGGREGATIONS
// =============================================================================

// SegmentCounts returns the client population per customer-type description.
func (s *Service) SegmentCounts(ctx context.Context) (map[string]int64, error) {
	if s.schema.SegmentColumn == "" {
		return map[string]int64{}, nil
	}
	counts, err := s.src.GroupCount(ctx, s.schema.SegmentColumn)
	if err != nil {
		return nil, fmt.Errorf("segment counts: %w", err)
	}
	return counts, nil
}

// AverageBalances returns the mean of every average-balance column, keyed by
// account type (the column name with the convention suffix stripped).
func (s *Service) AverageBalances(ctx context.Context) (map[string]float64, error) {
	result := make(map[string]float64, len(s.schema.AvgBalanceColumns))
	for _, col := range s.schema.AvgBalanceColumns {
		avg, err := s.src.Avg(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("average balance %s: %w", col, err)
		}
		result[strings.TrimSuffix(col, avgBalanceSuffix)] = round2(avg)
	}
	return result, nil
}

// TransactionStatistics returns per-transaction-type average counts and
// amounts, keyed by transaction type.
func (s *Service) TransactionStatistics(ctx context.Context) (TransactionStats, error) {
	result := TransactionStats{
		Counts:  make(map[string]float64, len(s.schema.TrxCountColumns)),
		Amounts: make(map[string]float64, len(s.schema.TrxAmountColumns)),
	}

	for _, col := range s.schema.TrxCountColumns {
		avg, err := s.src.Avg(ctx, col)
		if err != nil {
			return TransactionStats{}, fmt.Errorf("transaction counts %s: %w", col, err)
		}
		key := strings.TrimSuffix(strings.TrimPrefix(col, trxPrefix), countSuffix)
		result.Counts[key] = round2(avg)
	}

	for _, col := range s.schema.TrxAmountColumns {
		avg, err := s.src.Avg(ctx, col)
		if err != nil {
			return TransactionStats{}, fmt.Errorf("transaction amounts %s: %w", col, err)
		}
		key := strings.TrimSuffix(strings.TrimPrefix(col, trxPrefix), amountSuffix)
		result.Amounts[key] = round2(avg)
	}

	return result, nil
}

// SpendingByCategory returns total spend per merchant-category-code group.
func (s *Service) SpendingByCategory(ctx context.Context) (map[string]float64, error) {
	result := make(map[string]float64, len(s.schema.MCCAmountColumns))
	for _, col := range s.schema.MCCAmountColumns {
		sum, err := s.src.Sum(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("spending %s: %w", col, err)
		}
		key := strings.TrimSuffix(strings.TrimPrefix(col, mccPrefix), amountSuffix)
		result[key] = round2(sum)
	}
	return result, nil
}

// DigitalEngagement returns the adoption percentage per digital channel flag
// plus the mean internet-banking login count. With zero clients there is
// nothing to report and the result is empty rather than a division by zero.
func (s *Service) DigitalEngagement(ctx context.Context) (map[string]float64, error) {
	total, err := s.src.CountClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("digital engagement: %w", err)
	}
	if total == 0 {
		return map[string]float64{}, nil
	}

	result := make(map[string]float64, len(s.schema.DigitalFlags)+1)
	for _, flag := range s.schema.DigitalFlags {
		adopted, err := s.src.Sum(ctx, flag)
		if err != nil {
			return nil, fmt.Errorf("digital engagement %s: %w", flag, err)
		}
		result[strings.TrimSuffix(flag, flagSuffix)] = round2(adopted / float64(total) * 100)
	}

	if s.schema.LoginCountColumn != "" {
		avg, err := s.src.Avg(ctx, s.schema.LoginCountColumn)
		if err != nil {
			return nil, fmt.Errorf("digital engagement logins: %w", err)
		}
		result["AVG_IB_LOGINS"] = round2(avg)
	}

	return result, nil
}

// round2 rounds to exactly 2 decimal places. Going through decimal avoids
// the drift of repeated float math on monetary values.
func round2(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return out
}
