package storage

import (
	"encoding/json"
	"fmt"

	"backtest-lab/internal/domain"
)

// ResultDocuments holds the nested parts of a BacktestResult encoded as
// JSON for document columns (Postgres JSONB, ClickHouse String).
type ResultDocuments struct {
	Config        []byte
	Strategy      []byte
	EquityCurve   []byte
	OpenPositions []byte
}

// EncodeResultDocuments encodes the nested parts of r.
func EncodeResultDocuments(r *domain.BacktestResult) (ResultDocuments, error) {
	var docs ResultDocuments
	var err error

	if docs.Config, err = json.Marshal(r.Config); err != nil {
		return docs, fmt.Errorf("encode config: %w", err)
	}
	if docs.Strategy, err = json.Marshal(r.Strategy); err != nil {
		return docs, fmt.Errorf("encode strategy: %w", err)
	}
	if docs.EquityCurve, err = json.Marshal(nonNil(r.EquityCurve)); err != nil {
		return docs, fmt.Errorf("encode equity curve: %w", err)
	}
	if docs.OpenPositions, err = json.Marshal(nonNil(r.OpenPositions)); err != nil {
		return docs, fmt.Errorf("encode open positions: %w", err)
	}
	return docs, nil
}

// Decode fills the nested parts of r.
func (d ResultDocuments) Decode(r *domain.BacktestResult) error {
	if err := json.Unmarshal(d.Config, &r.Config); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal(d.Strategy, &r.Strategy); err != nil {
		return fmt.Errorf("decode strategy: %w", err)
	}
	if err := json.Unmarshal(d.EquityCurve, &r.EquityCurve); err != nil {
		return fmt.Errorf("decode equity curve: %w", err)
	}
	if err := json.Unmarshal(d.OpenPositions, &r.OpenPositions); err != nil {
		return fmt.Errorf("decode open positions: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
