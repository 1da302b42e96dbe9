package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|fill_id|kind)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	runID string,
	fillID string,
	kind string,
) string {
	data := fmt.Sprintf("%s|%s|%s",
		runID,
		fillID,
		kind,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeOrderID computes a deterministic order_id for an engine-assigned order.
// Formula: SHA256(strategy_id|symbol|bar_index|seq), truncated to 32 characters.
func ComputeOrderID(
	strategyID string,
	symbol string,
	barIndex int,
	seq int,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		strategyID,
		symbol,
		barIndex,
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
