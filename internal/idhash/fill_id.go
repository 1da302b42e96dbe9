package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"backtest-lab/internal/domain"
)

// ComputeFillID computes a deterministic fill_id using SHA256.
// Formula: SHA256(order_id|seq)
// Returns hex-encoded hash (64 characters).
func ComputeFillID(orderID string, seq int) string {
	data := fmt.Sprintf("%s|%d", orderID, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeFillsDigest hashes a fill sequence bit-exactly.
// Two runs produce the same digest only if every fill field matches to the bit.
func ComputeFillsDigest(fills []domain.SimulatedFill) string {
	h := sha256.New()
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	for _, f := range fills {
		writeString(f.FillID)
		writeString(f.OrderID)
		writeString(f.Symbol)
		writeString(f.Side)
		writeString(f.Liquidity)
		writeFloat(f.Quantity)
		writeFloat(f.Price)
		writeFloat(f.Commission)
		writeFloat(f.Slippage)
		writeInt(f.TimestampNs)
	}
	return hex.EncodeToString(h.Sum(nil))
}
