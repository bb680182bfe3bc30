package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|instrument|direction|entry_time)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	runID string,
	instrument string,
	direction string,
	entryTime int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		runID,
		instrument,
		direction,
		entryTime,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic run_id for one backtest pass.
// Formula: SHA256(instrument|entry_mode|exit_mode|from|to)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	instrument string,
	entryMode string,
	exitMode string,
	from int64,
	to int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		instrument,
		entryMode,
		exitMode,
		from,
		to,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
