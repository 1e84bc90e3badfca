package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verify reads the audit log and checks the hash chain integrity. It
// returns the number of entries checked, and an error describing the first
// violation if the chain is broken.
func Verify(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read audit log: %w", err)
	}

	lines := splitLines(data)

	expectedPrev := genesisHash()
	var prevSeq uint64

	for i, line := range lines {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return i, fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}

		// Check sequence.
		if entry.Seq != prevSeq+1 {
			return i, fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, prevSeq+1, entry.Seq)
		}

		// Check prev_hash chain.
		if entry.PrevHash != expectedPrev {
			return i, fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", i+1, short(expectedPrev), short(entry.PrevHash))
		}

		// Recompute and check hash.
		computed := computeHash(entry)
		if entry.Hash != computed {
			return i, fmt.Errorf("line %d: hash mismatch: expected %s, got %s", i+1, short(computed), short(entry.Hash))
		}

		expectedPrev = entry.Hash
		prevSeq = entry.Seq
	}

	return len(lines), nil
}

func short(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

// Tail returns the last n entries from the audit log. n <= 0 returns all of
// them.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	lines := splitLines(data)
	if n <= 0 || n > len(lines) {
		n = len(lines)
	}

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
