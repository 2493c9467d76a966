package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) < 12 {
		return string(h)
	}
	return string(h[:12])
}

// BatchFingerprint identifies a specimen batch by its ordered attributes.
type BatchFingerprint Hash

func (h BatchFingerprint) String() string { return Hash(h).String() }
func (h BatchFingerprint) Short() string  { return Hash(h).Short() }

// ComputeBatchFingerprint hashes the ordered rows of a batch. Order matters: the
// engine reports specimens in input order.
func ComputeBatchFingerprint(rows [][]string) BatchFingerprint {
	var data strings.Builder
	for i, row := range rows {
		data.WriteString(fmt.Sprintf("%d:", i))
		data.WriteString(strings.Join(row, "\x1f"))
		data.WriteString("\n")
	}
	return BatchFingerprint(NewHash([]byte(data.String())))
}

// SeedFor derives a 64-bit stream seed from a base seed and a stream name.
func SeedFor(baseSeed int64, name string) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(baseSeed))
	sum := sha256.Sum256(append(buf[:], name...))
	return binary.LittleEndian.Uint64(sum[:8])
}
