// Package datagen produces object payloads that can be regenerated from a seed,
// so only the seed, size and checksum of an object need to be remembered.
package datagen

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"math/rand"
)

// NewReader returns a reader of size bytes determined by seed.
func NewReader(seed int64, size int64) io.Reader {
	return io.LimitReader(rand.New(rand.NewSource(seed)), size)
}

// Bytes returns the payload for seed and size.
func Bytes(seed int64, size int64) []byte {
	buf := make([]byte, size)
	// rand.Rand.Read never fails
	_, _ = io.ReadFull(NewReader(seed, size), buf)
	return buf
}

// Checksum returns the md5 hex digest of everything read from r, which is the
// ETag S3 reports for single part uploads.
func Checksum(r io.Reader) (string, int64, error) {
	h := md5.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// SeedChecksum returns the checksum of the payload generated for seed and size.
func SeedChecksum(seed int64, size int64) string {
	sum, _, _ := Checksum(NewReader(seed, size))
	return sum
}
