package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Digest is the SHA-256 of a source, library or code image. Cache entries and the debugger
// registry key on it.
type Digest [sha256.Size]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short returns the first six bytes in hex, enough to tell entries apart in logs.
func (d Digest) Short() string { return hex.EncodeToString(d[:6]) }

// IsZero reports whether d was never set.
func (d Digest) IsZero() bool { return d == Digest{} }

// ParseDigest decodes a 64 character hex digest. Surrounding space is ignored.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return d, fmt.Errorf("digest %q: %w", s, err)
	}
	if len(raw) != len(d) {
		return d, fmt.Errorf("digest %q: %d bytes, want %d", s, len(raw), len(d))
	}
	copy(d[:], raw)
	return d, nil
}

// DigestBytes hashes an in-memory buffer.
func DigestBytes(b []byte) Digest { return sha256.Sum256(b) }

// DigestReader streams r through SHA-256.
func DigestReader(r io.Reader) (Digest, error) {
	var d Digest
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return d, err
	}
	h.Sum(d[:0])
	return d, nil
}

// DigestFile hashes the content of the file at path.
func DigestFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()

	d, err := DigestReader(f)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return d, nil
}
