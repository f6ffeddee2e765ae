package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChecksumHex returns the hex SHA-256 of data.
func ChecksumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksumHex returns ErrChecksumMismatch unless data hashes to stored.
func ValidateChecksumHex(data []byte, stored string) error {
	if ChecksumHex(data) != stored {
		return fmt.Errorf("%w: want %.12s", ErrChecksumMismatch, stored)
	}
	return nil
}

// FileChecksum streams the file at path through SHA-256.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
