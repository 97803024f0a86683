package acquire

import (
	"crypto/sha256"
	"encoding/hex"
)

func sha256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}
