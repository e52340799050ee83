package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"lectern/internal/textnorm"
)

// BookID derives a stable short identifier from normalized title and author,
// so re-analyzing the same book always resolves to the same entry regardless
// of file name or location.
func BookID(title, author string) string {
	key := textnorm.Key(title) + "|" + textnorm.Key(author)
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])[:12]
}
