package ledger

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ValidEntityID reports whether id has the shard.realm.num shape the
// network assigns to accounts, tokens and topics.
func ValidEntityID(id string) bool {
	parts := strings.Split(id, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// ValidSigningKey reports whether raw decodes to an ed25519 seed or
// expanded private key.
func ValidSigningKey(raw string) bool {
	raw = strings.TrimSpace(raw)
	b, err := hex.DecodeString(raw)
	if err != nil {
		return false
	}
	return len(b) == 32 || len(b) == 64
}

func entityID(num int64) string {
	return fmt.Sprintf("0.0.%d", num)
}
