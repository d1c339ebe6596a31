package credstore

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoSigning = "hbar-desk/signing/v1"

var ErrMalformedKey = errors.New("signing key is malformed")

// NormalizeSigningKey accepts either a hex-encoded ed25519 seed or
// private key, or a BIP-39 mnemonic, and returns the hex signing key
// form the rest of the client works with.
func NormalizeSigningKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMalformedKey
	}
	if bip39.IsMnemonicValid(raw) {
		seed := bip39.NewSeed(raw, "")
		signingSeed, err := hkdfExpand(seed, hkdfInfoSigning, ed25519.SeedSize)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(signingSeed), nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil || (len(b) != ed25519.SeedSize && len(b) != ed25519.PrivateKeySize) {
		return "", ErrMalformedKey
	}
	return strings.ToLower(raw), nil
}

// Fingerprint derives a short, log-safe identifier for a signing key.
func Fingerprint(signingKey string) string {
	h := sha256.Sum256([]byte(signingKey))
	return "fp1" + base58.Encode(h[:])[:12]
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
