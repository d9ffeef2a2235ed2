package confighash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Canonicalize re-encodes arbitrary JSON so that object keys are
// sorted and all insignificant whitespace is removed, producing a
// byte-stable representation regardless of how the source formatted
// or ordered its fields. This is stdlib-only: no library in the
// reference corpus does canonical-JSON normalization, and
// encoding/json's map ordering already does the sorting for free, so
// round-tripping through a generic map is simpler and just as correct
// as any third-party canonicalizer.
func Canonicalize(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// HashCanonical returns the lowercase hex SHA-256 digest of raw's
// canonical form.
func HashCanonical(raw []byte) (string, error) {
	canon, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
