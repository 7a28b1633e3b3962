// Package fingerprint derives stable cache keys from request-shaped values.
//
// The digest is SHA-256 over version || 0x00 || json(v). Encoding is
// encoding/json with HTML escaping disabled, so map keys are sorted and struct
// fields follow declaration order; slices keep their order.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest is a raw fingerprint.
type Digest [sha256.Size]byte

// String returns the lowercase hex form.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Sum computes the digest of v salted with version.
func Sum(v any, version string) (Digest, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return Digest{}, fmt.Errorf("fingerprint: encode: %w", err)
	}
	payload := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	h := sha256.New()
	_, _ = h.Write([]byte(version))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(payload)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Hash is Sum rendered as hex.
func Hash(v any, version string) (string, error) {
	d, err := Sum(v, version)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
