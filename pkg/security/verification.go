package security

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// codeBytes is the number of hash bytes kept in a verification code.
const codeBytes = 10

// CodeSigner derives short verification codes for issued certificates with a
// keyed BLAKE2b hash, so codes cannot be forged without the secret.
type CodeSigner struct {
	key []byte
}

// NewCodeSigner creates a signer. Secrets longer than a BLAKE2b key are hashed down.
func NewCodeSigner(secret string) (*CodeSigner, error) {
	if secret == "" {
		return nil, errors.New("verification secret is required")
	}
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &CodeSigner{key: key}, nil
}

// Code returns a code such as "3F2A-91C0-77DE-0B14-5A6E" for the given fields.
func (s *CodeSigner) Code(fields ...string) string {
	h, err := blake2b.New256(s.key)
	if err != nil {
		// key length is checked in NewCodeSigner
		panic(err)
	}
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}

	raw := strings.ToUpper(hex.EncodeToString(h.Sum(nil)[:codeBytes]))
	groups := make([]string, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		groups = append(groups, raw[i:i+4])
	}
	return strings.Join(groups, "-")
}

// Verify reports whether code matches the fields. Case and dashes are ignored.
func (s *CodeSigner) Verify(code string, fields ...string) bool {
	want := normalize(s.Code(fields...))
	got := normalize(code)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func normalize(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}
