package source

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// megaB64Decode decodes MEGA's URL-safe base64 variant, which drops padding.
func megaB64Decode(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(s)
}

// bytesToA32 converts bytes into big-endian 32-bit words, zero-padding the
// tail to a word boundary.
func bytesToA32(b []byte) []uint32 {
	if rem := len(b) % 4; rem != 0 {
		padded := make([]byte, len(b)+4-rem)
		copy(padded, b)
		b = padded
	}

	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return words
}

func a32ToBytes(a []uint32) []byte {
	out := make([]byte, len(a)*4)
	for i, w := range a {
		binary.BigEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func xorA32(a, b []uint32) []uint32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// deriveKeyNonce splits a node key into the AES key and the 8-byte CTR nonce.
// A 4-word key is used directly with a zero nonce; an 8-word key folds its
// halves for the key and takes words 4..5 for the nonce.
func deriveKeyNonce(k []uint32) (key, nonce []byte, err error) {
	switch {
	case len(k) >= 8:
		return a32ToBytes(xorA32(k[:4], k[4:8])), a32ToBytes(k[4:6]), nil
	case len(k) == 4:
		return a32ToBytes(k), make([]byte, 8), nil
	default:
		return nil, nil, fmt.Errorf("node key has %d words", len(k))
	}
}

// decryptAttr decrypts a node attribute blob (AES-CBC, zero IV) and returns
// the name stored under "n". The plaintext must start with the MEGA magic.
func decryptAttr(attrB64 string, key []byte) (string, error) {
	data, err := megaB64Decode(attrB64)
	if err != nil {
		return "", err
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("attribute blob length %d", len(data))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	dec := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(dec, data)

	if !bytes.HasPrefix(dec, []byte("MEGA")) {
		return "", errors.New("attribute magic missing")
	}
	dec = bytes.TrimRight(dec[4:], "\x00")

	var attrs struct {
		Name string `json:"n"`
	}
	if err := json.Unmarshal(dec, &attrs); err != nil {
		return "", fmt.Errorf("attribute json: %w", err)
	}

	return attrs.Name, nil
}

// decryptNodeKey decrypts a folder node key with the share key (AES-ECB). The
// encoded form is "<handle>:<b64>"; the raw 16- or 32-byte key is returned.
func decryptNodeKey(encoded string, shareKey []byte) ([]byte, error) {
	if i := strings.LastIndex(encoded, ":"); i >= 0 {
		encoded = encoded[i+1:]
	}

	enc, err := megaB64Decode(encoded)
	if err != nil {
		return nil, err
	}
	if len(enc) < aes.BlockSize || len(enc)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("encrypted node key length %d", len(enc))
	}

	block, err := aes.NewCipher(shareKey)
	if err != nil {
		return nil, err
	}

	dec := make([]byte, len(enc))
	for i := 0; i < len(enc); i += aes.BlockSize {
		block.Decrypt(dec[i:i+aes.BlockSize], enc[i:i+aes.BlockSize])
	}

	return dec, nil
}

// newCTRReader wraps r so reads come out decrypted with AES-CTR. The IV is
// the 8-byte nonce followed by a zero counter. CTR is symmetric, so the same
// reader encrypts plaintext.
func newCTRReader(key, nonce []byte, r io.Reader) (io.Reader, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, nonce)

	return &cipher.StreamReader{S: cipher.NewCTR(block, iv), R: r}, nil
}
