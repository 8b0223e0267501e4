package source

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"io"
	"reflect"
	"testing"
)

func cbcEncrypt(t *testing.T, key, plain []byte) []byte {
	t.Helper()

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher() err = %v", err)
	}

	enc := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(enc, plain)
	return enc
}

func ecbEncrypt(t *testing.T, key, plain []byte) []byte {
	t.Helper()

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher() err = %v", err)
	}

	enc := make([]byte, len(plain))
	for i := 0; i < len(plain); i += aes.BlockSize {
		block.Encrypt(enc[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}
	return enc
}

func encryptAttr(t *testing.T, key []byte, name string) string {
	t.Helper()

	attrs, err := json.Marshal(map[string]string{"n": name})
	if err != nil {
		t.Fatalf("json.Marshal() err = %v", err)
	}

	payload := append([]byte("MEGA"), attrs...)
	padded := make([]byte, (len(payload)+aes.BlockSize-1)/aes.BlockSize*aes.BlockSize)
	copy(padded, payload)

	return base64.RawURLEncoding.EncodeToString(cbcEncrypt(t, key, padded))
}

func ctrEncrypt(t *testing.T, key, nonce, plain []byte) []byte {
	t.Helper()

	r, err := newCTRReader(key, nonce, bytes.NewReader(plain))
	if err != nil {
		t.Fatalf("newCTRReader() err = %v", err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll() err = %v", err)
	}
	return out
}

func TestMegaB64Decode(t *testing.T) {
	t.Parallel()

	raw := []byte{0xfb, 0x01, 0xef, 0x7e, 0xc2, 0xa9, 0x33, 0x80, 0x51}
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	got, err := megaB64Decode(encoded)
	if err != nil {
		t.Fatalf("megaB64Decode() err = %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("megaB64Decode() = %x, want %x", got, raw)
	}

	if _, err := megaB64Decode("not*base64"); err == nil {
		t.Fatal("megaB64Decode() expected error for bad input, got nil")
	}
}

func TestA32Conversions(t *testing.T) {
	t.Parallel()

	b := []byte{0x00, 0x01, 0x02, 0x03, 0xaa, 0xbb, 0xcc, 0xdd}
	words := bytesToA32(b)
	want := []uint32{0x00010203, 0xaabbccdd}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("bytesToA32() = %v, want %v", words, want)
	}
	if !bytes.Equal(a32ToBytes(words), b) {
		t.Fatalf("a32ToBytes() = %x, want %x", a32ToBytes(words), b)
	}

	padded := bytesToA32([]byte{0x01, 0x02})
	if !reflect.DeepEqual(padded, []uint32{0x01020000}) {
		t.Fatalf("bytesToA32() short input = %v, want [0x01020000]", padded)
	}
}

func TestDeriveKeyNonce(t *testing.T) {
	t.Parallel()

	t.Run("eight words", func(t *testing.T) {
		k := []uint32{1, 2, 3, 4, 5, 6, 7, 8}

		key, nonce, err := deriveKeyNonce(k)
		if err != nil {
			t.Fatalf("deriveKeyNonce() err = %v", err)
		}
		if wantKey := a32ToBytes([]uint32{1 ^ 5, 2 ^ 6, 3 ^ 7, 4 ^ 8}); !bytes.Equal(key, wantKey) {
			t.Fatalf("deriveKeyNonce() key = %x, want %x", key, wantKey)
		}
		if wantNonce := a32ToBytes([]uint32{5, 6}); !bytes.Equal(nonce, wantNonce) {
			t.Fatalf("deriveKeyNonce() nonce = %x, want %x", nonce, wantNonce)
		}
	})

	t.Run("four words", func(t *testing.T) {
		k := []uint32{9, 10, 11, 12}

		key, nonce, err := deriveKeyNonce(k)
		if err != nil {
			t.Fatalf("deriveKeyNonce() err = %v", err)
		}
		if !bytes.Equal(key, a32ToBytes(k)) {
			t.Fatalf("deriveKeyNonce() key = %x, want %x", key, a32ToBytes(k))
		}
		if !bytes.Equal(nonce, make([]byte, 8)) {
			t.Fatalf("deriveKeyNonce() nonce = %x, want zeros", nonce)
		}
	})

	t.Run("too short", func(t *testing.T) {
		if _, _, err := deriveKeyNonce([]uint32{1, 2}); err == nil {
			t.Fatal("deriveKeyNonce() expected error, got nil")
		}
	})
}

func TestDecryptAttr(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef")

	name, err := decryptAttr(encryptAttr(t, key, "report.pdf"), key)
	if err != nil {
		t.Fatalf("decryptAttr() err = %v", err)
	}
	if name != "report.pdf" {
		t.Fatalf("decryptAttr() name = %q, want %q", name, "report.pdf")
	}

	t.Run("wrong key", func(t *testing.T) {
		wrong := []byte("fedcba9876543210")
		if _, err := decryptAttr(encryptAttr(t, key, "report.pdf"), wrong); err == nil {
			t.Fatal("decryptAttr() expected error for wrong key, got nil")
		}
	})

	t.Run("missing magic", func(t *testing.T) {
		blob := base64.RawURLEncoding.EncodeToString(cbcEncrypt(t, key, []byte("XYZ!{\"n\":\"x\"}\x00\x00\x00")))
		if _, err := decryptAttr(blob, key); err == nil {
			t.Fatal("decryptAttr() expected error for missing magic, got nil")
		}
	})
}

func TestDecryptNodeKey(t *testing.T) {
	t.Parallel()

	shareKey := []byte("sharekey-16bytes")
	nodeKey := bytes.Repeat([]byte{0x5a, 0x01, 0xfe, 0x33}, 8)

	encoded := "handle42:" + base64.RawURLEncoding.EncodeToString(ecbEncrypt(t, shareKey, nodeKey))

	got, err := decryptNodeKey(encoded, shareKey)
	if err != nil {
		t.Fatalf("decryptNodeKey() err = %v", err)
	}
	if !bytes.Equal(got, nodeKey) {
		t.Fatalf("decryptNodeKey() = %x, want %x", got, nodeKey)
	}

	t.Run("bad length", func(t *testing.T) {
		bad := base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
		if _, err := decryptNodeKey(bad, shareKey); err == nil {
			t.Fatal("decryptNodeKey() expected error, got nil")
		}
	})
}

func TestCTRReaderRoundTrip(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef")
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	plain := []byte("the quick brown fox jumps over the lazy dog")

	enc := ctrEncrypt(t, key, nonce, plain)
	if bytes.Equal(enc, plain) {
		t.Fatal("ctr encryption left plaintext unchanged")
	}

	dec, err := newCTRReader(key, nonce, bytes.NewReader(enc))
	if err != nil {
		t.Fatalf("newCTRReader() err = %v", err)
	}
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("io.ReadAll() err = %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("decrypted = %q, want %q", got, plain)
	}
}
