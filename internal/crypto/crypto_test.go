package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestNewCipherKeyLength(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"32 bytes", 32, false},
		{"too short", 16, true},
		{"too long", 64, true},
		{"empty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipher(bytes.Repeat([]byte{1}, tt.keyLen))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCipher() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c, err := NewCipher(testKey(1))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	tests := []string{
		`{"0":2,"3":[0,1]}`,
		"short",
		strings.Repeat("long payload ", 100),
	}

	for _, plaintext := range tests {
		encrypted, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if encrypted == plaintext {
			t.Error("ciphertext equals plaintext")
		}
		decrypted, err := c.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("roundtrip = %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptEmptyStringPassesThrough(t *testing.T) {
	c, _ := NewCipher(testKey(1))
	out, err := c.Encrypt("")
	if err != nil || out != "" {
		t.Errorf("Encrypt(\"\") = %q, %v", out, err)
	}
	out, err = c.Decrypt("")
	if err != nil || out != "" {
		t.Errorf("Decrypt(\"\") = %q, %v", out, err)
	}
}

func TestDecryptRejectsWrongKeyAndTampering(t *testing.T) {
	c1, _ := NewCipher(testKey(1))
	c2, _ := NewCipher(testKey(2))

	encrypted, err := c1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := c2.Decrypt(encrypted); err == nil {
		t.Error("Decrypt() with wrong key succeeded")
	}
	if _, err := c1.Decrypt("not base64!!"); err == nil {
		t.Error("Decrypt() of invalid base64 succeeded")
	}
	if _, err := c1.Decrypt("c2hvcnQ="); err == nil {
		t.Error("Decrypt() of truncated ciphertext succeeded")
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, _ := NewCipher(testKey(1))
	a, _ := c.Encrypt("same input")
	b, _ := c.Encrypt("same input")
	if a == b {
		t.Error("two encryptions produced identical ciphertext (nonce reuse?)")
	}
}
