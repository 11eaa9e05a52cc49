package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	v := testVault(t)
	cases := []string{
		"",
		"ghp_abc123",
		"exactly-16-bytes",
		strings.Repeat("x", 1000),
		"unicode: 日本語 🚀 ünïcødé",
	}
	for _, plaintext := range cases {
		ct, err := v.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		got, err := v.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if got != plaintext {
			t.Errorf("round trip: got %q want %q", got, plaintext)
		}
	}
}

func TestEncryptNotDeterministic(t *testing.T) {
	v := testVault(t)
	a, err := v.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("two encryptions of the same plaintext produced identical ciphertext: %s", a)
	}
}

func TestCiphertextFormat(t *testing.T) {
	v := testVault(t)
	ct, err := v.Encrypt("token")
	if err != nil {
		t.Fatal(err)
	}
	ivHex, _, ok := strings.Cut(ct, ":")
	if !ok {
		t.Fatalf("ciphertext missing separator: %s", ct)
	}
	if len(ivHex) != 32 {
		t.Errorf("iv hex length = %d, want 32", len(ivHex))
	}
}

func TestDecryptMalformed(t *testing.T) {
	v := testVault(t)
	cases := []string{
		"",
		"no-separator",
		"nothex:deadbeef",
		"deadbeef:nothex",
		"abcd:deadbeef",                              // iv too short
		strings.Repeat("ab", 16) + ":" + "deadbeef",  // data not block aligned
		strings.Repeat("ab", 16) + ":",               // empty data
	}
	for _, ct := range cases {
		if _, err := v.Decrypt(ct); !errors.Is(err, ErrMalformedCiphertext) {
			t.Errorf("Decrypt(%q) err = %v, want ErrMalformedCiphertext", ct, err)
		}
	}
}

func TestDecryptWrongKey(t *testing.T) {
	v := testVault(t)
	ct, err := v.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	other, err := New(bytes.Repeat([]byte{0x99}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(ct); !errors.Is(err, ErrDecryptionFailed) {
		// A wrong key almost always corrupts the padding. In the rare case the
		// garbage decrypts to valid padding the plaintext still differs.
		if err == nil {
			got, _ := other.Decrypt(ct)
			if got == "secret" {
				t.Error("wrong key decrypted to original plaintext")
			}
		}
	}
}

func TestNewRejectsBadKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Error("New accepted a 5-byte key")
	}
	if _, err := NewFromHex("zz"); err == nil {
		t.Error("NewFromHex accepted invalid hex")
	}
}
