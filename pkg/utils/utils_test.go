package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	ok, err := VerifyPassword("correct horse battery", hash)
	if err != nil || !ok {
		t.Fatalf("verify correct: ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("wrong horse battery", hash)
	if err != nil || ok {
		t.Fatalf("verify wrong: ok=%v err=%v", ok, err)
	}
	if _, err := VerifyPassword("x", "$bcrypt$nope"); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Errorf("short password accepted")
	}
	if err := ValidatePassword(strings.Repeat("a", MaxPasswordLength+1)); err == nil {
		t.Errorf("long password accepted")
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"ab", false},
		{"calm_walker", true},
		{"_leading", false},
		{"has space", false},
		{"Admin", false},
		{strings.Repeat("x", 21), false},
		{"user42", true},
	}
	for _, tt := range tests {
		err := ValidateUsername(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateUsername(%q) err = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestFieldCipher_RoundTrip(t *testing.T) {
	c, err := NewFieldCipher(testKey(t))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	sealed, err := c.Encrypt("I felt tense before the meeting")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.HasPrefix(sealed, encPrefix) || strings.Contains(sealed, "tense") {
		t.Fatalf("value not sealed: %q", sealed)
	}
	plain, err := c.Decrypt(sealed)
	if err != nil || plain != "I felt tense before the meeting" {
		t.Fatalf("decrypt = %q, %v", plain, err)
	}
	// Legacy plaintext is returned unchanged.
	if got, _ := c.Decrypt("old note"); got != "old note" {
		t.Errorf("legacy value = %q", got)
	}
}

func TestFieldCipher_Passthrough(t *testing.T) {
	c, err := NewFieldCipher("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Enabled() {
		t.Fatalf("empty key should disable encryption")
	}
	if got, _ := c.Encrypt("note"); got != "note" {
		t.Errorf("passthrough encrypt = %q", got)
	}
	if _, err := c.Decrypt(encPrefix + "AAAA"); err == nil {
		t.Errorf("decrypting sealed value without key should fail")
	}
}

func TestNewFieldCipher_BadKey(t *testing.T) {
	if _, err := NewFieldCipher("not base64!"); err == nil {
		t.Errorf("expected base64 error")
	}
	if _, err := NewFieldCipher(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Errorf("expected length error")
	}
}
