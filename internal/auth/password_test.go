package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("device-secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=1$") {
		t.Errorf("hash %q not in expected PHC format", hash)
	}

	// Fresh salt each time.
	other, err := HashPassword("device-secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == other {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		ok, err := VerifyPassword("correct horse", hash)
		if err != nil {
			t.Fatalf("VerifyPassword() error = %v", err)
		}
		if !ok {
			t.Error("VerifyPassword() = false for correct password")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		ok, err := VerifyPassword("battery staple", hash)
		if err != nil {
			t.Fatalf("VerifyPassword() error = %v", err)
		}
		if ok {
			t.Error("VerifyPassword() = true for wrong password")
		}
	})

	t.Run("malformed hash", func(t *testing.T) {
		if _, err := VerifyPassword("anything", "not-a-phc-string"); err == nil {
			t.Error("VerifyPassword() accepted malformed hash")
		}
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		if _, err := VerifyPassword("anything", "$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"); err == nil {
			t.Error("VerifyPassword() accepted non-argon2id hash")
		}
	})
}
