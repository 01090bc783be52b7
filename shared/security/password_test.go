package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(HashParams{MemoryKB: minMemoryKB, Time: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v
}

func TestVaultHashVerify(t *testing.T) {
	v := newTestVault(t)

	for _, pw := range []string{"x", "secretpw", strings.Repeat("long-password-", 80)} {
		hash, err := v.Hash(pw)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$v=19$") {
			t.Fatalf("unexpected hash format %q", hash)
		}
		if !v.Verify(pw, hash) {
			t.Fatalf("expected password of length %d to verify", len(pw))
		}
		if v.Verify(pw+"!", hash) {
			t.Fatalf("expected wrong password of length %d to fail", len(pw))
		}
	}
}

func TestVaultHashIsSaltedAndFixedLength(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := v.Hash(strings.Repeat("a", 2000))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	c, err := v.Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == c {
		t.Fatal("expected different salts to produce different hashes")
	}
	if len(a) != len(b) {
		t.Fatalf("expected fixed-length hashes, got %d and %d", len(a), len(b))
	}
}

func TestVaultVerifyMalformedHash(t *testing.T) {
	v := newTestVault(t)

	for _, bad := range []string{
		"",
		"plain",
		"$argon2id$v=19$m=8192,t=1,p=1$$",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=999999999,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$2b$10$notreallyabcrypthash",
	} {
		if v.Verify("secretpw", bad) {
			t.Fatalf("expected malformed hash %q to fail", bad)
		}
	}
}

func TestVaultVerifiesLegacyBcrypt(t *testing.T) {
	v := newTestVault(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("secretpw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if !v.Verify("secretpw", string(legacy)) {
		t.Fatal("expected bcrypt hash to verify")
	}
	if v.Verify("wrongpw", string(legacy)) {
		t.Fatal("expected wrong password to fail against bcrypt")
	}
	if !v.NeedsRehash(string(legacy)) {
		t.Fatal("expected bcrypt hash to need rehash")
	}
}

func TestVaultNeedsRehash(t *testing.T) {
	weak := newTestVault(t)
	strong, err := NewVault(HashParams{MemoryKB: 2 * minMemoryKB, Time: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	hash, err := weak.Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if weak.NeedsRehash(hash) {
		t.Fatal("hash with current params should not need rehash")
	}
	if !strong.NeedsRehash(hash) {
		t.Fatal("hash with weaker memory should need rehash")
	}
	if !strong.Verify("secretpw", hash) {
		t.Fatal("verification must not depend on current params")
	}
}

func TestNewVaultRejectsWeakParams(t *testing.T) {
	if _, err := NewVault(HashParams{MemoryKB: 1024, Time: 1, Parallelism: 1}); err == nil {
		t.Fatal("expected error for low memory")
	}
	if _, err := NewVault(HashParams{MemoryKB: minMemoryKB, Time: 0, Parallelism: 1}); err == nil {
		t.Fatal("expected error for zero time")
	}
}

func TestNewVaultZeroParamsUsesDefaults(t *testing.T) {
	v, err := NewVault(HashParams{})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	if v.params != DefaultHashParams {
		t.Fatalf("expected %+v, got %+v", DefaultHashParams, v.params)
	}
	hash, err := v.Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.Contains(hash, "m=65536,t=1,p=2") {
		t.Fatalf("expected default cost in %s", hash)
	}
}
