package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	algorithmID    = "argon2id"
	saltLength     = 16
	keyLength      = 32
	minMemoryKB    = 8 * 1024
	minTimeCost    = 1
	minParallelism = 1
	maxMemoryKB    = 1 << 21
	maxTimeCost    = 16
)

// HashParams are the argon2id cost parameters for new hashes.
type HashParams struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
}

// DefaultHashParams is used by NewVault when given zero HashParams.
var DefaultHashParams = HashParams{MemoryKB: 64 * 1024, Time: 1, Parallelism: 2}

// Vault hashes and verifies passwords. It holds no mutable state.
type Vault struct {
	params HashParams
	// dummy is verified against when an account does not exist so that
	// the miss costs roughly the same as a wrong password.
	dummy string
}

func NewVault(p HashParams) (*Vault, error) {
	if p == (HashParams{}) {
		p = DefaultHashParams
	}
	if p.MemoryKB < minMemoryKB {
		return nil, fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	}
	if p.Time < minTimeCost {
		return nil, errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return nil, errors.New("argon2 parallelism must be >= 1")
	}
	v := &Vault{params: p}
	dummy, err := v.Hash("lungsense-dummy-password")
	if err != nil {
		return nil, err
	}
	v.dummy = dummy
	return v, nil
}

// Hash returns a PHC-encoded argon2id hash with a random salt. Input length is
// not limited.
func (v *Vault) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, v.params.Time, v.params.MemoryKB, v.params.Parallelism, keyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		v.params.MemoryKB,
		v.params.Time,
		v.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches hash. Malformed or unknown hashes
// yield false.
func (v *Vault) Verify(password, hash string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	parsed, err := parsePHC(hash)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

// VerifyDummy burns one verification against a fixed hash.
func (v *Vault) VerifyDummy(password string) {
	_ = v.Verify(password, v.dummy)
}

// NeedsRehash reports whether hash should be replaced with one produced by the
// current parameters.
func (v *Vault) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	parsed, err := parsePHC(hash)
	if err != nil {
		return true
	}
	return parsed.memory < v.params.MemoryKB ||
		parsed.time < v.params.Time ||
		parsed.parallelism < v.params.Parallelism ||
		len(parsed.key) != keyLength
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errors.New("unsupported argon2 version")
	}

	var out phc
	for _, pair := range strings.Split(parts[3], ",") {
		k, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid %s parameter", k)
		}
		switch k {
		case "m":
			out.memory = uint32(n)
		case "t":
			out.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, errors.New("invalid p parameter")
			}
			out.parallelism = uint8(n)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if out.memory == 0 || out.time == 0 || out.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}
	if out.memory > maxMemoryKB || out.time > maxTimeCost {
		return nil, errors.New("parameters out of range")
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < saltLength {
		return nil, errors.New("invalid salt")
	}
	key, err := decodeB64(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errors.New("invalid key")
	}
	out.salt = salt
	out.key = key
	return &out, nil
}

// decodeB64 accepts both padded and unpadded PHC encodings.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
