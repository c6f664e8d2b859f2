package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// Paramètres Argon2id : ~15-20ms par hash.
const (
	Argon2Time    = 1
	Argon2Memory  = 32 * 1024
	Argon2Threads = 4
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
)

var errInvalidHash = errors.New("hash invalide")

// PasswordHasher hashe avec l'algorithme configuré et vérifie les deux formats,
// ce qui permet de changer PASSWORD_HASHER sans invalider les comptes existants.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int

	dummyOnce sync.Once
	dummy     string
}

func NewPasswordHasher(algorithm string, bcryptCost int) (*PasswordHasher, error) {
	switch algorithm {
	case HasherBcrypt, HasherArgon2id:
	case "":
		algorithm = HasherBcrypt
	default:
		return nil, fmt.Errorf("algorithme de hash inconnu: %q", algorithm)
	}

	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.MaxCost
	}

	return &PasswordHasher{algorithm: algorithm, bcryptCost: bcryptCost}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == HasherArgon2id {
		return hashArgon2id(password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify retourne false pour un mauvais mot de passe comme pour un hash illisible.
func (h *PasswordHasher) Verify(password, encodedHash string) bool {
	switch {
	case IsBcryptHash(encodedHash):
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	case IsArgon2Hash(encodedHash):
		ok, err := verifyArgon2id(password, encodedHash)
		return err == nil && ok
	default:
		return false
	}
}

// DummyVerify consomme le même temps qu'une vraie vérification quand l'utilisateur n'existe pas.
func (h *PasswordHasher) DummyVerify(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.Hash("mot-de-passe-factice")
	})
	h.Verify(password, h.dummy)
}

func hashArgon2id(password string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	// Format: $argon2id$v=19$m=32768,t=1,p=4$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Argon2Memory, Argon2Time, Argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, errInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, err
	}
	if version != argon2.Version {
		return false, errInvalidHash
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	other := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))

	// Comparaison en temps constant
	return subtle.ConstantTimeCompare(hash, other) == 1, nil
}

func IsArgon2Hash(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}

func IsBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
