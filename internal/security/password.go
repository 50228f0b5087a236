package security

import "golang.org/x/crypto/bcrypt"

// bcrypt hash of a throwaway string, generated once at the default cost.
// Login compares against it when no user matches the email so that the
// unknown-email path costs the same as a real comparison.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// BurnComparison performs a bcrypt comparison that always fails. It keeps
// the timing of a login against a nonexistent account in line with a login
// against a real one.
func BurnComparison(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
