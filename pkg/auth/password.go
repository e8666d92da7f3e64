package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash of the password. The salt is generated
// per call, so hashing the same password twice yields different values.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a password against a stored bcrypt hash.
// Malformed hashes compare as false rather than erroring.
func CheckPassword(password, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
