// Package password hashes link passwords. Only the bcrypt hash is stored on
// the link record; the plaintext a recipient submits is compared and dropped.
package password

import "golang.org/x/crypto/bcrypt"

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil when plain matches hash. Callers map any error to the
// same validation failure so wrong password and malformed hash look alike.
func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
