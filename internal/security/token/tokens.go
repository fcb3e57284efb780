package tokens

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Alfabetos de GeneratePassword.
const (
	alnumChars        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	specialChars      = "!@#$%^&*()"
	extraSpecialChars = "-_ []{}<>~`+=,.;:/?|"
)

// PasswordOptions controla qué clases de caracteres entran en el string.
type PasswordOptions struct {
	Special      bool // !@#$%^&*()
	ExtraSpecial bool // -_ []{}<>~`+=,.;:/?|
}

// GeneratePassword genera un string aleatorio de length caracteres tomados de
// [a-zA-Z0-9] y, opcionalmente, de los alfabetos especiales. Usa crypto/rand
// con muestreo uniforme (sin sesgo de módulo).
func GeneratePassword(length int, opts PasswordOptions) (string, error) {
	if length <= 0 {
		return "", errors.New("tokens: length must be positive")
	}
	chars := alnumChars
	if opts.Special {
		chars += specialChars
	}
	if opts.ExtraSpecial {
		chars += extraSpecialChars
	}

	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}
