package jwt

import (
	"encoding/base64"
	"strings"
)

// URLSafeBase64Encode codifica en base64 estándar y lo hace URL-safe:
// '+' -> '-', '/' -> '_' y sin '=' final.
func URLSafeBase64Encode(b []byte) string {
	s := base64.StdEncoding.EncodeToString(b)
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return strings.TrimRight(s, "=")
}

// URLSafeBase64Decode revierte URLSafeBase64Encode. Re-rellena con '=' hasta
// múltiplo de 4 antes de decodificar, por lo que acepta también input con padding.
func URLSafeBase64Decode(s string) ([]byte, error) {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	return base64.StdEncoding.DecodeString(s)
}
