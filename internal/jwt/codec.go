// Package jwt implementa el token firmado de tres segmentos
// (header.payload.signature) que autentica las llamadas entre sitios.
//
// Solo se soporta HS256: la clave simétrica es el access token de la
// conexión. La firma cubre los segmentos tal como viajan, nunca una
// re-serialización del JSON, así que la verificación siempre recalcula el
// HMAC sobre los segmentos recibidos.
package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Algorithm es el único algoritmo aceptado.
const Algorithm = "HS256"

var (
	ErrMalformed = errors.New("jwt: token must have 3 segments")
	ErrHeader    = errors.New("jwt: invalid header")
	ErrPayload   = errors.New("jwt: invalid payload")
	ErrEncoding  = errors.New("jwt: invalid signature encoding")
	ErrAlgorithm = errors.New("jwt: unsupported algorithm")
	ErrSignature = errors.New("jwt: signature mismatch")
	ErrEmptyKey  = errors.New("jwt: empty key")
)

// Header es el header fijo que emite Encode.
type Header struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

var hs256 = jwtv5.SigningMethodHS256

// Encode serializa header y payload, los codifica en base64url y firma
// header+"."+payload con HMAC-SHA256 usando key.
func Encode(payload any, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	hb, err := json.Marshal(Header{Typ: "JWT", Alg: Algorithm})
	if err != nil {
		return "", err
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("jwt: marshal payload: %w", err)
	}

	signingInput := URLSafeBase64Encode(hb) + "." + URLSafeBase64Encode(pb)
	sig, err := hs256.Sign(signingInput, key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signingInput + "." + URLSafeBase64Encode(sig), nil
}

// Split separa el token en sus tres segmentos sin validar nada más.
func Split(token string) (header, payload, signature string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", "", ErrMalformed
	}
	return parts[0], parts[1], parts[2], nil
}

// PeekPayload devuelve el payload JSON decodificado SIN verificar la firma.
// Sirve para rechazar temprano headers malformados; nunca para autorizar.
func PeekPayload(token string) (json.RawMessage, error) {
	_, p, _, err := Split(token)
	if err != nil {
		return nil, err
	}
	return decodeJSONSegment(p, ErrPayload)
}

// Decode verifica el token con key y devuelve el payload crudo.
// Cualquier falla (segmentos, JSON, base64, alg distinto de HS256, firma)
// devuelve error y nunca el payload.
func Decode(token string, key []byte) (json.RawMessage, error) {
	h64, p64, s64, err := Split(token)
	if err != nil {
		return nil, err
	}

	rawHeader, err := decodeJSONSegment(h64, ErrHeader)
	if err != nil {
		return nil, err
	}
	payload, err := decodeJSONSegment(p64, ErrPayload)
	if err != nil {
		return nil, err
	}
	sig, err := URLSafeBase64Decode(s64)
	if err != nil {
		return nil, ErrEncoding
	}

	var hdr struct {
		Alg any `json:"alg"`
	}
	if err := json.Unmarshal(rawHeader, &hdr); err != nil {
		return nil, ErrHeader
	}
	if alg, _ := hdr.Alg.(string); alg != Algorithm {
		return nil, ErrAlgorithm
	}

	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	// Verify compara en tiempo constante (hmac.Equal).
	if err := hs256.Verify(h64+"."+p64, sig, key); err != nil {
		return nil, ErrSignature
	}
	return payload, nil
}

// DecodeInto es Decode + json.Unmarshal del payload en v.
func DecodeInto(token string, key []byte, v any) error {
	payload, err := Decode(token, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return nil
}

func decodeJSONSegment(seg string, kind error) (json.RawMessage, error) {
	if seg == "" {
		return nil, kind
	}
	b, err := URLSafeBase64Decode(seg)
	if err != nil {
		return nil, kind
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || !json.Valid(b) || bytes.Equal(b, []byte("null")) {
		return nil, kind
	}
	return json.RawMessage(b), nil
}
