package helpers

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/http/errors"
)

// MaxBodyBytes es el límite de body aceptado en cualquier endpoint.
const MaxBodyBytes = 1 << 20

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadParams junta los parámetros del request: query, luego form
// (urlencoded o multipart) y luego el objeto JSON del body. Las fuentes
// posteriores pisan a las anteriores. Los números JSON quedan como json.Number.
func ReadParams(w http.ResponseWriter, r *http.Request) (dispatch.Params, error) {
	params := dispatch.Params{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[len(vs)-1]
		}
	}

	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return params, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "application/json" || strings.HasSuffix(ct, "+json"):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, bodyError(err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return params, nil
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, errors.ErrInvalidJSON.WithCause(err)
		}
		for k, v := range obj {
			params[k] = v
		}
	case ct == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				params[k] = vs[len(vs)-1]
			}
		}
	case ct == "multipart/form-data":
		if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
			return nil, bodyError(err)
		}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				params[k] = vs[len(vs)-1]
			}
		}
	}
	return params, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.ErrBodyTooLarge.WithCause(err)
	}
	return errors.ErrBadRequest.WithCause(err)
}
