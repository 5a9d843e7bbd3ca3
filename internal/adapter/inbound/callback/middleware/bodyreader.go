package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jonny/ifremediator/pkg/apierror"
)

// MaxBodyBytes caps a buffered callback body.
const MaxBodyBytes = 1 << 20

type rawBodyKey struct{}

// BodyReader buffers the request body so the signature check and the form
// parser can both read it. The raw bytes are available through RawBody.
func BodyReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				apierror.New(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
				return
			}
			apierror.BadRequest("failed to read request body").Write(w)
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := context.WithValue(r.Context(), rawBodyKey{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RawBody returns the body buffered by BodyReader.
func RawBody(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(rawBodyKey{}).([]byte)
	return body, ok
}
