package middleware

import (
	"crypto/hmac"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/ifremediator/pkg/apierror"
)

// VerificationTokenHeader carries the legacy Slack verification token.
const VerificationTokenHeader = "X-Slack-Verification-Token"

// VerifyConfig selects how callbacks are authenticated. A signing secret
// takes precedence over a verification token; with neither set every request
// is accepted.
type VerifyConfig struct {
	SigningSecret string
	VerifyToken   string
}

// SlackVerifier authenticates Slack callbacks. It must run after BodyReader.
// Signature mismatches get 403, token mismatches 401.
func SlackVerifier(cfg VerifyConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	switch {
	case cfg.SigningSecret != "":
		return signatureCheck(cfg.SigningSecret, logger)
	case cfg.VerifyToken != "":
		return tokenCheck(cfg.VerifyToken, logger)
	default:
		logger.Warn("slack callback verification disabled: neither signing secret nor verify token configured")
		return func(next http.Handler) http.Handler { return next }
	}
}

func signatureCheck(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := RawBody(r.Context())
			if !ok {
				apierror.Internal("request body not available for verification").Write(w)
				return
			}
			sv, err := slackapi.NewSecretsVerifier(r.Header, secret)
			if err == nil {
				_, err = sv.Write(body)
			}
			if err == nil {
				err = sv.Ensure()
			}
			if err != nil {
				logger.Warn("callback signature rejected",
					slog.String("remote", remoteIP(r)),
					slog.Any("error", err),
				)
				apierror.Forbidden("invalid request signature").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenCheck(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(VerificationTokenHeader)
			if provided == "" {
				body, _ := RawBody(r.Context())
				provided = payloadToken(body)
			}
			if provided == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
				logger.Warn("callback verification token rejected", slog.String("remote", remoteIP(r)))
				apierror.Unauthorized("invalid verification token").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// payloadToken extracts the token field of the form-encoded interaction
// payload, or "" when the body is not one.
func payloadToken(body []byte) string {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	var cb slackapi.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		return ""
	}
	return cb.Token
}
