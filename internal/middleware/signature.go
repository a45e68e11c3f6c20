package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	twilioclient "github.com/twilio/twilio-go/client"
)

// TwilioSignature rejects webhook requests whose X-Twilio-Signature header
// does not match the posted form, recomputed against the public URL the
// provider was configured with.
func TwilioSignature(authToken, publicURL string) func(http.Handler) http.Handler {
	validator := twilioclient.NewRequestValidator(authToken)
	base := strings.TrimRight(publicURL, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			params := make(map[string]string, len(r.PostForm))
			for key, values := range r.PostForm {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}
			url := base + r.URL.RequestURI()
			signature := r.Header.Get("X-Twilio-Signature")
			if !validator.Validate(url, params, signature) {
				log.Warn().Str("url", url).Msg("rejected webhook with bad signature")
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
