package telephony

import (
	"net/url"

	"github.com/twilio/twilio-go/client"
)

// SignatureHeader carries the provider's request signature.
const SignatureHeader = "X-Twilio-Signature"

// SignatureValidator checks that webhook requests come from the provider.
type SignatureValidator struct {
	validator client.RequestValidator
}

// NewSignatureValidator creates a validator for the account's auth token.
func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: client.NewRequestValidator(authToken)}
}

// Valid reports whether signature matches the full request URL and form body.
func (v *SignatureValidator) Valid(fullURL string, form url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	params := make(map[string]string, len(form))
	for key := range form {
		params[key] = form.Get(key)
	}
	return v.validator.Validate(fullURL, params, signature)
}
