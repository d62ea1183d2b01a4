package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// WebhookSignatureHeader carries base64(HMAC-SHA256(secret, body)).
const WebhookSignatureHeader = "X-Shopify-Hmac-Sha256"

// SignWebhook computes the signature Shopify sends for body.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateWebhook checks a webhook signature in constant time.
func ValidateWebhook(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := SignWebhook(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
