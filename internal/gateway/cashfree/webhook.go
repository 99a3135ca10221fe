package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"storefront-core/internal/gateway"
)

// VerifySignature checks the webhook authenticity signature:
// Base64(HMAC-SHA256(timestamp + rawBody, clientSecret)).
func (c *Client) VerifySignature(signature, timestamp string, rawBody []byte) bool {
	if signature == "" || timestamp == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type webhookPayload struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"data"`
}

// ParseWebhook maps the untyped callback JSON onto the tagged union of known
// event shapes. Malformed JSON and unrecognized events both come back as
// EventUnknown with whatever name was present.
func ParseWebhook(raw []byte) gateway.WebhookEvent {
	var p webhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return gateway.WebhookEvent{Kind: gateway.EventUnknown}
	}

	name := p.Type
	if name == "" {
		name = p.Event
	}
	ev := gateway.WebhookEvent{Kind: gateway.EventUnknown, Name: name, GatewayRef: p.Data.Order.OrderID}

	switch {
	case p.Type == "PAYMENT_SUCCESS" || p.Event == "payment.success":
		ev.Kind = gateway.EventPaymentSuccess
	case p.Type == "PAYMENT_FAILED" || p.Event == "payment.failed":
		ev.Kind = gateway.EventPaymentFailed
	}
	return ev
}

// ParseWebhook satisfies the engine's gateway boundary.
func (c *Client) ParseWebhook(raw []byte) gateway.WebhookEvent {
	return ParseWebhook(raw)
}
