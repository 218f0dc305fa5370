package webhooks

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/goliatone/go-ado-alerts/core"
)

// SharedSecretVerifier compares one header against a configured secret. An
// empty secret disables the check. The header value is compared exactly,
// without trimming.
type SharedSecretVerifier struct {
	Header string
	Secret string
}

func NewSharedSecretVerifier(secret string) SharedSecretVerifier {
	return SharedSecretVerifier{Header: core.HeaderWebhookSecret, Secret: secret}
}

func (v SharedSecretVerifier) Enabled() bool {
	return v.Secret != ""
}

func (v SharedSecretVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	if !v.Enabled() {
		return nil
	}
	header := v.Header
	if header == "" {
		header = core.HeaderWebhookSecret
	}
	actual, ok := lookupHeader(req.Headers, header)
	if !ok {
		return fmt.Errorf("webhooks: %s header is required: %w", header, core.ErrSecretMismatch)
	}
	if subtle.ConstantTimeCompare([]byte(actual), []byte(v.Secret)) != 1 {
		return core.ErrSecretMismatch
	}
	return nil
}

var _ core.Verifier = SharedSecretVerifier{}
