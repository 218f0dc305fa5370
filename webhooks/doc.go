// Package webhooks turns raw Azure DevOps service hook deliveries into
// AlertWebhook values.
//
// Only two failures reach the caller: a body that is not JSON (400) and a
// shared secret mismatch (401). Anything that goes wrong after that is logged
// and the delivery is still acknowledged with 200 so the sender does not retry.
package webhooks
