// Package core contains the alert record model, its contracts, configuration
// and the ingest/list orchestration. Storage, HTTP and mail adapters depend on
// this package; core must not depend on them.
package core
