// Package inbound mounts the webhook endpoints on a gin router.
//
// POST and GET share one configurable path. POST runs the ingest command and
// renders its result; GET runs the recent alerts query.
package inbound
