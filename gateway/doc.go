// Package gateway serves a project over websockets: bus events fan out to
// every connected client as JSON envelopes, and client command frames are
// decoded and dispatched into the actor loop. Health and Prometheus scrape
// endpoints ride on the same listener.
package gateway
