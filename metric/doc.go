// Package metric provides the gateway's Prometheus instruments on a
// private registry, plus the operations HTTP server that exposes the
// scrape endpoint and the health probe.
package metric
