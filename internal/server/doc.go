// Package server exposes the URL scanner over HTTP for the browser extension.
//
// Routes:
//
//	GET  /                  API information
//	GET  /health            liveness and classifier state
//	GET  /test-connection   connectivity probe
//	POST /scan-url          scan {"url": "..."}
//	GET  /scan-url?url=...  scan a query parameter
//	GET  /metrics           Prometheus metrics
//
// Every route answers CORS preflight requests. Input URLs are normalized by
// NormalizeURL before scanning; invalid input yields 400 with a JSON body of
// the form {"detail": "..."}.
package server
