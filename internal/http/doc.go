// Package httpapp serves the SBLP endpoint.
//
// Routes:
//
//	GET  /              health probe, 204
//	GET  /sblp          health probe, 204
//	POST /sblp/request  inbound bump request
//	GET  /metrics       Prometheus metrics
//
// The bump endpoint expects a JSON body of the form
//
//	{"type":"REQUEST","guild":"<id>","channel":"<id>","user":"<id>"}
//
// with an Authorization header (optionally "Bearer "-prefixed) and an
// optional maxwait header giving the handler deadline in seconds.
package httpapp
