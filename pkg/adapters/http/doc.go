// Package http exposes a switchboard Engine over HTTP.
//
// Routes:
//
//	GET    /health
//	GET    /info
//	GET    /flows                      list registered flows
//	POST   /flows                      publish a flow (YAML or JSON body)
//	POST   /flows/validate             validate without publishing
//	GET    /flows/{id}?version=N       definition (YAML with Accept: application/yaml)
//	DELETE /flows/{id}
//	POST   /flows/{id}/activate
//	POST   /flows/{id}/deactivate
//	POST   /events                     deliver an inbound event
//	POST   /sessions                   start a conversation
//	GET    /sessions/{id}
//	POST   /sessions/{id}/close
//	GET    /conversations/{id}/stream  outbound messages as server-sent events
//	GET    /metrics                    when a Prometheus gatherer is configured
package http
