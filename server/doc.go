// Package server exposes a goGrant Engine over HTTP.
//
// # Routes
//
//	POST   /v1/tokens              create a token (explicit secret, or the keyring)
//	POST   /v1/tokens/verify       verify a token (explicit candidates, or the keyring)
//	GET    /v1/results/{handle}    read a retained result envelope
//	DELETE /v1/results/{handle}    release a retained result envelope
//	GET    /health                 liveness
//	GET    /metrics                optional metrics handler
//
// Request and response bodies are JSON unless the client sends or asks for
// application/cbor. Adding ?retain=true to a token route parks the result envelope
// in the engine's handle table and answers with its handle instead of the result.
//
// # What this package must NOT do
//
//   - Log tokens, secrets, or claims.
//   - Decide authorization. Outcomes come from the Engine unchanged.
package server
