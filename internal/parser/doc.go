// Package parser normalizes raw Gmail API payloads into a provider-neutral
// email model.
//
// The package is purely computational: it never talks to the network. It
// accepts the *gmail.Message and *gmail.Thread structs returned by
// google.golang.org/api/gmail/v1 and produces Email and Thread values that
// the rest of the application consumes.
//
// Parsing is tolerant. Malformed addresses degrade to bare email
// strings, undecodable body parts yield empty bodies, and missing headers
// fall back to sensible defaults. ParseMessage and ParseThread never return
// an error; a message that cannot be fully understood still produces a
// usable Email.
package parser
