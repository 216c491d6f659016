// Package chat converts parsed emails into the chat-style message and
// conversation model served to clients.
//
// The Converter is bound to the signed-in user's email address. Ownership
// of a message (rendered left or right in a chat view) is decided once per
// message by a case-insensitive comparison of the sender address with that
// bound address, and every derived field reuses the same decision.
//
// All conversions are pure. Like the parser, this package performs no I/O.
package chat
