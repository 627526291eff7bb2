// Package serializer converts commands and replies to and from the records
// exchanged with an opentick server.
//
// A record is a BSON document with the positional keys "0" to "3":
//
//	use:     {"0": ticket, "1": "use",     "2": dbName}
//	prepare: {"0": ticket, "1": "prepare", "2": sqlText}
//	run:     {"0": ticket, "1": "run",     "2": sqlText | handle, "3": args}
//	reply:   {"0": ticket, "1": payload}
//
// The payload of a reply is an error string, a sequence of rows or a scalar.
// Interpreting it is left to the client package.
//
// Thread Safety:
//
//	The serializer is stateless and safe for concurrent use.
package serializer
