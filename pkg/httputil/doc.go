// Package httputil holds the JSON plumbing of the HTTP API.
//
// Handlers decode request bodies with [DecodeJSON], which bounds the body
// size and rejects unknown fields, and answer with [WriteJSON] or
// [WriteError]. WriteError maps the codes of pkg/errors to HTTP statuses
// so that every endpoint reports failures the same way:
//
//	{"error": {"code": "CYCLE", "message": "add A -> B: adding the edge would create a cycle"}}
package httputil
