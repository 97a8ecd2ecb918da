package models

import "errors"

// Failure taxonomy for one verification flow. The orchestrator and handlers
// branch on these with errors.Is; the messages riding along in the wrap give
// callers the human-readable detail.
//
//   - ErrInvalidLocator: the input contained no usable verification reference.
//     Raised before any network call; the caller's balance must stay untouched.
//   - ErrUpstreamStep: the remote declared step "error" or answered with a
//     non-success HTTP status. Terminal, no retry.
//   - ErrUpload: a document PUT failed. Terminal, no retry.
//   - ErrTransport: a network or timeout failure during any remote call.
//   - ErrRender: the local document renderer failed. A configuration fault,
//     not a transient one, so it is fatal to the session.
var (
	ErrInvalidLocator = errors.New("no verification reference in input")
	ErrUpstreamStep   = errors.New("upstream step rejected")
	ErrUpload         = errors.New("document upload failed")
	ErrTransport      = errors.New("upstream transport failure")
	ErrRender         = errors.New("document rendering failed")
)
