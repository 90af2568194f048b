package chat

import "errors"

// Errors shared across the live fan-out layer and the durable store.
//
// Connection-table errors are recovered locally (logged, never fatal);
// store errors wrap and propagate to whoever invoked the store operation.
var (
	// ErrDuplicateConnection means a transport re-registered a connection id
	// without unregistering it first. Integration bug: log and ignore.
	ErrDuplicateConnection = errors.New("connection id already registered")

	// ErrUnknownConnection targets a connection that is not registered.
	// Disconnects race with cleanup by nature, so callers treat it as a no-op.
	ErrUnknownConnection = errors.New("connection id not registered")

	// ErrAuthorizationDenied rejects a live subscription for a user that is
	// not a member of the channel. The connection stays open.
	ErrAuthorizationDenied = errors.New("user is not a member of this channel")

	ErrChannelNotFound  = errors.New("channel not found")
	ErrChannelNameTaken = errors.New("channel name already exists")
	ErrAlreadyMember    = errors.New("already a member of this channel")
	ErrNotMember        = errors.New("not a member of this channel")
	ErrMessageNotFound  = errors.New("message not found")
)
