package meta

import "errors"

// Errors returned by lookups, invocation and the property engine.
// Callers match them with errors.Is; the returned errors carry detail.
var (
	ErrNotFound          = errors.New("member not found")
	ErrArgumentMismatch  = errors.New("argument count mismatch")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnregisteredType  = errors.New("unregistered argument type")
	ErrNotWritable       = errors.New("property not writable")
	ErrNotResettable     = errors.New("property not resettable")
	ErrUnsupported       = errors.New("operation not supported")
	ErrDeadlockRisk      = errors.New("blocking call on the receiver's own thread")
	ErrNoEventLoop       = errors.New("receiver has no event loop")
	ErrThreadStopped     = errors.New("thread stopped")
	ErrCorruptDescriptor = errors.New("corrupt class descriptor")
)
