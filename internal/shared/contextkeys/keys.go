package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "restate context key " + string(c)
}

// RequestIDKey is the key for the gateway request ID in context.Context
const RequestIDKey = contextKey("requestID")

// UserIDKey is the key for the signed-in account ID in context.Context
const UserIDKey = contextKey("userID")

// ComponentKey names the component that produced a log line
const ComponentKey = contextKey("component")

// OperationKey names the backend operation in flight
const OperationKey = contextKey("operation")

// GlobalProviderKey holds the global session provider for request handlers
const GlobalProviderKey = contextKey("globalProvider")
