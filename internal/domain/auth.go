package domain

// Caller is the authenticated identity threaded through every engine operation.
// The engine trusts it and performs no credential checks.
type Caller struct {
	ID           string
	Email        string
	Municipality string
	IsAdmin      bool
	DisplayName  string
}
