package core

import "time"

// Session binds one browser to its own set of burner accounts
type Session struct {
	ID        string    // Unique session identifier
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session cookie stops being accepted
}
