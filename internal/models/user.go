package models

// AuthUser is the caller identity carried in the access token minted by the
// main application. This service does not own a users table.
type AuthUser struct {
	ID    string
	Email string
}
