// Package models defines the gateway's persisted identity records.
package models

import "time"

// Provider values stored in User.Provider.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// User is an identity known to the gateway. PasswordHash is empty for
// accounts created through an identity provider.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
}
