package models

import "strconv"

// Identity is what an auth provider reports for a signed-in user. It is
// either a LocalCredential or a RemoteIdentity.
type Identity interface {
	ProfileID() ProfileID
	EmailAddress() string
	Seed() Seed
	isIdentity()
}

// LocalCredential is a roster account of the local backend.
type LocalCredential struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	PhotoURL     string
}

func (c LocalCredential) ProfileID() ProfileID { return ProfileID(strconv.FormatInt(c.ID, 10)) }
func (c LocalCredential) EmailAddress() string { return c.Email }
func (c LocalCredential) Seed() Seed           { return Seed{Name: c.Name, PhotoURL: c.PhotoURL} }
func (LocalCredential) isIdentity()            {}

// RemoteIdentity is an account owned by the identity gateway.
type RemoteIdentity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

func (r RemoteIdentity) ProfileID() ProfileID { return ProfileID(r.UID) }
func (r RemoteIdentity) EmailAddress() string { return r.Email }
func (r RemoteIdentity) Seed() Seed           { return Seed{Name: r.DisplayName, PhotoURL: r.PhotoURL} }
func (RemoteIdentity) isIdentity()            {}
