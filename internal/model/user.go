// Package model defines the data structures used throughout the application.
// These types are pure data: the rules about who may see which field live
// in the policy package.
package model

import "time"

// User represents a registered person.
//
// A User is the real identity behind every action on the platform. When a
// donor gives through an anonymous proxy, the User is still recorded as the
// creator of the order, so its personal fields (FirstName, LastName,
// Email) are redacted in some views.
//
// PasswordHash is tagged json:"-" and never leaves the server.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName"  db:"last_name"`
	Slug         string    `json:"slug"      db:"slug"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// FullName joins first and last name the way profiles are displayed.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
