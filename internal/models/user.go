package models

import "time"

// User is a local identity-provider account. UID is the stable identifier
// carried in tokens and matched by ownership rules; it never changes after
// sign-up.
type User struct {
	UID          string    `bson:"uid" json:"uid"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash []byte    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Identity is the authentication state handed to the document layer and to
// auth-state subscribers. A nil *Identity means signed out.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
