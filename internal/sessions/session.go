package sessions

import "time"

// Session is one refresh session for a signed-in identity. Deleting every
// session of a uid signs that identity out everywhere.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	UID          string    `bson:"uid" json:"uid"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
