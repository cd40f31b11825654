package auth

import (
	"time"
	// Zone names are validated at signup, so the binary carries its own database.
	_ "time/tzdata"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TZContinent  string    `json:"tzContinent"`
	TZCity       string    `json:"tzCity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Timezone returns the IANA name, e.g. "Europe/Paris".
func (u User) Timezone() string {
	return u.TZContinent + "/" + u.TZCity
}

// Location loads the user's zone, falling back to UTC when the name is no
// longer known to the system database.
func (u User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone())
	if err != nil {
		return time.UTC
	}
	return loc
}

type Session struct {
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Continents are the first path segment of the IANA zones offered at signup.
var Continents = []string{
	"Africa", "America", "Antarctica", "Asia", "Atlantic",
	"Australia", "Europe", "Indian", "Pacific",
}
