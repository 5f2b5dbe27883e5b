package domain

import "time"

// Token is an issued bearer token and the claims it carries.
type Token struct {
	Value     string
	UserID    string
	Role      Role
	ExpiresAt time.Time
}
