package models

import "time"

// AccountVerification is the single verification record of a user. The code
// is reused for both e-mail verification and password reset.
type AccountVerification struct {
	UserID         string
	Code           string
	CheckedOK      bool
	ResetRequested bool
	IssuedAt       time.Time
}
