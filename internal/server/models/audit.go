package models

import "time"

// UserVisit records a successful sign-in.
type UserVisit struct {
	UserID    string
	VisitedAt time.Time
}

// AdminAction is an audit entry for an administrative change to a user.
type AdminAction struct {
	ID           int64
	AdminID      string
	TargetUserID string
	Action       string
	Details      string
	CreatedAt    time.Time
}
