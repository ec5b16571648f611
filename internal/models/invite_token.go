package models

import "time"

// InviteToken is a bearer capability granting one-time enrollment into an
// academy with a pre-assigned role. Unlike OTP codes, the token itself is the
// lookup key: possession equals authorization to view or accept the invite.
//
// UsedAt is set at most once; an invite with UsedAt != nil or a past
// ExpiresAt is permanently inert.
type InviteToken struct {
	BaseModel

	Token         string     `gorm:"uniqueIndex;not null" json:"-"`
	AcademyNumber int64      `gorm:"not null;index" json:"academy_number"`
	Email         string     `gorm:"not null;index" json:"email"`
	Role          string     `gorm:"not null" json:"role"`
	ExpiresAt     time.Time  `gorm:"index" json:"expires_at"`
	UsedAt        *time.Time `json:"used_at"`
}
