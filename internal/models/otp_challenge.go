package models

import "time"

// OtpChallenge stores a hashed one-time code issued to verify control of an
// email address. The plaintext code is never persisted; CodeHash is the only
// stored secret material.
//
// Once Consumed is true the row is inert: no mutation besides reads is
// permitted. Attempts only increases and ExpiresAt is fixed at creation.
type OtpChallenge struct {
	BaseModel

	Email     string    `gorm:"not null;index:idx_otp_email_purpose" json:"email"`
	Purpose   string    `gorm:"not null;index:idx_otp_email_purpose" json:"purpose"`
	CodeHash  string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	Attempts  int       `gorm:"default:0" json:"attempts"`
	Consumed  bool      `gorm:"default:false" json:"consumed"`
}
