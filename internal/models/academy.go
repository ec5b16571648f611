package models

// Academy is an isolated organizational scope (tenant). Users and invites are
// bound to exactly one academy via its public number.
type Academy struct {
	BaseModel

	AcademyNumber int64  `gorm:"uniqueIndex;not null" json:"academy_number"`
	Name          string `gorm:"not null" json:"name"`
	LogoURL       string `json:"logo_url"`
	PrimaryColor  string `json:"primary_color"`
}
