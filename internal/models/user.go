package models

// User is a platform principal. UserNumber is the public identifier exposed
// through the API; Email is stored lowercase and unique.
type User struct {
	BaseModel

	UserNumber    int64  `gorm:"uniqueIndex;not null" json:"user_number"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Role          string `gorm:"not null" json:"role"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`
	AcademyNumber *int64 `gorm:"index" json:"academy_number,omitempty"`
}
