package models

// User is a principal known to the platform. Identity itself is owned by the
// external session service; only the role reference matters here.
type User struct {
	BaseModel

	Username    string  `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email       string  `gorm:"size:255" json:"email"`
	DisplayName string  `gorm:"size:128" json:"display_name"`
	RoleID      *string `gorm:"size:64;index" json:"role_id"`
	Role        *Role   `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"role,omitempty"`

	Memberships []GroupMember `gorm:"foreignKey:UserID" json:"-"`
}
