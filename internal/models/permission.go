package models

// Permission mirrors a registered permission. The ID is the dotted name, e.g. "webtoons.edit".
type Permission struct {
	BaseModel

	Category    string `gorm:"size:32;not null;index" json:"category"`
	Description string `json:"description"`
	DependsOn   string `gorm:"type:text" json:"depends_on"`
	Implies     string `gorm:"type:text" json:"implies"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
