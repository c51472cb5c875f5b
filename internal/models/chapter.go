package models

// Chapter is one group's release of a numbered installment.
// (work_id, number, scanlation_group_id) is unique so co-releases by different
// groups coexist while one group can never publish the same number twice.
type Chapter struct {
	BaseModel

	WorkID            string  `gorm:"size:64;not null;uniqueIndex:idx_chapters_work_number_group,priority:1" json:"work_id"`
	Number            float64 `gorm:"not null;uniqueIndex:idx_chapters_work_number_group,priority:2" json:"number"`
	ScanlationGroupID string  `gorm:"size:64;not null;index;uniqueIndex:idx_chapters_work_number_group,priority:3" json:"scanlation_group_id"`
	Title             string  `gorm:"size:255" json:"title"`
	Content           string  `gorm:"type:text" json:"content"`
	Language          string  `gorm:"size:16" json:"language"`
	UploadedByID      string  `gorm:"size:64;index" json:"uploaded_by_id"`

	Work  *Work            `gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE" json:"-"`
	Group *ScanlationGroup `gorm:"foreignKey:ScanlationGroupID;constraint:OnDelete:CASCADE" json:"group,omitempty"`
}
