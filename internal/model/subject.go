package model

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	UserID    string `gorm:"type:uuid;not null"                             json:"-"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Color     string `gorm:"type:varchar(20);not null"                      json:"color"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
