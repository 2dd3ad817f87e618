package model

import "time"

// swagger:model CourseInstance
type CourseInstance struct {
	BaseModel

	CourseURL   string `gorm:"size:255;not null" json:"courseUrl"`
	InstanceURL string `gorm:"size:255;not null" json:"instanceUrl"`
	Name        string `gorm:"size:255" json:"name"`
}

func (CourseInstance) TableName() string {
	return "course_instances"
}

const (
	ModuleStatusReady       = "ready"
	ModuleStatusUnlisted    = "unlisted"
	ModuleStatusHidden      = "hidden"
	ModuleStatusMaintenance = "maintenance"
)

// swagger:model Module
type Module struct {
	BaseModel

	CourseInstanceID uint      `gorm:"index;type:bigint unsigned" json:"courseInstanceId"`
	Order            int       `gorm:"column:order;default:1" json:"order"`
	Status           string    `gorm:"size:32;default:'ready'" json:"status"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	URL              string    `gorm:"size:255;not null" json:"url"`
	OpeningTime      time.Time `json:"openingTime"`
	ClosingTime      time.Time `json:"closingTime"`

	LateSubmissionsAllowed bool       `gorm:"default:false" json:"lateSubmissionsAllowed"`
	LateSubmissionDeadline *time.Time `json:"lateSubmissionDeadline,omitempty"`
	LateSubmissionPenalty  float64    `gorm:"default:0.5" json:"lateSubmissionPenalty"` // 0~1，迟交扣分比例
	PointsToPass           int        `gorm:"default:0" json:"pointsToPass"`

	Requirements []ModuleRequirement `gorm:"foreignKey:ModuleID" json:"requirements"`
}

func (Module) TableName() string {
	return "course_modules"
}

// ModuleRequirement 模块开放前需要满足的阈值
type ModuleRequirement struct {
	ID          uint `gorm:"primaryKey;autoIncrement" json:"id"`
	ModuleID    uint `gorm:"index;type:bigint unsigned" json:"moduleId"`
	ThresholdID uint `gorm:"index;type:bigint unsigned" json:"thresholdId"`
}

func (ModuleRequirement) TableName() string {
	return "module_requirements"
}

// CourseContent 一次生成内容缓存所需的全部原始记录
type CourseContent struct {
	Instance        CourseInstance
	Modules         []Module
	LearningObjects []LearningObject
	Categories      []Category
}
