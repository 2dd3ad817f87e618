package model

const (
	RequirementModule   = "module"
	RequirementCategory = "category"
	RequirementExercise = "exercise"
)

// swagger:model Threshold
type Threshold struct {
	BaseModel

	CourseInstanceID    uint   `gorm:"index;type:bigint unsigned" json:"courseInstanceId"`
	Name                string `gorm:"size:255;not null" json:"name"`
	ConsumeHarderPoints bool   `gorm:"default:false" json:"consumeHarderPoints"`

	Requirements []ThresholdRequirement `gorm:"foreignKey:ThresholdID" json:"requirements"`
	Points       []ThresholdPoints      `gorm:"foreignKey:ThresholdID" json:"points"`
}

func (Threshold) TableName() string {
	return "thresholds"
}

// ThresholdRequirement 必须已通过的模块、分类或练习
type ThresholdRequirement struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ThresholdID uint   `gorm:"index;type:bigint unsigned" json:"thresholdId"`
	Kind        string `gorm:"size:16;not null" json:"kind"`
	TargetID    uint   `gorm:"type:bigint unsigned" json:"targetId"`
}

func (ThresholdRequirement) TableName() string {
	return "threshold_requirements"
}

// ThresholdPoints 按难度划分的分数下限，Order 越小难度越低
type ThresholdPoints struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ThresholdID uint   `gorm:"index;type:bigint unsigned" json:"thresholdId"`
	Limit       int    `gorm:"column:limit;not null" json:"limit"`
	Difficulty  string `gorm:"size:32" json:"difficulty"`
	Order       int    `gorm:"column:order;default:1" json:"order"`
}

func (ThresholdPoints) TableName() string {
	return "threshold_points"
}
