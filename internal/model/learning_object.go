package model

const (
	ObjectStatusReady         = "ready"
	ObjectStatusUnlisted      = "unlisted"
	ObjectStatusEnrollment    = "enrollment"
	ObjectStatusEnrollmentExt = "enrollment_ext"
	ObjectStatusHidden        = "hidden"
	ObjectStatusMaintenance   = "maintenance"
)

const (
	AudienceAll      = "all"
	AudienceInternal = "internal"
	AudienceExternal = "external"
)

const (
	GradingModeBest = "best"
	GradingModeLast = "last"
)

const (
	RevealImmediate = "immediate"
	RevealDeadline  = "deadline"
	RevealManual    = "manual"
)

// swagger:model LearningObject
// 章节或练习；Submittable 为 true 时是可评分的练习
type LearningObject struct {
	BaseModel

	ModuleID   uint  `gorm:"index;type:bigint unsigned" json:"moduleId"`
	ParentID   *uint `gorm:"index;type:bigint unsigned" json:"parentId,omitempty"`
	CategoryID uint  `gorm:"index;type:bigint unsigned" json:"categoryId"`
	Order      int   `gorm:"column:order;default:1" json:"order"`

	Status   string `gorm:"size:32;default:'ready'" json:"status"`
	Audience string `gorm:"size:32;default:'all'" json:"audience"`
	Name     string `gorm:"size:255;not null" json:"name"`
	URL      string `gorm:"size:255;not null" json:"url"`

	Submittable           bool   `gorm:"default:false" json:"submittable"`
	MaxPoints             int    `gorm:"default:100" json:"maxPoints"`
	PointsToPass          int    `gorm:"default:0" json:"pointsToPass"`
	Difficulty            string `gorm:"size:32" json:"difficulty"`
	MinGroupSize          int    `gorm:"default:1" json:"minGroupSize"`
	MaxGroupSize          int    `gorm:"default:1" json:"maxGroupSize"`
	MaxSubmissions        int    `gorm:"default:10" json:"maxSubmissions"`
	AllowAssistantViewing bool   `gorm:"default:true" json:"allowAssistantViewing"`
	GradingMode           string `gorm:"size:16;default:'best'" json:"gradingMode"`
	RevealRule            string `gorm:"size:16;default:'immediate'" json:"revealRule"`
	FeedbackRevealed      bool   `gorm:"default:false" json:"feedbackRevealed"` // RevealManual 时由教师手动公开
}

func (LearningObject) TableName() string {
	return "learning_objects"
}

const (
	CategoryStatusReady   = "ready"
	CategoryStatusNoTotal = "nototal"
	CategoryStatusHidden  = "hidden"
)

// swagger:model Category
type Category struct {
	BaseModel

	CourseInstanceID        uint   `gorm:"index;type:bigint unsigned" json:"courseInstanceId"`
	Name                    string `gorm:"size:255;not null" json:"name"`
	Status                  string `gorm:"size:32;default:'ready'" json:"status"`
	PointsToPass            int    `gorm:"default:0" json:"pointsToPass"`
	ConfirmTheLevel         bool   `gorm:"default:false" json:"confirmTheLevel"`
	AcceptUnofficialSubmits bool   `gorm:"default:false" json:"acceptUnofficialSubmits"`
}

func (Category) TableName() string {
	return "learning_object_categories"
}
