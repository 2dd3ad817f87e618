package model

import "time"

const (
	SubmissionStatusInitialized = "initialized"
	SubmissionStatusWaiting     = "waiting"
	SubmissionStatusReady       = "ready"
	SubmissionStatusError       = "error"
	SubmissionStatusRejected    = "rejected"
	SubmissionStatusUnofficial  = "unofficial"
)

// swagger:model Submission
type Submission struct {
	BaseModel

	ExerciseID     uint      `gorm:"index;type:bigint unsigned" json:"exerciseId"`
	Grade          int       `gorm:"default:0" json:"grade"`
	Status         string    `gorm:"size:32;default:'initialized'" json:"status"`
	SubmissionTime time.Time `gorm:"index" json:"submissionTime"`

	Submitters []SubmissionMember `gorm:"foreignKey:SubmissionID" json:"submitters"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionMember 小组提交的成员
type SubmissionMember struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID uint `gorm:"index;type:bigint unsigned" json:"submissionId"`
	StudentID    uint `gorm:"index;type:bigint unsigned" json:"studentId"`
}

func (SubmissionMember) TableName() string {
	return "submission_members"
}
