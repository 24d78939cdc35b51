package models

import "time"

// Answer belongs to a question. At most one answer per question has IsAccepted set.
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"questionId"`
	Question   *Question `gorm:"foreignKey:QuestionID" json:"-"`
	AuthorID   uint      `gorm:"not null;index" json:"authorId"`
	Author     *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	IsAccepted bool      `gorm:"not null;default:false" json:"isAccepted"`
	LikesCount int       `gorm:"not null;default:0" json:"likesCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AnswerLike records that a user liked an answer. The unique index on
// (answer_id, user_id) is the only guard against double likes.
type AnswerLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AnswerID  uint      `gorm:"not null;uniqueIndex:idx_answer_likes_answer_user,priority:1" json:"answerId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_answer_likes_answer_user,priority:2;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag is an append-only usage counter keyed by lower-case name.
type Tag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:24;not null;uniqueIndex" json:"name"`
	UsageCount int       `gorm:"not null;default:0" json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
