package models

import "time"

// Question categories. The set is closed.
const (
	CategorySubjects   = "Subjects"
	CategoryPlacements = "Placements"
	CategoryExams      = "Exams"
	CategoryLabs       = "Labs"
	CategoryProjects   = "Projects"
	CategoryActivities = "NSS / Activities"
)

// Categories lists every accepted question category in display order.
var Categories = []string{
	CategorySubjects,
	CategoryPlacements,
	CategoryExams,
	CategoryLabs,
	CategoryProjects,
	CategoryActivities,
}

// IsValidCategory reports whether c is one of Categories.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Question is a community question. AcceptedAnswerID is moved only by the
// accept transition and always matches the single answer with IsAccepted set.
type Question struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:160;not null" json:"title"`
	Description      string    `gorm:"type:text;not null" json:"description"`
	Category         string    `gorm:"size:32;not null;index" json:"category"`
	Tags             []string  `gorm:"serializer:json;type:text" json:"tags"`
	AuthorID         uint      `gorm:"not null;index" json:"authorId"`
	Author           *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	AnswersCount     int       `gorm:"not null;default:0" json:"answersCount"`
	AcceptedAnswerID *uint     `json:"acceptedAnswerId"`
	LikesCount       int       `gorm:"not null;default:0" json:"likesCount"`
	CreatedAt        time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasAcceptedAnswer reports whether an answer is currently accepted.
func (q *Question) HasAcceptedAnswer() bool {
	return q.AcceptedAnswerID != nil
}
