package models

import "time"

// ReputationEventKind names a ledger event.
type ReputationEventKind string

const (
	EventQuestionAsked    ReputationEventKind = "question_asked"
	EventAnswerPosted     ReputationEventKind = "answer_posted"
	EventAnswerAccepted   ReputationEventKind = "answer_accepted"
	EventAnswerUnaccepted ReputationEventKind = "answer_unaccepted"
	EventAnswerLiked      ReputationEventKind = "answer_liked"
	EventAnswerUnliked    ReputationEventKind = "answer_unliked"
)

// ReputationEvent is one append-only ledger row. UserID is the beneficiary
// whose projection columns move by the deltas; ActorID triggered the event.
type ReputationEvent struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	UserID            uint                `gorm:"not null;index" json:"userId"`
	ActorID           uint                `gorm:"not null" json:"actorId"`
	Kind              ReputationEventKind `gorm:"size:32;not null;index" json:"kind"`
	ReputationDelta   int                 `gorm:"not null" json:"reputationDelta"`
	ContributionDelta int                 `gorm:"not null;default:0" json:"contributionDelta"`
	AcceptedDelta     int                 `gorm:"not null;default:0" json:"acceptedDelta"`
	QuestionID        *uint               `gorm:"index" json:"questionId,omitempty"`
	AnswerID          *uint               `gorm:"index" json:"answerId,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}
