package models

import "time"

// User is a registered student. Reputation and counter columns are a
// projection of the reputation_events ledger.
type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"size:80;not null" json:"name"`
	Department           string     `gorm:"size:80;not null" json:"department"`
	Year                 int        `gorm:"type:smallint;not null;index" json:"year"`
	RollNumber           string     `gorm:"size:40;not null;uniqueIndex" json:"rollNumber"`
	Email                string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	MobileNumber         string     `gorm:"size:15;not null" json:"mobileNumber"`
	PasswordHash         string     `gorm:"not null" json:"-"`
	Skills               []string   `gorm:"serializer:json;type:text" json:"skills"`
	Experience           string     `gorm:"type:text" json:"experience"`
	GithubURL            string     `gorm:"size:200" json:"githubUrl"`
	LinkedinURL          string     `gorm:"size:200" json:"linkedinUrl"`
	JoinedCommunity      bool       `gorm:"not null;default:false" json:"joinedCommunity"`
	ReputationScore      int        `gorm:"not null;default:0;index" json:"reputationScore"`
	ContributionCount    int        `gorm:"not null;default:0" json:"contributionCount"`
	AcceptedAnswersCount int        `gorm:"not null;default:0" json:"acceptedAnswersCount"`
	RefreshTokenHash     *string    `json:"-"`
	RefreshTokenIssuedAt *time.Time `json:"-"`
	LastActiveAt         *time.Time `json:"lastActiveAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// HasRefreshSession reports whether a refresh token hash is currently stored.
func (u *User) HasRefreshSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}
