package server

import (
	"time"

	"campusqa/internal/models"
	"campusqa/internal/service"
)

// userProfile is the caller's own profile. Secrets never leave the server.
type userProfile struct {
	ID                   uint       `json:"id"`
	Name                 string     `json:"name"`
	Department           string     `json:"department"`
	Year                 int        `json:"year"`
	RollNumber           string     `json:"rollNumber"`
	Email                string     `json:"email"`
	MobileNumber         string     `json:"mobileNumber"`
	Skills               []string   `json:"skills"`
	Experience           string     `json:"experience"`
	GithubURL            string     `json:"githubUrl"`
	LinkedinURL          string     `json:"linkedinUrl"`
	JoinedCommunity      bool       `json:"joinedCommunity"`
	ReputationScore      int        `json:"reputationScore"`
	ContributionCount    int        `json:"contributionCount"`
	AcceptedAnswersCount int        `json:"acceptedAnswersCount"`
	LastActiveAt         *time.Time `json:"lastActiveAt,omitempty"`
}

func newUserProfile(u *models.User) userProfile {
	return userProfile{
		ID:                   u.ID,
		Name:                 u.Name,
		Department:           u.Department,
		Year:                 u.Year,
		RollNumber:           u.RollNumber,
		Email:                u.Email,
		MobileNumber:         u.MobileNumber,
		Skills:               nonNil(u.Skills),
		Experience:           u.Experience,
		GithubURL:            u.GithubURL,
		LinkedinURL:          u.LinkedinURL,
		JoinedCommunity:      u.JoinedCommunity,
		ReputationScore:      u.ReputationScore,
		ContributionCount:    u.ContributionCount,
		AcceptedAnswersCount: u.AcceptedAnswersCount,
		LastActiveAt:         u.LastActiveAt,
	}
}

// signupSummary is returned by signup; the client logs in separately.
type signupSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Year       int    `json:"year"`
	Email      string `json:"email"`
	RollNumber string `json:"rollNumber"`
}

type authorSummary struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Year            int    `json:"year"`
	ReputationScore *int   `json:"reputationScore,omitempty"`
}

func newAuthorSummary(u *models.User, withReputation bool) *authorSummary {
	if u == nil {
		return nil
	}
	a := &authorSummary{ID: u.ID, Name: u.Name, Year: u.Year}
	if withReputation {
		score := u.ReputationScore
		a.ReputationScore = &score
	}
	return a
}

const descriptionPreviewRunes = 160

type questionListItem struct {
	ID                 uint           `json:"id"`
	Title              string         `json:"title"`
	DescriptionPreview string         `json:"descriptionPreview"`
	Category           string         `json:"category"`
	Tags               []string       `json:"tags"`
	CreatedAt          time.Time      `json:"createdAt"`
	AnswersCount       int            `json:"answersCount"`
	HasAcceptedAnswer  bool           `json:"hasAcceptedAnswer"`
	LikesCount         int            `json:"likesCount"`
	Author             *authorSummary `json:"author"`
}

func newQuestionListItem(q *models.Question) questionListItem {
	return questionListItem{
		ID:                 q.ID,
		Title:              q.Title,
		DescriptionPreview: preview(q.Description, descriptionPreviewRunes),
		Category:           q.Category,
		Tags:               nonNil(q.Tags),
		CreatedAt:          q.CreatedAt,
		AnswersCount:       q.AnswersCount,
		HasAcceptedAnswer:  q.HasAcceptedAnswer(),
		LikesCount:         q.LikesCount,
		Author:             newAuthorSummary(q.Author, false),
	}
}

type questionDetail struct {
	ID                uint           `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Category          string         `json:"category"`
	Tags              []string       `json:"tags"`
	CreatedAt         time.Time      `json:"createdAt"`
	AnswersCount      int            `json:"answersCount"`
	HasAcceptedAnswer bool           `json:"hasAcceptedAnswer"`
	AcceptedAnswerID  *uint          `json:"acceptedAnswerId"`
	LikesCount        int            `json:"likesCount"`
	Author            *authorSummary `json:"author"`
}

type answerView struct {
	ID         uint           `json:"id"`
	Body       string         `json:"body"`
	IsAccepted bool           `json:"isAccepted"`
	LikesCount int            `json:"likesCount"`
	LikedByMe  bool           `json:"likedByMe"`
	CreatedAt  time.Time      `json:"createdAt"`
	Author     *authorSummary `json:"author"`
}

func newQuestionDetail(d *service.QuestionDetail) (questionDetail, []answerView) {
	q := d.Question
	detail := questionDetail{
		ID:                q.ID,
		Title:             q.Title,
		Description:       q.Description,
		Category:          q.Category,
		Tags:              nonNil(q.Tags),
		CreatedAt:         q.CreatedAt,
		AnswersCount:      q.AnswersCount,
		HasAcceptedAnswer: q.HasAcceptedAnswer(),
		AcceptedAnswerID:  q.AcceptedAnswerID,
		LikesCount:        q.LikesCount,
		Author:            newAuthorSummary(q.Author, false),
	}

	answers := make([]answerView, 0, len(d.Answers))
	for i := range d.Answers {
		a := &d.Answers[i]
		answers = append(answers, answerView{
			ID:         a.ID,
			Body:       a.Body,
			IsAccepted: a.IsAccepted,
			LikesCount: a.LikesCount,
			LikedByMe:  d.LikedByViewer[a.ID],
			CreatedAt:  a.CreatedAt,
			Author:     newAuthorSummary(a.Author, true),
		})
	}
	return detail, answers
}

// partnerView is the other side of a conversation.
type partnerView struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Year       int      `json:"year"`
	Skills     []string `json:"skills"`
}

func newPartnerView(u *models.User) partnerView {
	return partnerView{
		ID:         u.ID,
		Name:       u.Name,
		Department: u.Department,
		Year:       u.Year,
		Skills:     nonNil(u.Skills),
	}
}

type conversationView struct {
	partnerView
	UnreadCount int64           `json:"unreadCount"`
	LastMessage *models.Message `json:"lastMessage"`
}

type reputationEventView struct {
	Kind              models.ReputationEventKind `json:"kind"`
	ReputationDelta   int                        `json:"reputationDelta"`
	ContributionDelta int                        `json:"contributionDelta"`
	AcceptedDelta     int                        `json:"acceptedDelta"`
	QuestionID        *uint                      `json:"questionId"`
	AnswerID          *uint                      `json:"answerId"`
	CreatedAt         time.Time                  `json:"createdAt"`
}

type tagView struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usageCount"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
