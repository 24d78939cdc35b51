// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"sync"

	"campusqa/internal/models"
	"campusqa/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded student.
const DefaultPassword = "Campus@123"

var (
	departments = []string{"CSE", "ECE", "EEE", "MECH", "CIVIL", "IT"}

	campusTags = []string{
		"dbms", "os", "dsa", "java", "python", "placements", "internship",
		"viva", "lab-record", "gate", "cn", "ml", "resume", "aptitude", "nss",
	}

	campusSkills = []string{
		"Go", "Java", "Python", "SQL", "React", "C++", "Linux", "Docker",
		"Figma", "Public Speaking", "Arduino", "MATLAB",
	}
)

// Factory builds domain entities. Students are written directly; questions
// and answers are only built here and persisted through the services so the
// reputation ledger stays consistent.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker

	hashOnce sync.Once
	hash     string
	hashErr  error

	// seq keeps roll numbers and emails unique within one run
	seq int
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed produces different data on every run.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, opts: opts.withDefaults(), faker: gofakeit.New(opts.RandSeed)}
}

func (f *Factory) passwordHash() (string, error) {
	f.hashOnce.Do(func() {
		cost := bcrypt.DefaultCost
		if f.opts.FastHash {
			cost = bcrypt.MinCost
		}
		raw, err := bcrypt.GenerateFromPassword([]byte(f.opts.Password), cost)
		f.hash, f.hashErr = string(raw), err
	})
	return f.hash, f.hashErr
}

// BuildStudent returns an unsaved student who has joined the community.
func (f *Factory) BuildStudent(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	dept := f.faker.RandomString(departments)
	year := f.faker.Number(1, 4)

	u := &models.User{
		Name:            first + " " + last,
		Department:      dept,
		Year:            year,
		RollNumber:      fmt.Sprintf("%02d%s%03d", 24-year, dept, f.seq),
		Email:           fmt.Sprintf("%s.%s%d@campus.edu", strings.ToLower(first), strings.ToLower(last), f.seq),
		MobileNumber:    f.faker.Numerify("9#########"),
		PasswordHash:    hash,
		Skills:          f.pick(campusSkills, 0, 4),
		Experience:      f.faker.Sentence(12),
		JoinedCommunity: true,
	}
	for _, override := range overrides {
		override(u)
	}
	return u, nil
}

// CreateStudent builds and persists a student.
func (f *Factory) CreateStudent(overrides ...func(*models.User)) (*models.User, error) {
	u, err := f.BuildStudent(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// BuildQuestion returns an ask request that passes validation.
func (f *Factory) BuildQuestion() service.AskInput {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(5, 10)), ".") + "?"
	if len(title) > 160 {
		title = title[:159] + "?"
	}
	return service.AskInput{
		Title:       title,
		Description: f.faker.Paragraph(1, f.faker.Number(2, 4), 12, " "),
		Category:    f.faker.RandomString(models.Categories),
		Tags:        f.pick(campusTags, 1, 3),
	}
}

// BuildAnswer returns an answer request that passes validation.
func (f *Factory) BuildAnswer() service.AnswerInput {
	return service.AnswerInput{Body: f.faker.Paragraph(1, f.faker.Number(1, 3), 10, " ")}
}

// BuildMessage returns a short direct message.
func (f *Factory) BuildMessage() string {
	return f.faker.Sentence(f.faker.Number(3, 12))
}

// pick returns between lo and hi distinct entries of values.
func (f *Factory) pick(values []string, lo, hi int) []string {
	n := f.faker.Number(lo, hi)
	shuffled := append([]string(nil), values...)
	f.faker.ShuffleStrings(shuffled)
	return shuffled[:n]
}

// chance reports true with probability p.
func (f *Factory) chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}
