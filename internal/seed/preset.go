package seed

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"campusqa/internal/models"
	"campusqa/internal/service"
	"campusqa/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var builtInPresets embed.FS

// Preset is a hand-written population loaded from YAML. Students are
// referenced by key everywhere else in the file.
type Preset struct {
	Name      string           `yaml:"name"`
	Students  []PresetStudent  `yaml:"students"`
	Questions []PresetQuestion `yaml:"questions"`
	Messages  []PresetMessage  `yaml:"messages"`
}

type PresetStudent struct {
	Key        string   `yaml:"key"`
	Name       string   `yaml:"name"`
	Department string   `yaml:"department"`
	Year       int      `yaml:"year"`
	RollNumber string   `yaml:"rollNumber"`
	Email      string   `yaml:"email"`
	Skills     []string `yaml:"skills"`
	Experience string   `yaml:"experience"`
	Joined     *bool    `yaml:"joined"`
}

type PresetQuestion struct {
	Author      string         `yaml:"author"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	Tags        []string       `yaml:"tags"`
	Answers     []PresetAnswer `yaml:"answers"`
}

type PresetAnswer struct {
	Author   string   `yaml:"author"`
	Body     string   `yaml:"body"`
	Accepted bool     `yaml:"accepted"`
	LikedBy  []string `yaml:"likedBy"`
}

type PresetMessage struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Content string `yaml:"content"`
}

// ParsePreset decodes and checks a preset document.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPreset resolves nameOrPath against the built-in presets first, then
// the filesystem.
func LoadPreset(nameOrPath string) (*Preset, error) {
	if data, err := builtInPresets.ReadFile("presets/" + strings.TrimSuffix(nameOrPath, ".yaml") + ".yaml"); err == nil {
		return ParsePreset(data)
	}
	data, err := os.ReadFile(filepath.Clean(nameOrPath))
	if err != nil {
		return nil, fmt.Errorf("read preset %q: %w", nameOrPath, err)
	}
	return ParsePreset(data)
}

func (p *Preset) check() error {
	keys := make(map[string]bool, len(p.Students))
	for i, st := range p.Students {
		if st.Key == "" {
			return fmt.Errorf("students[%d]: key is required", i)
		}
		if keys[st.Key] {
			return fmt.Errorf("students[%d]: duplicate key %q", i, st.Key)
		}
		keys[st.Key] = true
	}

	known := func(where, key string) error {
		if !keys[key] {
			return fmt.Errorf("%s: unknown student %q", where, key)
		}
		return nil
	}
	for i, q := range p.Questions {
		if err := known(fmt.Sprintf("questions[%d].author", i), q.Author); err != nil {
			return err
		}
		accepted := 0
		for j, a := range q.Answers {
			if err := known(fmt.Sprintf("questions[%d].answers[%d].author", i, j), a.Author); err != nil {
				return err
			}
			for _, liker := range a.LikedBy {
				if err := known(fmt.Sprintf("questions[%d].answers[%d].likedBy", i, j), liker); err != nil {
					return err
				}
			}
			if a.Accepted {
				accepted++
			}
		}
		if accepted > 1 {
			return fmt.Errorf("questions[%d]: at most one answer can be accepted", i)
		}
	}
	for i, m := range p.Messages {
		if err := known(fmt.Sprintf("messages[%d].from", i), m.From); err != nil {
			return err
		}
		if err := known(fmt.Sprintf("messages[%d].to", i), m.To); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPreset writes the preset's students and replays its questions,
// answers, likes and messages through the services.
func (s *Seeder) ApplyPreset(ctx context.Context, p *Preset) (Summary, error) {
	var sum Summary

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	byKey := make(map[string]*models.User, len(p.Students))
	for _, st := range p.Students {
		u, err := s.factory.CreateStudent(func(u *models.User) {
			u.Name = st.Name
			if st.Department != "" {
				u.Department = st.Department
			}
			if st.Year != 0 {
				u.Year = st.Year
			}
			if st.RollNumber != "" {
				u.RollNumber = strings.ToUpper(st.RollNumber)
			}
			if st.Email != "" {
				u.Email = validation.NormalizeEmail(st.Email)
			}
			if st.Skills != nil {
				u.Skills = st.Skills
			}
			if st.Experience != "" {
				u.Experience = st.Experience
			}
			if st.Joined != nil {
				u.JoinedCommunity = *st.Joined
			}
		})
		if err != nil {
			return sum, fmt.Errorf("create student %q: %w", st.Key, err)
		}
		byKey[st.Key] = u
		sum.Students++
	}

	for _, pq := range p.Questions {
		asker := byKey[pq.Author]
		q, err := s.questions.Ask(ctx, asker.ID, service.AskInput{
			Title:       pq.Title,
			Description: pq.Description,
			Category:    pq.Category,
			Tags:        pq.Tags,
		})
		if err != nil {
			return sum, fmt.Errorf("ask %q: %w", pq.Title, err)
		}
		sum.Questions++

		for _, pa := range pq.Answers {
			a, err := s.questions.Answer(ctx, byKey[pa.Author].ID, q.ID, service.AnswerInput{Body: pa.Body})
			if err != nil {
				return sum, fmt.Errorf("answer %q: %w", pq.Title, err)
			}
			sum.Answers++

			if pa.Accepted {
				if err := s.questions.Accept(ctx, asker.ID, q.ID, a.ID); err != nil {
					return sum, fmt.Errorf("accept on %q: %w", pq.Title, err)
				}
				sum.Accepted++
			}
			for _, liker := range pa.LikedBy {
				if _, err := s.questions.Like(ctx, byKey[liker].ID, q.ID, a.ID); err != nil {
					return sum, fmt.Errorf("like on %q: %w", pq.Title, err)
				}
				sum.Likes++
			}
		}
	}

	for _, pm := range p.Messages {
		if _, err := s.messages.Send(ctx, byKey[pm.From].ID, service.SendMessageInput{
			RecipientID: byKey[pm.To].ID,
			Content:     pm.Content,
		}); err != nil {
			return sum, fmt.Errorf("message %s->%s: %w", pm.From, pm.To, err)
		}
		sum.Messages++
	}

	return sum, nil
}
