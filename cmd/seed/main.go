// Command main runs the database seeder for CampusQA.
package main

import (
	"context"
	"flag"
	"log"

	"campusqa/internal/config"
	"campusqa/internal/database"
	"campusqa/internal/seed"
)

func main() {
	students := flag.Int("students", 30, "Number of students to create")
	questions := flag.Int("questions", 60, "Number of questions to ask")
	maxAnswers := flag.Int("max-answers", 4, "Upper bound of answers per question")
	messages := flag.Int("messages", 40, "Number of direct messages to send")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a YAML preset (built-in name such as demo, or a file path)")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Students:    *students,
		Questions:   *questions,
		MaxAnswers:  *maxAnswers,
		Messages:    *messages,
		RandSeed:    *randSeed,
		ShouldClean: *shouldClean,
	})

	var sum seed.Summary
	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring count flags)", *preset)
		p, err := seed.LoadPreset(*preset)
		if err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
		sum, err = s.ApplyPreset(ctx, p)
		if err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
	} else {
		log.Printf("Target: %d students, %d questions, clean=%v", *students, *questions, *shouldClean)
		sum, err = s.Populate(ctx)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Seeded %d students, %d questions, %d answers (%d accepted), %d likes, %d messages",
		sum.Students, sum.Questions, sum.Answers, sum.Accepted, sum.Likes, sum.Messages)
	log.Printf("All seeded students share the password: %s", seed.DefaultPassword)
}
