// Command main runs the database seeder for StackIt.
package main

import (
	"context"
	"flag"
	"log"

	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/middleware"
	"stackit/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 40, "Number of users to create")
	numQuestions := flag.Int("questions", 120, "Number of questions to create")
	maxAnswers := flag.Int("max-answers", 4, "Maximum answers per question")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	tagsOnly := flag.Bool("tags-only", false, "Only upsert the official tag catalogue")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	fast := flag.Bool("fast-passwords", false, "Hash the shared password with the minimum bcrypt cost")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.Configure(cfg.Env)
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *tagsOnly {
		n, err := seed.OfficialTags(ctx, db)
		if err != nil {
			log.Fatalf("Official tag seeding failed: %v", err)
		}
		log.Printf("Official tags created: %d", n)
		return
	}

	sum, err := seed.Seed(ctx, db, seed.Options{
		Users:         *numUsers,
		Questions:     *numQuestions,
		MaxAnswers:    *maxAnswers,
		Clean:         *shouldClean,
		FastPasswords: *fast,
		RandSeed:      *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d questions, %d answers, %d votes, %d accepted answers",
		sum.Users, sum.Questions, sum.Answers, sum.Votes, sum.Accepted)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
