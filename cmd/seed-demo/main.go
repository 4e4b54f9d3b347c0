package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/codeclass/codeclass-backend/internal/config"
	"github.com/codeclass/codeclass-backend/internal/database"
	"github.com/codeclass/codeclass-backend/internal/logger"
	"github.com/codeclass/codeclass-backend/internal/model"
	"github.com/codeclass/codeclass-backend/internal/repository"
)

// Seeds a demo instructor, a batch of learners and one published Python
// assessment so a fresh install can be exercised end to end.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	learnerRepo := repository.NewLearnerRepository(pool)
	instructorRepo := repository.NewInstructorRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte("demopass"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	fmt.Println("=== Seeding Demo Data ===")

	instructor := &model.Instructor{
		Email:        "instructor@example.com",
		Name:         "Demo Instructor",
		PasswordHash: string(hash),
	}
	if err := instructorRepo.Create(ctx, instructor); err != nil {
		log.Fatal().Err(err).Msg("Failed to create instructor")
	}
	fmt.Printf("Created instructor with ID: %d\n", instructor.ID)

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	}

	successCount := 0
	for i, name := range names {
		learner := &model.Learner{
			Username:     fmt.Sprintf("learner%d", i+1),
			Name:         name,
			PasswordHash: string(hash),
		}
		if err := learnerRepo.Create(ctx, learner); err != nil {
			fmt.Printf("Error creating learner %s: %v\n", learner.Username, err)
		} else {
			successCount++
		}
	}
	fmt.Printf("Created %d/%d learners\n", successCount, len(names))

	assessment := &model.Assessment{
		Title:           "Python Basics",
		AuthorID:        instructor.ID,
		Language:        "python",
		LanguageVersion: "3.10.0",
		DurationMinutes: 30,
		Status:          model.AssessmentStatusDraft,
	}
	if err := assessmentRepo.Create(ctx, assessment); err != nil {
		log.Fatal().Err(err).Msg("Failed to create assessment")
	}
	fmt.Printf("Created assessment: %s\n", assessment.ID)

	questions := []*model.Question{
		{
			AssessmentID:   assessment.ID,
			Text:           "Write a program that prints the sum of 40 and 2.",
			Kind:           model.AnswerKindProgramming,
			Points:         10,
			OrderNum:       1,
			ExpectedOutput: "42",
			StarterCode:    "# print the sum here\n",
		},
		{
			AssessmentID:       assessment.ID,
			Text:               "Which keyword defines a function in Python?",
			Kind:               model.AnswerKindChoice,
			Points:             5,
			OrderNum:           2,
			Options:            map[string]string{"a": "func", "b": "def", "c": "fn", "d": "lambda"},
			CorrectOptionValue: "def",
		},
		{
			AssessmentID:   assessment.ID,
			Text:           "Write a program that prints the first five even numbers, one per line.",
			Kind:           model.AnswerKindProgramming,
			Points:         15,
			OrderNum:       3,
			ExpectedOutput: "2\n4\n6\n8\n10",
			StarterCode:    "",
		},
	}
	for _, q := range questions {
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Str("question", q.Text).Msg("Failed to create question")
		}
	}
	fmt.Printf("Created %d questions\n", len(questions))

	// Publish directly; the server prewarms caches for published
	// assessments at startup.
	if _, err := assessmentRepo.UpdateStatus(ctx, assessment.ID,
		model.AssessmentStatusDraft, model.AssessmentStatusPublished); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish assessment")
	}

	fmt.Println("\nSeed completed! Login with instructor@example.com or learner1 (password: demopass).")
}
