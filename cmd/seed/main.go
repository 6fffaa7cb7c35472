package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"eduplatform/internal/app"
	"eduplatform/internal/config"
	"eduplatform/internal/logger"
	"eduplatform/internal/model"
	"eduplatform/internal/service"
)

func main() {
	var (
		configFile  string
		teacherName string
		studentName string
	)
	pflag.StringVar(&configFile, "config", "", "path to a config file")
	pflag.StringVar(&teacherName, "teacher", "teacher", "username of the seeded teacher")
	pflag.StringVar(&studentName, "student", "student", "username of the seeded student")
	pflag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, logger.Options{Level: cfg.LogLevel, Format: "text"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seed(ctx, cfg, log, teacherName, studentName); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config, log *slog.Logger, teacherName, studentName string) error {
	stores, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	teacher := &model.User{ID: "u-teacher", Username: teacherName, Role: model.RoleTeacher}
	student := &model.User{ID: "u-student", Username: studentName, Role: model.RoleStudent}
	for _, u := range []*model.User{teacher, student} {
		if err := stores.UserRepo.Upsert(ctx, u); err != nil {
			return err
		}
	}

	teacherID := model.Identity{ID: teacher.ID, Role: teacher.Role}
	validator := service.NewValidator()
	testSvc := service.NewTestService(stores.TestRepo, validator, log)
	meetingSvc := service.NewMeetingService(stores.MeetingRepo, stores.InviteRepo, validator, cfg.ICEServers, log)

	test, err := testSvc.Create(ctx, teacherID, service.TestInput{
		Title:           "Geography basics",
		Description:     "Capitals and continents",
		AttemptsAllowed: 3,
		Visibility:      model.VisibilityPublic,
		Questions: []model.Question{
			{
				Text: "What is the capital of France?",
				Type: model.QuestionTypeSingle,
				Options: []model.Option{
					{Text: "Paris", IsCorrect: true},
					{Text: "Lyon"},
					{Text: "Marseille"},
				},
				TimeLimit: 30,
			},
			{
				Text: "Which of these are in Europe?",
				Type: model.QuestionTypeMultiple,
				Options: []model.Option{
					{Text: "Spain", IsCorrect: true},
					{Text: "Norway", IsCorrect: true},
					{Text: "Peru"},
				},
				TimeLimit: 45,
			},
			{
				Text:          "Name the largest ocean.",
				Type:          model.QuestionTypeText,
				CorrectAnswer: "Pacific",
				TimeLimit:     30,
			},
		},
	})
	if err != nil {
		return err
	}

	meeting, err := meetingSvc.Create(ctx, teacherID, "Geography review")
	if err != nil {
		return err
	}
	invite, err := meetingSvc.CreateInvite(ctx, teacherID, meeting.ID, 30)
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	teacherToken, err := authSvc.IssueToken(teacherID)
	if err != nil {
		return err
	}
	studentToken, err := authSvc.IssueToken(model.Identity{ID: student.ID, Role: student.Role})
	if err != nil {
		return err
	}

	fmt.Printf("Seeded test %s (%q)\n", test.ID, test.Title)
	fmt.Printf("Seeded meeting %s, invite %s\n", meeting.ID, invite.ID)
	fmt.Printf("Teacher token: %s\n", teacherToken)
	fmt.Printf("Student token: %s\n", studentToken)
	return nil
}
