package db

import (
	"fmt"
	"log/slog"

	"ehub/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres, migrates the schema and seeds the static
// showcase content.
func Open(dsn string, level slog.Level) (*gorm.DB, error) {
	logLevel := logger.Warn
	if level <= slog.LevelDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Discussion{},
		&models.Reply{},
		&models.DiscussionLike{},
		&models.ReplyLike{},
		&models.ServiceCard{},
		&models.Winner{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database migration completed")
	return nil
}

// Seed inserts the showcase cards and winners when their tables are empty.
func Seed(db *gorm.DB) error {
	if err := seedOnce(db, &models.ServiceCard{}, defaultServiceCards); err != nil {
		return err
	}
	return seedOnce(db, &models.Winner{}, defaultWinners)
}

func seedOnce[T any](db *gorm.DB, model *T, rows []T) error {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count %T: %w", model, err)
	}
	if count > 0 {
		return nil
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed %T: %w", model, err)
	}
	slog.Info("seeded table", "model", fmt.Sprintf("%T", model), "rows", len(rows))
	return nil
}

var defaultServiceCards = []models.ServiceCard{
	{Position: 1, Title: "Web Development", Category: "Engineering", IconURL: "/icons/web.svg", URL: "/services#web",
		Description: "Responsive sites and web apps built with modern frameworks."},
	{Position: 2, Title: "Mobile Apps", Category: "Engineering", IconURL: "/icons/mobile.svg", URL: "/services#mobile",
		Description: "Native and cross-platform apps for iOS and Android."},
	{Position: 3, Title: "UI/UX Design", Category: "Design", IconURL: "/icons/design.svg", URL: "/services#design",
		Description: "Interfaces and user journeys people enjoy using."},
	{Position: 4, Title: "Data Analytics", Category: "Data", IconURL: "/icons/data.svg", URL: "/services#data",
		Description: "Dashboards and insight from the data you already have."},
	{Position: 5, Title: "Cloud Hosting", Category: "Infrastructure", IconURL: "/icons/cloud.svg", URL: "/services#cloud",
		Description: "Managed deployments, backups and monitoring."},
	{Position: 6, Title: "Digital Marketing", Category: "Growth", IconURL: "/icons/marketing.svg", URL: "/services#marketing",
		Description: "Campaigns, SEO and social media that reach your audience."},
	{Position: 7, Title: "Mentorship", Category: "Community", IconURL: "/icons/mentor.svg", URL: "/services#mentorship",
		Description: "One-to-one guidance from practitioners in the hub."},
	{Position: 8, Title: "Hackathons", Category: "Community", IconURL: "/icons/hackathon.svg", URL: "/services#hackathons",
		Description: "Regular build weekends with prizes for the best teams."},
}

var defaultWinners = []models.Winner{
	{Position: 1, Image: "/winners/1.jpg", Name: "Team Aurora", Description: "Hackathon winner with a solar micro-grid monitor."},
	{Position: 2, Image: "/winners/2.jpg", Name: "Ada Obi", Description: "Best mobile app for community health."},
	{Position: 3, Image: "/winners/3.jpg", Name: "Kofi Mensah", Description: "Data challenge winner on transport routes."},
	{Position: 4, Image: "/winners/4.jpg", Name: "Team Baobab", Description: "Best design for an agritech marketplace."},
	{Position: 5, Image: "/winners/5.jpg", Name: "Lina Haddad", Description: "Open-source contributor of the year."},
	{Position: 6, Image: "/winners/6.jpg", Name: "Team Nile", Description: "Fintech sprint winner with a savings circle app."},
}
