package main

import (
	"log"

	"claudebuddy-be/internal/config"
	"claudebuddy-be/internal/model"
	"claudebuddy-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// gen_random_uuid() default on research_reports.id
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: failed to enable pgcrypto: %v. Continuing...", err)
	}

	if err := db.AutoMigrate(&model.ResearchReport{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}
	log.Println("Migration complete: research_reports")
}
