package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/archivus/sitedocs/internal/app/config"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/internal/infrastructure/repositories/postgresql"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	command := os.Args[1]

	// Initialize logger
	logger := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	databaseURL := cfg.GetDatabaseURL()
	if databaseURL == "" {
		databaseURL = "file:sitedocs.db"
	}

	// Connect to database
	db, err := database.New(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		runMigrations(db, logger)
	case "reset":
		resetDatabase(db, logger)
	case "seed":
		if len(os.Args) < 3 {
			logger.Error("seed requires the owner's user id")
			printUsage()
			return
		}
		seedDatabase(db, logger, os.Args[2])
	case "status":
		migrationStatus(db, logger)
	default:
		logger.Error("Unknown command", "command", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  up              - Run all pending migrations")
	fmt.Println("  reset           - Drop all tables and recreate them")
	fmt.Println("  seed <user-id>  - Create a demo project owned by the given user")
	fmt.Println("  status          - Show migration status")
}

func runMigrations(db *database.DB, logger *logger.Logger) {
	logger.Info("Running database migrations...")

	// Auto-migrate all models
	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		return
	}

	if err := createIndexes(db); err != nil {
		logger.Error("Failed to create indexes", "error", err)
		return
	}

	logger.Info("Database migrations completed successfully")
}

func resetDatabase(db *database.DB, logger *logger.Logger) {
	logger.Info("Resetting database...")

	if err := db.DropAll(models.GetAllModels()...); err != nil {
		logger.Error("Failed to drop tables", "error", err)
		return
	}

	// Recreate all tables
	runMigrations(db, logger)

	logger.Info("Database reset completed")
}

func seedDatabase(db *database.DB, logger *logger.Logger, ownerID string) {
	logger.Info("Seeding database with a demo project...")

	owner, err := uuid.Parse(ownerID)
	if err != nil {
		logger.Error("Invalid owner id", "owner_id", ownerID, "error", err)
		return
	}

	ctx := context.Background()
	projects := postgresql.NewProjectRepository(db)

	project := &models.Project{
		Name:        "Demo Site",
		Description: "Sample project created by the migrate tool",
		CreatedBy:   owner,
	}
	if err := projects.Create(ctx, project); err != nil {
		logger.Error("Failed to create project", "error", err)
		return
	}
	if err := projects.AddMember(ctx, &models.ProjectMember{ProjectID: project.ID, UserID: owner, Role: models.RoleOwner}); err != nil {
		logger.Error("Failed to add owner", "error", err)
		return
	}

	logger.Info("Database seeding completed successfully", "project_id", project.ID)
}

func migrationStatus(db *database.DB, logger *logger.Logger) {
	logger.Info("Checking migration status...")

	for _, model := range models.GetAllModels() {
		exists := db.Migrator().HasTable(model)
		status := "✓ exists"
		if !exists {
			status = "✗ missing"
		}
		logger.Info("Table status", "table", fmt.Sprintf("%T", model), "status", status)
	}

	head := db.Migrator().HasIndex(&models.Document{}, "idx_documents_head")
	logger.Info("Head uniqueness index", "present", head)
}

func createIndexes(db *database.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_project_number ON documents(project_id, document_number)",
		"CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_activity_logs_entity_created ON activity_logs(entity_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_document_approvals_pending ON document_approvals(document_id) WHERE status = 'pending'",
	}
	if !db.IsSQLite() {
		indexes = append(indexes,
			"CREATE INDEX IF NOT EXISTS idx_documents_tags_gin ON documents USING gin(tags)",
		)
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
