package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bookbee/bookbee-backend/config"
	"github.com/bookbee/bookbee-backend/internal/app/repository"
	"github.com/bookbee/bookbee-backend/internal/db"
	"github.com/bookbee/bookbee-backend/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run ./cmd/seed <xlsx_file_path>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: cfg.Log.Level, Format: "console"})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, err := readStoryRows(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	importer := newStoryImporter(
		repository.NewUserRepository(db.GetDB()),
		repository.NewStoryRepository(db.GetDB()),
	)
	stories, skipped, err := importer.build(rows)
	if err != nil {
		log.Fatal("Failed to prepare stories:", err)
	}

	fmt.Printf("Stories to import: %d (skipped rows: %d)\n", len(stories), skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	fmt.Printf("Starting bulk import with batch size: %d\n", importBatchSize)
	if err := importer.save(stories); err != nil {
		log.Fatal("Failed to bulk create stories:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total stories imported: %d\n", len(stories))
}
