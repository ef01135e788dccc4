package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"adpulse/adapters/db"
	"adpulse/internal/config"
	"adpulse/internal/dataproc"
	"adpulse/internal/logging"
	"adpulse/internal/migration"
	"adpulse/ports"

	"github.com/joho/godotenv"
)

// exportFile is one account's worth of daily records as written by the
// collectors
type exportFile struct {
	Source    string            `json:"source"`
	AccountID string            `json:"account_id"`
	Records   []dataproc.Record `json:"records"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Global().Fatal("invalid configuration", "error", err)
	}
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		logging.Global().Fatal("failed to create logger", "error", err)
	}

	ctx := context.Background()
	conn, err := db.OpenAndMigrate(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	defer conn.Close()
	logger.Info("schema up to date", "driver", cfg.Database.Driver, "version", migration.NewRunner().Version())

	// Usage: migrate [export_dir]
	if len(os.Args) < 2 {
		return
	}

	files, err := findExportFiles(os.Args[1])
	if err != nil {
		logger.Fatal("failed to find export files", "dir", os.Args[1], "error", err)
	}
	logger.Info("importing exports", "files", len(files))

	imported, skipped := importFiles(ctx, db.NewMetricRepository(conn, nil), files, logger)
	logger.Info("import complete", "records", imported, "skipped_files", skipped)
}

func importFiles(ctx context.Context, repo ports.MetricRepository, files []string, logger *logging.Logger) (int, int) {
	imported, skipped := 0, 0
	for _, file := range files {
		export, err := loadExportFile(file)
		if err != nil {
			logger.Warn("failed to load export", "file", file, "error", err)
			skipped++
			continue
		}
		if export.Source == "" || export.AccountID == "" {
			logger.Warn("export missing source or account_id", "file", file)
			skipped++
			continue
		}

		n, err := repo.Upsert(ctx, export.Source, export.AccountID, export.Records)
		if err != nil {
			logger.Warn("failed to store export", "file", file, "error", err)
			skipped++
			continue
		}
		imported += n
		logger.Debug("imported export", "file", filepath.Base(file), "records", n)
	}
	return imported, skipped
}

func findExportFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func loadExportFile(path string) (*exportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var export exportFile
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, err
	}
	return &export, nil
}
