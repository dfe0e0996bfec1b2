// Command migrate-storage moves local gallery files into the configured
// S3-compatible object store. It uploads and verifies every artifact before
// rewriting the record, and never deletes the local copies.
//
// Usage:
//
//	migrate-storage              migrate all local records
//	migrate-storage -dry-run     report candidates without writing anything
//	migrate-storage -verify-only re-check records already marked s3
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	gormlogger "gorm.io/gorm/logger"

	"gallery-server/internal/config"
	"gallery-server/internal/infrastructure/database"
	"gallery-server/internal/infrastructure/logger"
	repo "gallery-server/internal/infrastructure/repository/media"
	"gallery-server/internal/infrastructure/storage"
	"gallery-server/internal/migration"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be migrated without writing anything")
	verifyOnly := flag.Bool("verify-only", false, "re-check records already marked s3; nothing is migrated")
	backupDir := flag.String("backup-dir", "", "directory for the pre-migration records snapshot (default from GALLERY_MIGRATION_BACKUP_DIR)")
	flag.Parse()

	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	objectStore, err := storage.NewS3Store(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize object storage")
	}

	localStore, err := storage.NewLocalStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize local storage")
	}

	dir := *backupDir
	if dir == "" {
		dir = cfg.MigrationBackupDir
	}

	migrator := migration.NewMigrator(repo.NewRepository(db), objectStore, localStore, log)
	result, err := migrator.Run(ctx, migration.Options{
		DryRun:     *dryRun,
		VerifyOnly: *verifyOnly,
		BackupDir:  dir,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("migration aborted")
	}

	fmt.Printf("candidates: %d\nuploaded:   %d\nverified:   %d\nskipped:    %d\nfailed:     %d\n",
		result.Candidates, result.Uploaded, result.Verified, result.Skipped, result.Failed)
	if result.BackupPath != "" {
		fmt.Printf("backup:     %s\n", result.BackupPath)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
