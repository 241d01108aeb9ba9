package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"journal-desk/config"
	"journal-desk/providers/sheets"
	"journal-desk/services"
	"journal-desk/storage"
)

// Einmaliger Lauf: Katalog-Export abrufen, prüfen, nach S3 archivieren und alte Exporte rotieren.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	if !cfg.ArchiveEnabled() {
		logging.Fatal("S3_BUCKET und S3_URL müssen für die Archivierung gesetzt sein")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 1. Export abrufen
	provider := sheets.NewFetcher(cfg, logging)
	text, err := provider.Fetch(ctx)
	if err != nil {
		logging.Fatal("Fehler beim Abruf des Exports", zap.String("kind", services.FailureKindOf(err)), zap.Error(err))
	}

	// 2. Nur gültige Exporte archivieren
	rows, err := services.ParseCSV(text)
	if err != nil {
		logging.Fatal("Export ist nicht verwertbar", zap.Error(err))
	}
	_, stats := services.NewNormalizer(logging).Normalize(rows)
	logging.Info("Export geprüft",
		zap.Int("rows", stats.Rows),
		zap.Int("issues", stats.Issues),
		zap.Int("articles", stats.Articles),
		zap.Int("skipped", stats.SkippedNoIssue+stats.SkippedNoArticle))

	// 3. Hochladen
	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}
	archive := storage.NewArchive(s3Client, cfg, logging)
	link, err := archive.Upload(ctx, provider.Name(), []byte(text))
	if err != nil {
		logging.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}

	// 4. Alte Exporte rotieren
	deleted, err := archive.Rotate(ctx)
	if err != nil {
		logging.Fatal("Fehler bei der Rotation alter Exporte", zap.Error(err))
	}
	logging.Info("Archivierung abgeschlossen", zap.String("link", link), zap.Int("rotated", deleted))
}
