package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"journal-desk/models"
	"journal-desk/providers"
)

// Catalog ist ein vollständig geladener, unveränderlicher Stand aller Ausgaben samt Index.
type Catalog struct {
	Issues   []*models.Issue
	Index    *Index
	Stats    NormalizeStats
	LoadedAt time.Time
	Source   string
}

// SnapshotStore persistiert den zuletzt erfolgreich geladenen Katalog.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, issues []*models.Issue) error
	LoadSnapshot(ctx context.Context) ([]*models.Issue, error)
}

// RawArchiver legt den Roh-Export ab, räumt alte Exporte auf und liefert den neuesten zurück.
type RawArchiver interface {
	Upload(ctx context.Context, source string, data []byte) (string, error)
	Rotate(ctx context.Context) (int, error)
	Latest(ctx context.Context) (string, []byte, error)
}

// CatalogService lädt den Katalog, hält den aktuellen Stand und lädt periodisch neu.
// Leser greifen lock-frei über Current() zu.
type CatalogService struct {
	Provider providers.Provider
	Store    SnapshotStore
	Archive  RawArchiver
	Enricher *Enricher
	Logger   *zap.Logger

	schedule   string
	normalizer *Normalizer
	current    atomic.Pointer[Catalog]
	cron       *cron.Cron
	now        func() time.Time
}

// NewCatalogService erstellt den Service. Store, Archive und Enricher dürfen nil sein.
func NewCatalogService(provider providers.Provider, schedule string, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		Provider:   provider,
		Logger:     logger,
		schedule:   schedule,
		normalizer: NewNormalizer(logger),
		now:        time.Now,
	}
}

// Current liefert den aktuellen Katalog oder nil, solange keiner geladen wurde.
func (s *CatalogService) Current() *Catalog {
	return s.current.Load()
}

// Start lädt den Katalog initial und startet die periodische Aktualisierung.
// Schlägt der erste Abruf fehl, wird der gespeicherte Snapshot verwendet, danach der
// neueste archivierte Export.
func (s *CatalogService) Start(ctx context.Context) error {
	if _, err := s.Reload(ctx); err != nil {
		s.Logger.Warn("Initiales Laden fehlgeschlagen, verwende gespeicherten Snapshot", zap.Error(err))
		if _, err := s.LoadFromStore(ctx); err != nil {
			s.Logger.Warn("Kein gespeicherter Snapshot verfügbar, versuche Archiv", zap.Error(err))
			if _, err := s.LoadFromArchive(ctx); err != nil {
				s.Logger.Warn("Kein archivierter Export verfügbar", zap.Error(err))
			}
		}
	}

	if s.schedule == "" {
		return nil
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Logger.Info("Running scheduled catalog reload...")
		if _, err := s.Reload(ctx); err != nil {
			s.Logger.Error("Scheduled reload failed", zap.Error(err))
		}
	})
	if err != nil {
		s.cron = nil
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.Logger.Info("Reload-Zeitplan aktiv", zap.String("schedule", s.schedule))
	return nil
}

// Stop beendet den Zeitplan und wartet auf laufende Reloads.
func (s *CatalogService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// Reload ruft die Quelle ab und ersetzt den Katalog. Bei Fehlern bleibt der alte Stand sichtbar.
func (s *CatalogService) Reload(ctx context.Context) (*Catalog, error) {
	log := s.Logger.With(zap.String("provider", s.Provider.Name()))
	start := s.now()

	text, err := s.Provider.Fetch(ctx)
	if err != nil {
		return nil, s.fail(log, err)
	}
	rows, err := ParseCSV(text)
	if err != nil {
		return nil, s.fail(log, err)
	}

	cat := s.build(ctx, log, rows, s.Provider.Name())
	s.swap(cat)
	reloadsTotal.WithLabelValues("success").Inc()
	log.Info("Katalog geladen",
		zap.Int("issues", cat.Stats.Issues),
		zap.Int("articles", cat.Stats.Articles),
		zap.Int("skipped", cat.Stats.SkippedNoIssue+cat.Stats.SkippedNoArticle),
		zap.Duration("took", s.now().Sub(start)))

	if s.Store != nil {
		if err := s.Store.SaveSnapshot(ctx, cat.Issues); err != nil {
			log.Error("Snapshot konnte nicht gespeichert werden", zap.Error(err))
		}
	}
	if s.Archive != nil {
		if _, err := s.Archive.Upload(ctx, s.Provider.Name(), []byte(text)); err != nil {
			log.Error("Archivierung fehlgeschlagen", zap.Error(err))
		} else if _, err := s.Archive.Rotate(ctx); err != nil {
			log.Warn("Rotation fehlgeschlagen", zap.Error(err))
		}
	}
	return cat, nil
}

// LoadFromStore setzt den zuletzt gespeicherten Snapshot als aktuellen Katalog.
func (s *CatalogService) LoadFromStore(ctx context.Context) (*Catalog, error) {
	if s.Store == nil {
		return nil, ErrNoCatalog
	}
	issues, err := s.Store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if len(issues) == 0 {
		return nil, ErrNoCatalog
	}
	stats := NormalizeStats{Issues: len(issues)}
	for _, issue := range issues {
		stats.Articles += len(issue.Articles)
	}
	cat := &Catalog{
		Issues:   issues,
		Index:    NewIndex(issues),
		Stats:    stats,
		LoadedAt: s.now(),
		Source:   "store",
	}
	s.swap(cat)
	s.Logger.Info("Katalog aus Snapshot geladen", zap.Int("issues", stats.Issues), zap.Int("articles", stats.Articles))
	return cat, nil
}

// LoadFromArchive baut den Katalog aus dem neuesten archivierten Roh-Export.
func (s *CatalogService) LoadFromArchive(ctx context.Context) (*Catalog, error) {
	if s.Archive == nil {
		return nil, ErrNoCatalog
	}
	key, data, err := s.Archive.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading archived export: %w", err)
	}
	rows, err := ParseCSV(string(data))
	if err != nil {
		return nil, fmt.Errorf("archived export %s: %w", key, err)
	}
	log := s.Logger.With(zap.String("archive_key", key))
	cat := s.build(ctx, log, rows, "archive")
	s.swap(cat)
	log.Info("Katalog aus Archiv geladen", zap.Int("issues", cat.Stats.Issues), zap.Int("articles", cat.Stats.Articles))
	return cat, nil
}

// build normalisiert die Zeilen, ergänzt PDF-Links und indiziert das Ergebnis.
func (s *CatalogService) build(ctx context.Context, log *zap.Logger, rows []Row, source string) *Catalog {
	issues, stats := s.normalizer.Normalize(rows)
	if stats.Issues == 0 {
		log.Warn("Quelle enthält keine gültigen Ausgaben", zap.Int("rows", stats.Rows))
	}
	skippedRowsTotal.WithLabelValues("no_issue_id").Add(float64(stats.SkippedNoIssue))
	skippedRowsTotal.WithLabelValues("no_article_id").Add(float64(stats.SkippedNoArticle))

	if s.Enricher != nil {
		s.Enricher.Enrich(ctx, issues)
	}
	return &Catalog{
		Issues:   issues,
		Index:    NewIndex(issues),
		Stats:    stats,
		LoadedAt: s.now(),
		Source:   source,
	}
}

func (s *CatalogService) swap(cat *Catalog) {
	s.current.Store(cat)
	catalogIssues.Set(float64(cat.Stats.Issues))
	catalogArticles.Set(float64(cat.Stats.Articles))
}

func (s *CatalogService) fail(log *zap.Logger, err error) error {
	kind := FailureKindOf(err)
	reloadsTotal.WithLabelValues("failure").Inc()
	reloadFailuresTotal.WithLabelValues(kind).Inc()
	log.Error("Katalog-Reload fehlgeschlagen, alter Stand bleibt aktiv", zap.String("kind", kind), zap.Error(err))
	return err
}

// FailureKindOf ordnet einen Reload-Fehler einer Kategorie zu.
func FailureKindOf(err error) string {
	if errors.Is(err, ErrMalformedInput) {
		return "malformed_input"
	}
	if ne, ok := providers.AsNetworkError(err); ok {
		return string(ne.Kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(providers.KindTimeout)
	}
	return "other"
}
