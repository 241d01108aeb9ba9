package services

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"journal-desk/models"
)

// LinkResolver findet zu einer DOI einen frei zugänglichen PDF-Link.
type LinkResolver interface {
	GetPDFLink(ctx context.Context, doi string) (string, error)
}

// Enricher ergänzt fehlende PDF-Links über einen LinkResolver (Unpaywall).
type Enricher struct {
	Resolver LinkResolver
	Logger   *zap.Logger
	Parallel int
}

// NewEnricher erstellt einen Enricher mit höchstens 5 parallelen Abfragen.
func NewEnricher(resolver LinkResolver, logger *zap.Logger) *Enricher {
	return &Enricher{Resolver: resolver, Logger: logger, Parallel: 5}
}

// Enrich setzt PDFURL für alle Artikel mit DOI und ohne Link. Einzelne Fehlschläge
// werden protokolliert und übersprungen. Gibt die Anzahl ergänzter Links zurück.
func (e *Enricher) Enrich(ctx context.Context, issues []*models.Issue) int {
	var pending []*models.Article
	for _, issue := range issues {
		for _, a := range issue.Articles {
			if a.PDFURL == "" && a.DOI != "" {
				pending = append(pending, a)
			}
		}
	}
	if len(pending) == 0 {
		return 0
	}
	e.Logger.Info("Ergänze PDF-Links über Unpaywall", zap.Int("articles", len(pending)))

	var found atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	limit := e.Parallel
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, a := range pending {
		g.Go(func() error {
			log := e.Logger.With(zap.Int("article_id", a.ID), zap.String("doi", a.DOI))
			link, err := e.Resolver.GetPDFLink(gctx, a.DOI)
			if err != nil {
				log.Warn("Unpaywall-Abfrage fehlgeschlagen", zap.Error(err))
				return nil
			}
			if link == "" {
				log.Debug("Kein freier PDF-Link gefunden")
				return nil
			}
			a.PDFURL = link
			found.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	e.Logger.Info("Unpaywall-Ergänzung abgeschlossen", zap.Int32("found", found.Load()))
	return int(found.Load())
}
