package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"journal-desk/config"
	"journal-desk/models"
)

// IssueRecord ist die persistierte Form einer Ausgabe im letzten Katalog-Snapshot.
type IssueRecord struct {
	ID            string `gorm:"primaryKey"`
	Position      int    `gorm:"not null"`
	Volume        int
	Number        int
	Year          int
	Title         string
	PublishedDate string
	CoverImage    string
	SavedAt       time.Time
}

func (IssueRecord) TableName() string { return "catalog_issues" }

// ArticleRecord ist ein Artikel im letzten Katalog-Snapshot.
type ArticleRecord struct {
	RowID     uint   `gorm:"primaryKey;autoIncrement"`
	IssueID   string `gorm:"index;not null"`
	Position  int    `gorm:"not null"`
	ArticleID int
	SourceID  string
	Title     string
	Authors   datatypes.JSON
	Abstract  string
	Date      string
	Keywords  datatypes.JSON
	Pages     string
	PDFURL    string
	DOI       string
}

func (ArticleRecord) TableName() string { return "catalog_articles" }

// OpenPostgres verbindet sich mit der Datenbank und migriert alle Tabellen.
func OpenPostgres(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Session{}, &models.Bookmark{}, &IssueRecord{}, &ArticleRecord{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("Datenbank verbunden", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return db, nil
}

// PostgresStore speichert Sitzungen, Lesezeichen und Katalog-Snapshots in Postgres.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Touch legt die Sitzung an oder aktualisiert LastSeen. Eine bestehende Zuordnung
// zu einem Nutzer wird nie überschrieben.
func (s *PostgresStore) Touch(ctx context.Context, sessionID, userID string) (models.Session, error) {
	now := time.Now().UTC()
	var sess models.Session
	err := s.db.WithContext(ctx).
		Where(models.Session{SessionID: sessionID}).
		Attrs(models.Session{UserID: userID, CreatedAt: now}).
		FirstOrCreate(&sess).Error
	if err != nil {
		return models.Session{}, err
	}
	if err := s.db.WithContext(ctx).Model(&sess).Update("last_seen", now).Error; err != nil {
		return models.Session{}, err
	}
	sess.LastSeen = now
	return sess, nil
}

func (s *PostgresStore) ListBookmarks(ctx context.Context, sessionID string) ([]models.Bookmark, error) {
	var out []models.Bookmark
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// AddBookmark ist idempotent: ein doppeltes Lesezeichen liefert das bestehende zurück.
func (s *PostgresStore) AddBookmark(ctx context.Context, sessionID, issueID string) (models.Bookmark, error) {
	b := models.Bookmark{SessionID: sessionID, IssueID: issueID, CreatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&b).Error
	if err != nil {
		return models.Bookmark{}, err
	}
	var stored models.Bookmark
	err = s.db.WithContext(ctx).
		Where("session_id = ? AND issue_id = ?", sessionID, issueID).
		First(&stored).Error
	return stored, err
}

// RemoveBookmark meldet, ob ein Lesezeichen entfernt wurde.
func (s *PostgresStore) RemoveBookmark(ctx context.Context, sessionID, issueID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("session_id = ? AND issue_id = ?", sessionID, issueID).
		Delete(&models.Bookmark{})
	return res.RowsAffected > 0, res.Error
}

// SaveSnapshot ersetzt den gespeicherten Katalog vollständig in einer Transaktion.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, issues []*models.Issue) error {
	issueRows, articleRows, err := toRecords(issues, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&ArticleRecord{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&IssueRecord{}).Error; err != nil {
			return err
		}
		if len(issueRows) > 0 {
			if err := tx.CreateInBatches(issueRows, 200).Error; err != nil {
				return err
			}
		}
		if len(articleRows) > 0 {
			if err := tx.CreateInBatches(articleRows, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot liefert den zuletzt gespeicherten Katalog. Leer, falls keiner existiert.
func (s *PostgresStore) LoadSnapshot(ctx context.Context) ([]*models.Issue, error) {
	var issueRows []IssueRecord
	if err := s.db.WithContext(ctx).Order("position").Find(&issueRows).Error; err != nil {
		return nil, err
	}
	var articleRows []ArticleRecord
	if err := s.db.WithContext(ctx).Order("issue_id, position").Find(&articleRows).Error; err != nil {
		return nil, err
	}
	return fromRecords(issueRows, articleRows)
}

func toRecords(issues []*models.Issue, savedAt time.Time) ([]IssueRecord, []ArticleRecord, error) {
	issueRows := make([]IssueRecord, 0, len(issues))
	var articleRows []ArticleRecord
	for i, iss := range issues {
		issueRows = append(issueRows, IssueRecord{
			ID:            iss.ID,
			Position:      i,
			Volume:        iss.Volume,
			Number:        iss.Number,
			Year:          iss.Year,
			Title:         iss.Title,
			PublishedDate: iss.PublishedDate,
			CoverImage:    iss.CoverImage,
			SavedAt:       savedAt,
		})
		for j, a := range iss.Articles {
			authors, err := json.Marshal(a.Authors)
			if err != nil {
				return nil, nil, err
			}
			keywords, err := json.Marshal(a.Keywords)
			if err != nil {
				return nil, nil, err
			}
			articleRows = append(articleRows, ArticleRecord{
				IssueID:   iss.ID,
				Position:  j,
				ArticleID: a.ID,
				SourceID:  a.SourceID,
				Title:     a.Title,
				Authors:   datatypes.JSON(authors),
				Abstract:  a.Abstract,
				Date:      a.Date,
				Keywords:  datatypes.JSON(keywords),
				Pages:     a.Pages,
				PDFURL:    a.PDFURL,
				DOI:       a.DOI,
			})
		}
	}
	return issueRows, articleRows, nil
}

func fromRecords(issueRows []IssueRecord, articleRows []ArticleRecord) ([]*models.Issue, error) {
	issues := make([]*models.Issue, 0, len(issueRows))
	byID := make(map[string]*models.Issue, len(issueRows))
	for _, r := range issueRows {
		iss := &models.Issue{
			ID:            r.ID,
			Volume:        r.Volume,
			Number:        r.Number,
			Year:          r.Year,
			Title:         r.Title,
			PublishedDate: r.PublishedDate,
			CoverImage:    r.CoverImage,
		}
		issues = append(issues, iss)
		byID[r.ID] = iss
	}
	for _, r := range articleRows {
		iss, ok := byID[r.IssueID]
		if !ok {
			return nil, errors.New("snapshot article references unknown issue " + r.IssueID)
		}
		a := &models.Article{
			ID:       r.ArticleID,
			SourceID: r.SourceID,
			IssueID:  r.IssueID,
			Title:    r.Title,
			Abstract: r.Abstract,
			Date:     r.Date,
			Pages:    r.Pages,
			PDFURL:   r.PDFURL,
			DOI:      r.DOI,
		}
		if len(r.Authors) > 0 {
			if err := json.Unmarshal(r.Authors, &a.Authors); err != nil {
				return nil, fmt.Errorf("decoding authors of article %d: %w", r.ArticleID, err)
			}
		}
		if len(r.Keywords) > 0 {
			if err := json.Unmarshal(r.Keywords, &a.Keywords); err != nil {
				return nil, fmt.Errorf("decoding keywords of article %d: %w", r.ArticleID, err)
			}
		}
		iss.Articles = append(iss.Articles, a)
	}
	return issues, nil
}
