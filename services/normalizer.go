package services

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"journal-desk/models"
)

const (
	defaultVolume   = 1
	defaultNumber   = 1
	defaultPosition = "Research Scholar"
	defaultEmail    = "author@example.com"
)

// NormalizeStats enthält Kennzahlen eines Normalisierungslaufs.
type NormalizeStats struct {
	Rows             int `json:"rows"`
	Issues           int `json:"issues"`
	Articles         int `json:"articles"`
	SkippedNoIssue   int `json:"skipped_no_issue"`
	SkippedNoArticle int `json:"skipped_no_article"`
}

// Normalizer wandelt rohe CSV-Zeilen in Ausgaben und Artikel um.
type Normalizer struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// Normalize gruppiert die Zeilen nach issue_id. Zeilen ohne Ausgaben- oder Artikelkennung
// werden mit einer Warnung übersprungen, nie als Fehler behandelt.
func (n *Normalizer) Normalize(rows []Row) ([]*models.Issue, NormalizeStats) {
	stats := NormalizeStats{Rows: len(rows)}
	byID := make(map[string]*models.Issue)
	var issues []*models.Issue

	for i, row := range rows {
		issueID := row["issue_id"]
		if issueID == "" {
			stats.SkippedNoIssue++
			n.logger.Warn("Zeile ohne issue_id übersprungen", zap.Int("row", i+1))
			continue
		}

		sourceID := row["article_id"]
		if sourceID == "" {
			stats.SkippedNoArticle++
			n.logger.Warn("Zeile ohne article_id übersprungen", zap.Int("row", i+1), zap.String("issue_id", issueID))
			continue
		}

		// Metadaten der Ausgabe stammen aus der ersten übernommenen Zeile
		issue, ok := byID[issueID]
		if !ok {
			issue = &models.Issue{
				ID:            issueID,
				Volume:        parseIntDefault(row["volume"], defaultVolume),
				Number:        parseIntDefault(row["number"], defaultNumber),
				Year:          parseIntDefault(row["year"], n.now().Year()),
				Title:         row["issue_title"],
				PublishedDate: row["published_date"],
				CoverImage:    row["cover_image"],
				Articles:      []*models.Article{},
			}
			byID[issueID] = issue
			issues = append(issues, issue)
		}

		issue.Articles = append(issue.Articles, &models.Article{
			ID:       ArticleID(sourceID),
			SourceID: sourceID,
			IssueID:  issueID,
			Title:    firstNonEmpty(row["article_title"], row["title"]),
			Authors:  ParseAuthors(firstNonEmpty(row["author"], row["authors"])),
			Abstract: row["abstract"],
			Date:     row["date"],
			Keywords: ParseKeywords(row["keywords"]),
			Pages:    row["pages"],
			PDFURL:   row["pdf_url"],
			DOI:      row["doi"],
		})
		stats.Articles++
	}

	stats.Issues = len(issues)
	n.logger.Debug("Normalisierung abgeschlossen",
		zap.Int("rows", stats.Rows),
		zap.Int("issues", stats.Issues),
		zap.Int("articles", stats.Articles))
	return issues, stats
}

// ArticleID parst die Kennung als Ganzzahl oder bildet sie stabil per Hash ab.
func ArticleID(s string) int {
	if id, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return id
	}
	return HashID(s)
}

// HashID ist der 32-Bit-Überlauf-Hash (h = h*31 + Code-Unit) über UTF-16, Betrag genommen.
func HashID(s string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}

// ParseAuthors zerlegt "Name, Position, Email | Name2, ..." in Autoren.
// Einträge werden an '|' oder ';' getrennt, Unterfelder an ','.
func ParseAuthors(s string) []models.Author {
	authors := []models.Author{}
	entries := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ';' })
	for _, entry := range entries {
		parts := strings.Split(entry, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" {
			continue
		}
		a := models.Author{Name: parts[0], Position: defaultPosition, Email: defaultEmail}
		if len(parts) > 1 && parts[1] != "" {
			a.Position = parts[1]
		}
		if len(parts) > 2 && parts[2] != "" {
			a.Email = parts[2]
		}
		authors = append(authors, a)
	}
	return authors
}

// ParseKeywords trennt an ',' oder ';' und entfernt Duplikate (Groß-/Kleinschreibung egal).
func ParseKeywords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, kw := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// foldText normalisiert Unicode (NFC) und schreibt klein, für Vergleiche in der Suche.
func foldText(s string) string {
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		normalized = s
	}
	return strings.ToLower(normalized)
}
