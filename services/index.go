package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"journal-desk/models"
)

// Entry ist ein Artikel zusammen mit seiner Ausgabe, flach für Filter und Sortierung.
type Entry struct {
	Issue   *models.Issue
	Article *models.Article

	haystack string
}

// Index hält die normalisierten Daten eines Ladevorgangs in linearen Listen.
type Index struct {
	issues        []*models.Issue
	entries       []Entry
	issueByID     map[string]*models.Issue
	issueHaystack map[string]string
	articleByID   map[int]int // Artikel-ID -> Position in entries
}

// Facets sind die vorhandenen Jahre und Bände, absteigend sortiert.
type Facets struct {
	Years   []int `json:"years"`
	Volumes []int `json:"volumes"`
}

// NewIndex flacht die Ausgaben in Quellreihenfolge ab und baut die Suchtexte.
func NewIndex(issues []*models.Issue) *Index {
	ix := &Index{
		issues:        issues,
		issueByID:     make(map[string]*models.Issue, len(issues)),
		issueHaystack: make(map[string]string, len(issues)),
		articleByID:   make(map[int]int),
	}
	for _, issue := range issues {
		ix.issueByID[issue.ID] = issue
		parts := []string{issue.Title, volumeToken(issue)}
		for _, a := range issue.Articles {
			e := Entry{Issue: issue, Article: a, haystack: articleHaystack(issue, a)}
			if _, dup := ix.articleByID[a.ID]; !dup {
				ix.articleByID[a.ID] = len(ix.entries)
			}
			ix.entries = append(ix.entries, e)
			parts = append(parts, e.haystack)
		}
		ix.issueHaystack[issue.ID] = foldText(strings.Join(parts, " "))
	}
	return ix
}

// Issues gibt alle Ausgaben in Quellreihenfolge zurück.
func (ix *Index) Issues() []*models.Issue { return ix.issues }

// Entries gibt alle Artikel-Einträge in Quellreihenfolge zurück.
func (ix *Index) Entries() []Entry { return ix.entries }

// Issue sucht eine Ausgabe anhand ihrer Kennung.
func (ix *Index) Issue(id string) (*models.Issue, error) {
	issue, ok := ix.issueByID[id]
	if !ok {
		return nil, fmt.Errorf("issue %q: %w", id, ErrNotFound)
	}
	return issue, nil
}

// Article sucht einen Artikel anhand seiner numerischen Kennung.
func (ix *Index) Article(id int) (Entry, error) {
	pos, ok := ix.articleByID[id]
	if !ok {
		return Entry{}, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return ix.entries[pos], nil
}

// ArticleBySourceID löst eine rohe (ggf. nicht-numerische) Kennung auf.
func (ix *Index) ArticleBySourceID(raw string) (Entry, error) {
	return ix.Article(ArticleID(raw))
}

// Facets liefert die Filterwerte für Jahr und Band.
func (ix *Index) Facets() Facets {
	years := map[int]bool{}
	volumes := map[int]bool{}
	for _, issue := range ix.issues {
		years[issue.Year] = true
		volumes[issue.Volume] = true
	}
	return Facets{Years: sortedDesc(years), Volumes: sortedDesc(volumes)}
}

func sortedDesc(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func volumeToken(issue *models.Issue) string {
	return "volume " + strconv.Itoa(issue.Volume)
}

// articleHaystack verbindet die durchsuchbaren Felder: Titel, Autoren, Abstract,
// Schlagwörter, Ausgabentitel und "volume N".
func articleHaystack(issue *models.Issue, a *models.Article) string {
	parts := []string{a.Title}
	parts = append(parts, a.AuthorNames()...)
	parts = append(parts, a.Abstract)
	parts = append(parts, a.Keywords...)
	parts = append(parts, issue.Title, volumeToken(issue))
	return foldText(strings.Join(parts, " "))
}
