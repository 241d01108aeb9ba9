package services

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"journal-desk/models"
)

// SortOrder bestimmt die Richtung der Sortierung nach Jahr, Band, Nummer.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// ParseSortOrder akzeptiert "oldest"; alles andere ist NewestFirst.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "oldest") {
		return OldestFirst
	}
	return NewestFirst
}

func (o SortOrder) String() string {
	if o == OldestFirst {
		return "oldest"
	}
	return "newest"
}

// Query beschreibt eine Suche. Year und Volume sind Gleichheitsfilter, 0 = nicht gesetzt.
type Query struct {
	Text   string
	Year   int
	Volume int
	Order  SortOrder
}

const (
	highlightOpen  = `<span class="search-highlight">`
	highlightClose = `</span>`
)

// Search filtert die Artikel-Einträge und sortiert sie. Ohne Suchtext bleiben nur die
// Gleichheitsfilter aktiv.
func Search(ix *Index, q Query) []Entry {
	needle := foldText(strings.TrimSpace(q.Text))
	out := make([]Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		if !matchesFilters(e.Issue, q) {
			continue
		}
		if needle != "" && !strings.Contains(e.haystack, needle) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return issueLess(out[i].Issue, out[j].Issue, q.Order)
	})
	return out
}

// SearchIssues liefert die Ausgaben, deren Titel, Band oder Artikel zum Suchtext passen.
func SearchIssues(ix *Index, q Query) []*models.Issue {
	needle := foldText(strings.TrimSpace(q.Text))
	out := make([]*models.Issue, 0, len(ix.issues))
	for _, issue := range ix.issues {
		if !matchesFilters(issue, q) {
			continue
		}
		if needle != "" && !strings.Contains(ix.issueHaystack[issue.ID], needle) {
			continue
		}
		out = append(out, issue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return issueLess(out[i], out[j], q.Order)
	})
	return out
}

func matchesFilters(issue *models.Issue, q Query) bool {
	if q.Year != 0 && issue.Year != q.Year {
		return false
	}
	if q.Volume != 0 && issue.Volume != q.Volume {
		return false
	}
	return true
}

// issueLess vergleicht nach Jahr, dann Band, dann Nummer. Bei Gleichstand false,
// damit die stabile Sortierung die Einfügereihenfolge erhält.
func issueLess(a, b *models.Issue, order SortOrder) bool {
	ka := [3]int{a.Year, a.Volume, a.Number}
	kb := [3]int{b.Year, b.Volume, b.Number}
	for i := range ka {
		if ka[i] == kb[i] {
			continue
		}
		if order == OldestFirst {
			return ka[i] < kb[i]
		}
		return ka[i] > kb[i]
	}
	return false
}

// Highlight markiert jeden Treffer (ohne Groß-/Kleinschreibung) mit einem Span.
// Der Quelltext wird genau einmal HTML-escaped, die Suchanfrage für das Muster regex-quotiert.
// Text und Anfrage werden wie in der Suche NFC-normalisiert, der Text wird in NFC ausgegeben.
func Highlight(text, query string) string {
	text = norm.NFC.String(text)
	query = norm.NFC.String(strings.TrimSpace(query))
	if query == "" {
		return html.EscapeString(text)
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return html.EscapeString(text)
	}

	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:m[0]]))
		b.WriteString(highlightOpen)
		b.WriteString(html.EscapeString(text[m[0]:m[1]]))
		b.WriteString(highlightClose)
		last = m[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}
