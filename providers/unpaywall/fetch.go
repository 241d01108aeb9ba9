package unpaywall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"journal-desk/config"
	"journal-desk/providers"
)

// Response repräsentiert die JSON-Antwort der Unpaywall-API.
// Nur der direkte PDF-Link wird ausgewertet, Landing-Pages nicht.
type Response struct {
	BestOALocation *struct {
		URLForPDF string `json:"url_for_pdf"`
	} `json:"best_oa_location"`
}

// Fetcher kapselt die Logik für Unpaywall.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *http.Client
}

// NewFetcher erstellt einen neuen Unpaywall-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger, client: providers.NewHTTPClient(30 * time.Second)}
}

// GetPDFLink holt einen freien PDF-Link via Unpaywall anhand der DOI.
// Ein leerer String ohne Fehler heißt: kein Open-Access-PDF bekannt.
func (f *Fetcher) GetPDFLink(ctx context.Context, doi string) (string, error) {
	if f.Config.UnpaywallEmail == "" {
		return "", fmt.Errorf("unpaywall email ist nicht konfiguriert")
	}
	doi = normalizeDOI(doi)
	if doi == "" {
		return "", fmt.Errorf("empty doi")
	}

	reqURL := fmt.Sprintf("%s/%s?email=%s", strings.TrimRight(f.Config.UnpaywallBaseURL, "/"), doi, url.QueryEscape(f.Config.UnpaywallEmail))
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("Rufe Unpaywall API auf.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", providers.ClassifyTransportError(reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.Debug("DOI bei Unpaywall unbekannt.")
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", &providers.NetworkError{Kind: providers.KindHTTPStatus, StatusCode: resp.StatusCode, URL: reqURL}
	}

	var ur Response
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("decoding unpaywall response: %w", err)
	}

	if ur.BestOALocation != nil && ur.BestOALocation.URLForPDF != "" {
		log.Info("PDF-Link über Unpaywall gefunden.")
		return ur.BestOALocation.URLForPDF, nil
	}

	log.Debug("Kein PDF-Link in Unpaywall-Antwort gefunden.")
	return "", nil
}

// normalizeDOI entfernt URL- und "doi:"-Präfixe.
func normalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(s)
}
