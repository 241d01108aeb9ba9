package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"journal-desk/config"
	"journal-desk/providers"
)

// maxBodyBytes begrenzt die Größe eines Exports.
const maxBodyBytes = 16 << 20

// Fetcher implementiert das Provider-Interface für den veröffentlichten CSV-Export einer Tabelle.
type Fetcher struct {
	Config   *config.Config
	Logger   *zap.Logger
	client   *http.Client
	maxBytes int64
}

// NewFetcher erstellt einen neuen Sheets-Fetcher mit festem Timeout aus der Konfiguration.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config:   cfg,
		Logger:   logger,
		client:   providers.NewHTTPClient(cfg.FetchTimeout),
		maxBytes: maxBodyBytes,
	}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "sheets"
}

// Fetch lädt den CSV-Text. Fehler sind immer *providers.NetworkError, kategorisiert nach
// Timeout, HTTP-Status, leerem oder zu großem Body oder Transportfehler.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	url := f.Config.SheetCSVURL
	log := f.Logger.With(zap.String("url", url))

	ctx, cancel := context.WithTimeout(ctx, f.Config.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &providers.NetworkError{Kind: providers.KindTransport, URL: url, Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	log.Debug("Rufe CSV-Export auf")
	resp, err := f.client.Do(req)
	if err != nil {
		ne := providers.ClassifyTransportError(url, err)
		log.Warn("CSV-Export nicht erreichbar", zap.String("kind", string(ne.Kind)), zap.Error(err))
		return "", ne
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("CSV-Export hat nicht-2xx-Status zurückgegeben", zap.Int("status", resp.StatusCode))
		return "", &providers.NetworkError{Kind: providers.KindHTTPStatus, StatusCode: resp.StatusCode, URL: url}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		ne := providers.ClassifyTransportError(url, fmt.Errorf("reading body: %w", err))
		log.Warn("CSV-Export konnte nicht gelesen werden", zap.Error(err))
		return "", ne
	}
	// ein abgeschnittener Export darf den aktuellen Katalog nie ersetzen
	if int64(len(raw)) > f.maxBytes {
		log.Warn("CSV-Export überschreitet die Größengrenze", zap.Int64("limit", f.maxBytes))
		return "", &providers.NetworkError{
			Kind:       providers.KindTooLarge,
			StatusCode: resp.StatusCode,
			URL:        url,
			Err:        fmt.Errorf("export exceeds %d bytes", f.maxBytes),
		}
	}

	// BOMOverride erkennt UTF-8/UTF-16-BOMs, sonst UTF-8
	body, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", &providers.NetworkError{Kind: providers.KindBadPayload, URL: url, Err: err}
	}

	text := string(body)
	if strings.TrimSpace(text) == "" {
		log.Warn("CSV-Export ist leer")
		return "", &providers.NetworkError{Kind: providers.KindEmptyBody, StatusCode: resp.StatusCode, URL: url}
	}

	log.Info("CSV-Export geladen", zap.Int("bytes", len(body)))
	return text, nil
}
