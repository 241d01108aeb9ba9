package providers

import (
	"context"
	"net/http"
	"time"
)

// Provider ist das Interface, das jede Katalogquelle (z.B. der Sheets-CSV-Export) implementieren muss.
type Provider interface {
	// Fetch lädt den Rohtext des Katalogs.
	Fetch(ctx context.Context) (string, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "sheets").
	Name() string
}

const userAgent = "journal-desk/1.0 (+https://github.com/journal-desk)"

// CustomTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type CustomTransport struct {
	Transport http.RoundTripper
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// NewHTTPClient erstellt einen Client mit festem Timeout für externe Anfragen.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &CustomTransport{
			Transport: http.DefaultTransport,
		},
	}
}
