// Package appscript spricht das Apps-Script-Backend für Login und Dashboards an.
//
// Der reguläre Weg ist ein JSON-POST. Schlägt er auf Netzwerkebene fehl, wird einmal per
// GET mit eindeutigem callback-Parameter nachgefasst und die Callback-Hülle entfernt.
package appscript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"journal-desk/config"
	"journal-desk/models"
	"journal-desk/providers"
)

// ErrNotConfigured wird zurückgegeben, wenn APPS_SCRIPT_URL fehlt.
var ErrNotConfigured = errors.New("apps script backend not configured")

// BackendError ist eine Antwort mit status "error".
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return "backend error"
	}
	return "backend error: " + e.Message
}

// Credentials sind die Anmeldedaten für den Login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Response ist die Nutzlast des Backends.
type Response struct {
	Status    string            `json:"status"`
	Message   string            `json:"message,omitempty"`
	User      *models.User      `json:"user,omitempty"`
	Dashboard *models.Dashboard `json:"dashboard,omitempty"`
}

// Result ist eine erfolgreiche Antwort mit garantiertem Nutzer.
type Result struct {
	User      models.User
	Dashboard models.Dashboard
	Message   string
}

// Client kapselt die Aufrufe an das Apps-Script-Backend.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
	client *http.Client
	seq    atomic.Uint64
}

// NewClient erstellt einen neuen Apps-Script-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{Config: cfg, Logger: logger, client: providers.NewHTTPClient(cfg.AppsScriptTimeout)}
}

// Login meldet den Nutzer an und liefert Nutzer und Dashboard.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Result, error) {
	return c.call(ctx, "login", map[string]string{"email": creds.Email, "password": creds.Password})
}

// Dashboard lädt das Dashboard für einen bereits bekannten Nutzer.
func (c *Client) Dashboard(ctx context.Context, email string) (*Result, error) {
	return c.call(ctx, "dashboard", map[string]string{"email": email})
}

func (c *Client) call(ctx context.Context, action string, params map[string]string) (*Result, error) {
	if c.Config.AppsScriptURL == "" {
		return nil, ErrNotConfigured
	}
	log := c.Logger.With(zap.String("action", action))

	resp, err := c.postJSON(ctx, action, params)
	if err != nil {
		if !errors.Is(err, providers.ErrNetworkFailure) {
			return nil, err
		}
		log.Warn("JSON-Aufruf fehlgeschlagen, versuche Callback-Fallback", zap.Error(err))
		resp, err = c.getWithCallback(ctx, action, params)
		if err != nil {
			log.Error("Callback-Fallback fehlgeschlagen", zap.Error(err))
			return nil, err
		}
	}

	switch resp.Status {
	case "success":
	case "error":
		return nil, &BackendError{Message: resp.Message}
	default:
		return nil, fmt.Errorf("unexpected backend status %q", resp.Status)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("backend response without user")
	}

	res := &Result{User: *resp.User, Message: resp.Message}
	if resp.Dashboard != nil {
		res.Dashboard = *resp.Dashboard
	}
	return res, nil
}

func (c *Client) postJSON(ctx context.Context, action string, params map[string]string) (*Response, error) {
	endpoint := c.Config.AppsScriptURL
	payload := map[string]string{"action": action}
	for k, v := range params {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Config.AppsScriptTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &providers.NetworkError{Kind: providers.KindBadPayload, URL: endpoint, Err: err}
	}
	return &out, nil
}

func (c *Client) getWithCallback(ctx context.Context, action string, params map[string]string) (*Response, error) {
	u, err := url.Parse(c.Config.AppsScriptURL)
	if err != nil {
		return nil, err
	}
	callback := fmt.Sprintf("jd_cb_%d_%d", time.Now().UnixNano(), c.seq.Add(1))
	q := u.Query()
	q.Set("action", action)
	q.Set("callback", callback)
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.Config.AppsScriptTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	inner, err := unwrapCallback(string(raw), callback)
	if err != nil {
		return nil, &providers.NetworkError{Kind: providers.KindBadPayload, URL: c.Config.AppsScriptURL, Err: err}
	}
	var out Response
	if err := json.Unmarshal([]byte(inner), &out); err != nil {
		return nil, &providers.NetworkError{Kind: providers.KindBadPayload, URL: c.Config.AppsScriptURL, Err: err}
	}
	return &out, nil
}

// do führt die Anfrage aus und liefert den Body eines 2xx-Status.
func (c *Client) do(req *http.Request) ([]byte, error) {
	endpoint := c.Config.AppsScriptURL
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, providers.ClassifyTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &providers.NetworkError{Kind: providers.KindHTTPStatus, StatusCode: resp.StatusCode, URL: endpoint}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, providers.ClassifyTransportError(endpoint, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &providers.NetworkError{Kind: providers.KindEmptyBody, StatusCode: resp.StatusCode, URL: endpoint}
	}
	return raw, nil
}

// unwrapCallback entfernt "name(" ... ")" samt optionalem Semikolon und "/**/"-Präfix.
// Reines JSON wird unverändert akzeptiert.
func unwrapCallback(body, name string) (string, error) {
	s := strings.TrimSpace(body)
	s = strings.TrimPrefix(s, "/**/")
	if strings.HasPrefix(s, "{") {
		return s, nil
	}
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, name+"(") || !strings.HasSuffix(s, ")") {
		return "", fmt.Errorf("response is not wrapped in callback %s", name)
	}
	return s[len(name)+1 : len(s)-1], nil
}
