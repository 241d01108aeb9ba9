package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"journal-desk/config"
	"journal-desk/models"
	"journal-desk/providers"
	"journal-desk/providers/appscript"
	"journal-desk/services"
)

type bookmarkStore interface {
	ListBookmarks(ctx context.Context, sessionID string) ([]models.Bookmark, error)
	AddBookmark(ctx context.Context, sessionID, issueID string) (models.Bookmark, error)
	RemoveBookmark(ctx context.Context, sessionID, issueID string) (bool, error)
}

type sessionStore interface {
	Touch(ctx context.Context, sessionID, userID string) (models.Session, error)
}

type authBackend interface {
	Login(ctx context.Context, creds appscript.Credentials) (*appscript.Result, error)
	Dashboard(ctx context.Context, email string) (*appscript.Result, error)
}

const sessionKey = "session"

// issueSummary ist die Listenform einer Ausgabe ohne Artikel.
type issueSummary struct {
	ID            string `json:"id"`
	Volume        int    `json:"volume"`
	Number        int    `json:"number"`
	Year          int    `json:"year"`
	Title         string `json:"title"`
	PublishedDate string `json:"published_date,omitempty"`
	CoverImage    string `json:"cover_image,omitempty"`
	ArticleCount  int    `json:"article_count"`
}

func summarize(issue *models.Issue) issueSummary {
	return issueSummary{
		ID:            issue.ID,
		Volume:        issue.Volume,
		Number:        issue.Number,
		Year:          issue.Year,
		Title:         issue.Title,
		PublishedDate: issue.PublishedDate,
		CoverImage:    issue.CoverImage,
		ArticleCount:  len(issue.Articles),
	}
}

type searchHit struct {
	Issue        issueSummary    `json:"issue"`
	Article      *models.Article `json:"article"`
	TitleHTML    string          `json:"title_html,omitempty"`
	AbstractHTML string          `json:"abstract_html,omitempty"`
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// sessionMiddleware stellt sicher, dass jede Anfrage eine Session- und Nutzerkennung hat.
func sessionMiddleware(sessions sessionStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-ID")
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
		}
		userID := c.GetHeader("X-User-ID")
		if _, err := uuid.Parse(userID); err != nil {
			userID = uuid.NewString()
		}

		sess, err := sessions.Touch(c.Request.Context(), sessionID, userID)
		if err != nil {
			log.Error("Session konnte nicht gespeichert werden", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		c.Header("X-Session-ID", sess.SessionID)
		c.Header("X-User-ID", sess.UserID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// respondError übersetzt Fehler der Services und Provider in JSON-Antworten.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var backendErr *appscript.BackendError
	if ne, ok := providers.AsNetworkError(err); ok {
		log.Warn("Upstream-Fehler", zap.String("kind", string(ne.Kind)), zap.Error(err))
		c.JSON(ne.HTTPStatus(), gin.H{"error": string(ne.Kind)})
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoCatalog):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog not loaded yet"})
	case errors.Is(err, services.ErrMalformedInput):
		c.JSON(http.StatusBadGateway, gin.H{"error": "malformed_input"})
	case errors.Is(err, appscript.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &backendErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": backendErr.Message})
	default:
		log.Error("Unerwarteter Fehler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parseQuery liest die gemeinsamen Filterparameter year, volume, sort und q.
func parseQuery(c *gin.Context) (services.Query, error) {
	q := services.Query{
		Text:  c.Query("q"),
		Order: services.ParseSortOrder(c.Query("sort")),
	}
	var err error
	if q.Year, err = optionalInt(c.Query("year")); err != nil {
		return q, errors.New("year must be a number")
	}
	if q.Volume, err = optionalInt(c.Query("volume")); err != nil {
		return q, errors.New("volume must be a number")
	}
	return q, nil
}

func optionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func setupHealthRoutes(router *gin.Engine, catalog *services.CatalogService) {
	router.GET("/health", func(c *gin.Context) {
		cat := catalog.Current()
		if cat == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "catalog_loaded": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"catalog_loaded": true,
			"source":         cat.Source,
			"loaded_at":      cat.LoadedAt,
			"issues":         cat.Stats.Issues,
			"articles":       cat.Stats.Articles,
		})
	})
}

func setupCatalogRoutes(router *gin.Engine, cfg *config.Config, catalog *services.CatalogService, log *zap.Logger) {
	current := func(c *gin.Context) (*services.Catalog, bool) {
		cat := catalog.Current()
		if cat == nil {
			respondError(c, log, services.ErrNoCatalog)
			return nil, false
		}
		return cat, true
	}

	router.GET("/issues", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		q, err := parseQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		issues := services.SearchIssues(cat.Index, q)
		out := make([]issueSummary, 0, len(issues))
		for _, issue := range issues {
			out = append(out, summarize(issue))
		}
		c.JSON(http.StatusOK, gin.H{"issues": out, "count": len(out)})
	})

	router.GET("/issues/:id", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		issue, err := cat.Index.Issue(c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, issue)
	})

	router.GET("/articles/:id", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		entry, err := cat.Index.ArticleBySourceID(c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"issue": summarize(entry.Issue), "article": entry.Article})
	})

	router.GET("/articles/:id/citation", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		entry, err := cat.Index.ArticleBySourceID(c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reference": services.FormatReference(entry.Issue, entry.Article)})
	})

	router.GET("/issues/:id/references", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		issue, err := cat.Index.Issue(c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"issue_id": issue.ID, "references": services.BuildBibliography(issue)})
	})

	router.GET("/search", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		q, err := parseQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		services.CountSearch()
		needle := strings.TrimSpace(q.Text)
		highlight := truthy(c.Query("highlight")) && needle != ""

		entries := services.Search(cat.Index, q)
		hits := make([]searchHit, 0, len(entries))
		for _, e := range entries {
			hit := searchHit{Issue: summarize(e.Issue), Article: e.Article}
			if highlight {
				hit.TitleHTML = services.Highlight(e.Article.Title, needle)
				hit.AbstractHTML = services.Highlight(e.Article.Abstract, needle)
			}
			hits = append(hits, hit)
		}
		c.JSON(http.StatusOK, gin.H{
			"query":   q.Text,
			"sort":    q.Order.String(),
			"results": hits,
			"count":   len(hits),
		})
	})

	router.GET("/facets", func(c *gin.Context) {
		cat, ok := current(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, cat.Index.Facets())
	})

	router.POST("/catalog/reload", apiKeyAuthMiddleware(cfg), func(c *gin.Context) {
		log.Info("Manueller Katalog-Reload angefordert")
		cat, err := catalog.Reload(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"issues":       cat.Stats.Issues,
			"articles":     cat.Stats.Articles,
			"skipped_rows": cat.Stats.SkippedNoIssue + cat.Stats.SkippedNoArticle,
			"loaded_at":    cat.LoadedAt,
		})
	})
}

func setupBookmarkRoutes(router *gin.Engine, bookmarks bookmarkStore, sessions sessionStore, catalog *services.CatalogService, log *zap.Logger) {
	rg := router.Group("/bookmarks", sessionMiddleware(sessions, log))

	rg.GET("", func(c *gin.Context) {
		sess := c.MustGet(sessionKey).(models.Session)
		list, err := bookmarks.ListBookmarks(c.Request.Context(), sess.SessionID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		type bookmarkView struct {
			models.Bookmark
			Issue *issueSummary `json:"issue,omitempty"`
		}
		cat := catalog.Current()
		out := make([]bookmarkView, 0, len(list))
		for _, b := range list {
			v := bookmarkView{Bookmark: b}
			if cat != nil {
				if issue, err := cat.Index.Issue(b.IssueID); err == nil {
					s := summarize(issue)
					v.Issue = &s
				}
			}
			out = append(out, v)
		}
		c.JSON(http.StatusOK, gin.H{"bookmarks": out})
	})

	rg.POST("", func(c *gin.Context) {
		sess := c.MustGet(sessionKey).(models.Session)
		var req struct {
			IssueID string `json:"issue_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "issue_id is required"})
			return
		}
		if cat := catalog.Current(); cat != nil {
			if _, err := cat.Index.Issue(req.IssueID); err != nil {
				respondError(c, log, err)
				return
			}
		}
		b, err := bookmarks.AddBookmark(c.Request.Context(), sess.SessionID, req.IssueID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	})

	rg.DELETE("/:issue_id", func(c *gin.Context) {
		sess := c.MustGet(sessionKey).(models.Session)
		removed, err := bookmarks.RemoveBookmark(c.Request.Context(), sess.SessionID, c.Param("issue_id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": "bookmark not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupAuthRoutes(router *gin.Engine, backend authBackend, log *zap.Logger) {
	rg := router.Group("/auth")

	respond := func(c *gin.Context, res *appscript.Result) {
		view, err := models.BuildDashboardView(res.User, res.Dashboard)
		if err != nil {
			log.Error("Dashboard-Ansicht nicht möglich", zap.String("email", res.User.Email), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "invalid role in backend response"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "view": view})
	}

	rg.POST("/login", func(c *gin.Context) {
		var creds appscript.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil || creds.Email == "" || creds.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}
		res, err := backend.Login(c.Request.Context(), creds)
		if err != nil {
			respondError(c, log, err)
			return
		}
		log.Info("Login erfolgreich", zap.String("email", res.User.Email), zap.String("role", res.User.Role.String()))
		respond(c, res)
	})

	rg.POST("/dashboard", func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}
		res, err := backend.Dashboard(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respond(c, res)
	})
}
