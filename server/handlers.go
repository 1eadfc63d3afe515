package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/export"
	"github.com/xhad/skim/pkg/summarizer"
)

var errInvalidStyle = errors.New("invalid summary style")

type summarizeRequest struct {
	URL      string `json:"url" form:"url"`
	Style    string `json:"style" form:"style"`
	Annotate bool   `json:"annotate" form:"annotate"`
}

type sessionRequest struct {
	URLs  []string `json:"urls"`
	URL   string   `json:"url" form:"url"`
	Crawl bool     `json:"crawl" form:"crawl"`
}

type askRequest struct {
	Question string `json:"question"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func (s *Server) parseStyle(raw string) (models.Style, error) {
	if strings.TrimSpace(raw) == "" {
		return s.config.DefaultStyle, nil
	}
	style, err := models.ParseStyle(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidStyle, err)
	}
	return style, nil
}

// uploadedFile returns the multipart "file" field. A missing field maps to
// summarizer.ErrNoFile.
func (s *Server) uploadedFile(c *gin.Context) (multipart.File, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, "", err
		}
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", summarizer.ErrNoFile
		}
		if strings.Contains(err.Error(), "request body too large") {
			return nil, "", errUploadTooLarge
		}
		return nil, "", summarizer.ErrNoFile
	}
	if fh.Size > s.config.MaxUploadBytes {
		return nil, "", errUploadTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	return f, fh.Filename, nil
}

func (s *Server) summarize(c *gin.Context) {
	if s.config.Summarizer == nil {
		s.fail(c, errUnavailable)
		return
	}

	var req summarizeRequest
	var (
		file     multipart.File
		filename string
	)
	if isMultipart(c) {
		f, name, err := s.uploadedFile(c)
		if err != nil {
			s.fail(c, err)
			return
		}
		defer f.Close()
		file, filename = f, name
		if err := c.ShouldBind(&req); err != nil {
			s.fail(c, fmt.Errorf("%w: %w", errInvalidRequest, err))
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return
	}

	style, err := s.parseStyle(req.Style)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts := summarizer.Options{Style: style, Annotate: req.Annotate}

	ctx := c.Request.Context()
	var summary *models.Summary
	if file != nil {
		summary, err = s.config.Summarizer.SummarizePDF(ctx, file, filename, opts)
	} else {
		summary, err = s.config.Summarizer.SummarizeURL(ctx, req.URL, opts)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) listSummaries(c *gin.Context) {
	if s.config.History == nil {
		c.JSON(http.StatusOK, gin.H{"summaries": []models.Summary{}})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(c, fmt.Errorf("%w: limit must be a positive integer", errInvalidRequest))
			return
		}
		limit = n
	}

	summaries, err := s.config.History.List(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (s *Server) lookupSummary(ctx context.Context, id string) (*models.Summary, error) {
	if s.config.History == nil {
		return nil, errUnavailable
	}
	return s.config.History.Get(ctx, id)
}

func (s *Server) getSummary(c *gin.Context) {
	summary, err := s.lookupSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) writeExport(c *gin.Context, format string, summary models.Summary) {
	format, err := export.ParseFormat(format)
	if err != nil {
		s.fail(c, err)
		return
	}

	body, err := export.Render(format, summary)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(summary, format)))
	c.Data(http.StatusOK, export.ContentType(format), body)
}

func (s *Server) exportSummary(c *gin.Context) {
	summary, err := s.lookupSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeExport(c, c.DefaultQuery("format", export.FormatPDF), *summary)
}

type exportRequest struct {
	Title  string       `json:"title"`
	Source string       `json:"source"`
	Style  models.Style `json:"style"`
	Text   string       `json:"text"`
	// Summary lets clients post back a summary object unchanged.
	Summary string `json:"summary"`
	Format  string `json:"format"`
}

// exportDirect renders a summary posted by the client, for summaries that
// were never stored.
func (s *Server) exportDirect(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return
	}

	text := req.Text
	if text == "" {
		text = req.Summary
	}
	if strings.TrimSpace(text) == "" {
		s.fail(c, fmt.Errorf("%w: summary is empty", errInvalidRequest))
		return
	}

	format := req.Format
	if format == "" {
		format = c.DefaultQuery("format", export.FormatPDF)
	}
	s.writeExport(c, format, models.Summary{
		Title:  req.Title,
		Source: req.Source,
		Style:  req.Style,
		Text:   text,
	})
}

func (s *Server) listSessions(c *gin.Context) {
	if s.config.QA == nil {
		s.fail(c, errUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": s.config.QA.Sessions()})
}

func (s *Server) loadDocuments(c *gin.Context) ([]models.Document, error) {
	ctx := c.Request.Context()

	if isMultipart(c) {
		f, name, err := s.uploadedFile(c)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if s.config.PDFExtractor == nil {
			return nil, errUnavailable
		}
		doc, err := s.config.PDFExtractor.Extract(ctx, f, name)
		if err != nil {
			return nil, summarizer.ExtractionError(err)
		}
		return []models.Document{doc}, nil
	}

	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}
	urls := req.URLs
	if req.URL != "" {
		urls = append([]string{req.URL}, urls...)
	}
	if len(urls) == 0 {
		return nil, summarizer.ErrEmptyInput
	}
	if s.config.URLExtractor == nil {
		return nil, errUnavailable
	}

	var docs []models.Document
	for _, u := range urls {
		if req.Crawl && s.config.Crawler != nil {
			pages, err := s.config.Crawler.Scrape(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", summarizer.ErrInsufficientContent, err)
			}
			docs = append(docs, pages...)
			continue
		}
		doc, err := s.config.URLExtractor.Extract(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", summarizer.ErrInsufficientContent, err)
		}
		if doc.URL == "" {
			doc.URL = u
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Server) createSession(c *gin.Context) {
	if s.config.QA == nil {
		s.fail(c, errUnavailable)
		return
	}

	docs, err := s.loadDocuments(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	session, err := s.config.QA.Index(c.Request.Context(), docs...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) ask(c *gin.Context) {
	if s.config.QA == nil {
		s.fail(c, errUnavailable)
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return
	}

	answer, err := s.config.QA.Ask(c.Request.Context(), c.Param("id"), req.Question, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) deleteSession(c *gin.Context) {
	if s.config.QA == nil {
		s.fail(c, errUnavailable)
		return
	}
	if err := s.config.QA.Close(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
