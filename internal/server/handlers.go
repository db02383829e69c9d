package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/athleon/perform/internal/events"
	"github.com/athleon/perform/internal/media"
	"github.com/athleon/perform/internal/models"
	"github.com/athleon/perform/internal/storage"
)

var allowedExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// actingUser reads the authenticated user identity the upstream auth layer
// injects. Verifying it is that layer's job, not ours.
func actingUser(c echo.Context) (string, error) {
	userID := strings.TrimSpace(c.Request().Header.Get("X-User-ID"))
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	return userID, nil
}

func actingUserName(c echo.Context) string {
	if name := strings.TrimSpace(c.Request().Header.Get("X-User-Name")); name != "" {
		return name
	}
	return "Athlete"
}

func (s *Server) uploadVideo(c echo.Context) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxUploadSize)

	file, handler, err := c.Request().FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Video file is required"})
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(handler.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{
			"error": fmt.Sprintf("Only video files are allowed (mp4, mov, avi, mkv, webm), got: %s", ext),
		})
	}

	// Sniff the payload rather than trusting the extension.
	buff := make([]byte, 512)
	n, err := file.Read(buff)
	if err != nil && err != io.EOF {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	filetype := http.DetectContentType(buff[:n])
	if !strings.HasPrefix(filetype, "video/") && filetype != "application/octet-stream" {
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{
			"error": fmt.Sprintf("The provided file is not a valid video. Detected type: %s", filetype),
		})
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()

	// One analysis per user at a time; a stale claim expires on its own.
	if !s.inflight.PutIfAbsent(userID, struct{}{}, inflightTTL) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "An analysis is already in progress for this account"})
	}
	defer s.inflight.Delete(userID)

	// Free allowance first, then the credit wallet.
	monthly, err := s.store.MonthlyCount(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count monthly analyses", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to analyze video"})
	}
	if monthly >= freeMonthlyAnalyses {
		if _, err := s.store.DebitCredit(ctx, userID); err != nil {
			if errors.Is(err, storage.ErrInsufficientCredits) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "No AI credits remaining",
					"message": fmt.Sprintf("You've used your %d free analyses this month. Purchase more credits to continue.",
						freeMonthlyAnalyses),
				})
			}
			s.logger.Error("failed to debit credit", "user", userID, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to analyze video"})
		}
	}

	videoPath, err := s.stageUpload(file, ext)
	if err != nil {
		s.logger.Error("failed to stage upload", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save uploaded video"})
	}
	defer os.Remove(videoPath)

	title := strings.TrimSpace(c.FormValue("videoTitle"))
	if title == "" {
		title = handler.Filename
	}

	result, err := s.analyzer.AnalyzeVideo(ctx, videoPath, title)
	if err != nil {
		if errors.Is(err, media.ErrDurationExceeded) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		s.logger.Error("analysis failed", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to analyze video"})
	}

	videoURL := "/uploads/videos/" + filepath.Base(videoPath)
	logID, err := s.store.SaveVideoAnalysis(ctx, userID, title, videoURL, result)
	if err != nil {
		s.logger.Error("failed to persist analysis", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save analysis"})
	}

	s.publisher.PublishAnalysisCompleted(events.AnalysisCompleted{
		UserID:     userID,
		LogID:      logID,
		VideoTitle: title,
		Score:      result.Score,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Video analyzed successfully",
		"analysis": echo.Map{
			"id":             logID,
			"score":          result.Score,
			"improvement":    result.Improvement,
			"insights":       result.Insights,
			"skillBreakdown": result.SkillBreakdown,
			"isRelated":      result.IsRelated,
		},
	})
}

// stageUpload copies the multipart payload to a request-unique file under
// the upload directory.
func (s *Server) stageUpload(file io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("creating upload directory '%s': %w", s.uploadDir, err)
	}

	videoPath := filepath.Join(s.uploadDir, fmt.Sprintf("video-%s%s", uuid.NewString(), ext))
	dst, err := os.Create(videoPath)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(videoPath)
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	if err := dst.Sync(); err != nil {
		os.Remove(videoPath)
		return "", fmt.Errorf("flushing upload file: %w", err)
	}
	return videoPath, nil
}

type analyzeTextRequest struct {
	Sport       string `json:"sport"`
	Description string `json:"description"`
}

func (s *Server) analyzeText(c echo.Context) error {
	if _, err := actingUser(c); err != nil {
		return err
	}

	var req analyzeTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Sport) == "" || strings.TrimSpace(req.Description) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Sport and description are required"})
	}

	result, err := s.analyzer.AnalyzeText(c.Request().Context(), req.Sport, req.Description)
	if err != nil {
		s.logger.Error("text analysis failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to analyze performance"})
	}

	// Text analyses are returned but not persisted.
	return c.JSON(http.StatusOK, result)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) chat(c echo.Context) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Message is required"})
	}

	ctx := c.Request().Context()
	chatCtx := models.ChatContext{UserName: actingUserName(c)}

	latest, err := s.store.LatestResult(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load latest result for chat context", "user", userID, "error", err)
	} else if latest != nil {
		chatCtx.RecentScore = latest.Score
		chatCtx.Skills = latest.SkillBreakdown
		chatCtx.VideoTitle = latest.VideoTitle
		chatCtx.Insights = latest.Insights
	}

	reply := s.analyzer.Chat(ctx, req.Message, chatCtx)

	return c.JSON(http.StatusOK, echo.Map{
		"reply":     reply,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) results(c echo.Context) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	pageData, err := s.store.Results(c.Request().Context(), userID, page, limit)
	if err != nil {
		s.logger.Error("failed to load results", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get results"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results":          pageData.Results,
		"performanceTrend": pageData.Trend,
		"pagination": echo.Map{
			"page":       pageData.Page,
			"limit":      pageData.Limit,
			"total":      pageData.Total,
			"totalPages": pageData.TotalPages,
		},
	})
}

func (s *Server) credits(c echo.Context) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	balance, err := s.store.Balance(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load wallet", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get credits"})
	}

	monthly, err := s.store.MonthlyCount(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count monthly analyses", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get credits"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"credits":      balance,
		"monthlyUsed":  monthly,
		"monthlyLimit": freeMonthlyAnalyses,
	})
}

type grantCreditsRequest struct {
	Amount int `json:"amount"`
}

// grantCredits tops up the wallet after a completed purchase. Payment
// verification happens upstream; this endpoint trusts the caller the same
// way it trusts the identity headers.
func (s *Server) grantCredits(c echo.Context) error {
	userID, err := actingUser(c)
	if err != nil {
		return err
	}

	var req grantCreditsRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "A positive credit amount is required"})
	}

	balance, err := s.store.GrantCredits(c.Request().Context(), userID, req.Amount)
	if err != nil {
		s.logger.Error("failed to grant credits", "user", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add credits"})
	}

	return c.JSON(http.StatusOK, echo.Map{"credits": balance})
}

func (s *Server) similar(c echo.Context) error {
	if _, err := actingUser(c); err != nil {
		return err
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Query parameter 'q' is required"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	hits, err := s.store.SearchSimilarAnalyses(c.Request().Context(), query, limit)
	if err != nil {
		s.logger.Error("similarity search failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to search analyses"})
	}

	return c.JSON(http.StatusOK, echo.Map{"results": hits})
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
