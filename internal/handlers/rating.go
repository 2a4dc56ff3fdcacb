package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trip-service/internal/models"
	"trip-service/internal/repositories"
	"trip-service/internal/telemetry"
)

// RatingHandler manages ratings, helpful votes and abuse reports.
type RatingHandler struct {
	ratingRepo repositories.RatingRepository
	tripRepo   repositories.TripRepository
	userRepo   repositories.UserRepository
	audit      *telemetry.AuditEmitter
}

// NewRatingHandler constructs a RatingHandler.
func NewRatingHandler(ratingRepo repositories.RatingRepository, tripRepo repositories.TripRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *RatingHandler {
	return &RatingHandler{
		ratingRepo: ratingRepo,
		tripRepo:   tripRepo,
		userRepo:   userRepo,
		audit:      audit,
	}
}

// SubmitRating creates or replaces the caller's rating for a target.
func (h *RatingHandler) SubmitRating(c *gin.Context) {
	targetType, targetID, ok := h.parseTarget(c)
	if !ok {
		return
	}

	var req struct {
		Score  int    `json:"score" binding:"required,min=1,max=5"`
		Review string `json:"review"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	userID := c.GetInt("userID")
	if targetType == models.RatingTargetTrip {
		trip, err := h.tripRepo.GetTrip(c.Request.Context(), targetID)
		if err != nil {
			if errors.Is(err, repositories.ErrTripNotFound) {
				respondError(c, http.StatusNotFound, "trip not found")
			} else {
				respondError(c, http.StatusInternalServerError, "failed to load trip")
			}
			return
		}
		if trip.OrganizerID == userID {
			respondError(c, http.StatusBadRequest, "cannot rate your own trip")
			return
		}
	}

	rating, err := h.ratingRepo.UpsertRating(c.Request.Context(), userID, targetType, targetID, req.Score, req.Review)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save rating")
		return
	}

	h.emitAudit(c, "INFO", "Rating submitted")
	respondOK(c, http.StatusCreated, "rating saved", gin.H{"rating": rating})
}

// ListRatings returns visible ratings for a target plus aggregate stats.
func (h *RatingHandler) ListRatings(c *gin.Context) {
	targetType, targetID, ok := h.parseTarget(c)
	if !ok {
		return
	}

	page, limit := parsePage(c)
	ratings, err := h.ratingRepo.ListVisible(c.Request.Context(), targetType, targetID, (page-1)*limit, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list ratings")
		return
	}
	stats, err := h.ratingRepo.Stats(c.Request.Context(), targetType, targetID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"ratings": ratings,
		"stats":   stats,
		"meta":    pageMeta{Page: page, Limit: limit, Total: stats.Count},
	})
}

// ListOwnRatings returns everything the caller has rated, hidden included.
func (h *RatingHandler) ListOwnRatings(c *gin.Context) {
	ratings, err := h.ratingRepo.ListByReviewer(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list ratings")
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"ratings": ratings})
}

// VoteHelpful counts at most one helpful vote per user per rating.
func (h *RatingHandler) VoteHelpful(c *gin.Context) {
	ratingID, err := strconv.Atoi(c.Param("rating_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid rating id")
		return
	}

	rating, err := h.ratingRepo.VoteHelpful(c.Request.Context(), ratingID, c.GetInt("userID"))
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			respondError(c, http.StatusNotFound, "rating not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to record vote")
		}
		return
	}
	respondOK(c, http.StatusOK, "vote recorded", gin.H{"rating": rating})
}

// ReportRating files an abuse report; enough distinct reports hide the rating.
func (h *RatingHandler) ReportRating(c *gin.Context) {
	ratingID, err := strconv.Atoi(c.Param("rating_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid rating id")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// The reason is optional, an empty body is fine.
	_ = c.ShouldBindJSON(&req)

	rating, err := h.ratingRepo.Report(c.Request.Context(), ratingID, c.GetInt("userID"), req.Reason)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			respondError(c, http.StatusNotFound, "rating not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to record report")
		}
		return
	}

	h.emitAudit(c, "WARNING", "Rating reported")
	respondOK(c, http.StatusOK, "report recorded", gin.H{"rating": rating})
}

func (h *RatingHandler) parseTarget(c *gin.Context) (string, int, bool) {
	targetType := c.Param("target_type")
	if targetType != models.RatingTargetTrip && targetType != models.RatingTargetGuide {
		respondError(c, http.StatusBadRequest, "invalid rating target type")
		return "", 0, false
	}
	targetID, err := strconv.Atoi(c.Param("target_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid target id")
		return "", 0, false
	}
	return targetType, targetID, true
}

func (h *RatingHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
