package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"trip-service/internal/models"
	"trip-service/internal/observability"
	"trip-service/internal/repositories"
	"trip-service/internal/telemetry"
	"trip-service/internal/ws"
)

// maxMessageLength bounds discussion and chat message content, counted in
// characters after trimming.
const maxMessageLength = 1000

// DiscussionHandler manages per-trip discussion threads.
type DiscussionHandler struct {
	tripRepo       repositories.TripRepository
	discussionRepo repositories.DiscussionRepository
	userRepo       repositories.UserRepository
	hub            *ws.Hub
	audit          *telemetry.AuditEmitter
}

// NewDiscussionHandler constructs a DiscussionHandler.
func NewDiscussionHandler(tripRepo repositories.TripRepository, discussionRepo repositories.DiscussionRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *DiscussionHandler {
	return &DiscussionHandler{
		tripRepo:       tripRepo,
		discussionRepo: discussionRepo,
		userRepo:       userRepo,
		hub:            hub,
		audit:          audit,
	}
}

// GetDiscussion returns the trip's thread, creating it on first access.
func (h *DiscussionHandler) GetDiscussion(c *gin.Context) {
	trip, ok := h.authorizedTrip(c)
	if !ok {
		return
	}

	discussion, err := h.discussionRepo.GetOrCreateForTrip(c.Request.Context(), trip.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load discussion")
		return
	}

	page, limit := parsePage(c)
	msgs, err := h.discussionRepo.ListMessages(c.Request.Context(), discussion.ID, (page-1)*limit, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load messages")
		return
	}
	total, err := h.discussionRepo.CountMessages(c.Request.Context(), discussion.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load messages")
		return
	}
	presence, err := h.discussionRepo.ListPresence(c.Request.Context(), discussion.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load presence")
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"discussion":   discussion,
		"messages":     msgs,
		"active_users": presence,
		"meta":         pageMeta{Page: page, Limit: limit, Total: total},
	})
}

// SendMessage appends a user message to the thread and broadcasts it.
func (h *DiscussionHandler) SendMessage(c *gin.Context) {
	trip, ok := h.authorizedTrip(c)
	if !ok {
		return
	}
	if !trip.AllowDiscussions {
		respondError(c, http.StatusForbidden, "discussions are disabled for this trip")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(c, http.StatusBadRequest, "message content is required")
		return
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		respondError(c, http.StatusBadRequest, "message content exceeds 1000 characters")
		return
	}

	userID := c.GetInt("userID")
	sender, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to resolve sender")
		return
	}

	discussion, err := h.discussionRepo.GetOrCreateForTrip(c.Request.Context(), trip.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load discussion")
		return
	}

	msg, err := h.discussionRepo.CreateMessage(c.Request.Context(), discussion.ID, repositories.NewDiscussionMessage{
		SenderID:   &userID,
		SenderName: sender.Username,
		Content:    content,
		Type:       models.MessageTypeText,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to store message")
		return
	}

	// Sending implies the author stopped typing and is active now.
	if err := h.discussionRepo.UpsertPresence(c.Request.Context(), discussion.ID, userID, false); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update presence")
		return
	}
	if err := h.tripRepo.TouchActivity(c.Request.Context(), trip.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update trip")
		return
	}

	h.broadcast(trip.ID, models.Event{Type: models.EventNewMessage, TripID: trip.ID, Payload: msg})
	h.emitAudit(c, "INFO", "Discussion message sent")
	respondOK(c, http.StatusCreated, "message sent", gin.H{"message": msg})
}

// UpdateTyping upserts the caller's typing flag and broadcasts it.
func (h *DiscussionHandler) UpdateTyping(c *gin.Context) {
	trip, ok := h.authorizedTrip(c)
	if !ok {
		return
	}
	if !trip.AllowDiscussions {
		respondError(c, http.StatusForbidden, "discussions are disabled for this trip")
		return
	}

	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	userID := c.GetInt("userID")
	discussion, err := h.discussionRepo.GetOrCreateForTrip(c.Request.Context(), trip.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load discussion")
		return
	}
	if err := h.discussionRepo.UpsertPresence(c.Request.Context(), discussion.ID, userID, req.IsTyping); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update presence")
		return
	}

	h.broadcast(trip.ID, models.Event{
		Type:    models.EventTypingStatus,
		TripID:  trip.ID,
		Payload: models.TypingPayload{UserID: userID, IsTyping: req.IsTyping},
	})
	respondOK(c, http.StatusOK, "", nil)
}

// MarkActive refreshes the caller's last-seen timestamp without broadcasting.
func (h *DiscussionHandler) MarkActive(c *gin.Context) {
	trip, ok := h.authorizedTrip(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	discussion, err := h.discussionRepo.GetOrCreateForTrip(c.Request.Context(), trip.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load discussion")
		return
	}
	if err := h.discussionRepo.UpsertPresence(c.Request.Context(), discussion.ID, userID, false); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update presence")
		return
	}
	respondOK(c, http.StatusOK, "", nil)
}

// authorizedTrip loads the trip from the path and rejects callers who are
// neither the organizer nor a confirmed participant.
func (h *DiscussionHandler) authorizedTrip(c *gin.Context) (models.Trip, bool) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return models.Trip{}, false
	}

	trip, err := h.tripRepo.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load trip")
		}
		return models.Trip{}, false
	}

	userID := c.GetInt("userID")
	allowed, err := canAccessTrip(c.Request.Context(), h.tripRepo, trip, userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to verify membership")
		return models.Trip{}, false
	}
	if !allowed {
		respondError(c, http.StatusForbidden, "not a trip participant")
		return models.Trip{}, false
	}
	return trip, true
}

// canAccessTrip reports whether the user may read the trip's discussion.
func canAccessTrip(ctx context.Context, tripRepo repositories.TripRepository, trip models.Trip, userID int) (bool, error) {
	if trip.OrganizerID == userID {
		return true, nil
	}
	return tripRepo.IsConfirmedParticipant(ctx, trip.ID, userID)
}

func (h *DiscussionHandler) broadcast(tripID int, event models.Event) {
	if h.hub == nil {
		return
	}
	observability.IncBroadcast(event.Type)
	h.hub.BroadcastToTrip(tripID, event)
}

func (h *DiscussionHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
