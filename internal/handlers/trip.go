package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"trip-service/internal/auth"
	"trip-service/internal/models"
	"trip-service/internal/observability"
	"trip-service/internal/repositories"
	"trip-service/internal/telemetry"
	"trip-service/internal/ws"
)

// TripHandler manages trip lifecycle and membership.
type TripHandler struct {
	tripRepo       repositories.TripRepository
	discussionRepo repositories.DiscussionRepository
	userRepo       repositories.UserRepository
	hub            *ws.Hub
	audit          *telemetry.AuditEmitter
	policy         *auth.Policy
}

// NewTripHandler constructs a TripHandler.
func NewTripHandler(tripRepo repositories.TripRepository, discussionRepo repositories.DiscussionRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter, policy *auth.Policy) *TripHandler {
	return &TripHandler{
		tripRepo:       tripRepo,
		discussionRepo: discussionRepo,
		userRepo:       userRepo,
		hub:            hub,
		audit:          audit,
		policy:         policy,
	}
}

type tripRequest struct {
	Name               string `json:"name" binding:"required"`
	Destination        string `json:"destination" binding:"required"`
	Description        string `json:"description"`
	Capacity           int    `json:"capacity" binding:"required,min=1"`
	IsPublic           bool   `json:"is_public"`
	AllowDiscussions   bool   `json:"allow_discussions"`
	AllowItineraryEdit bool   `json:"allow_itinerary_edit"`
}

// CreateTrip registers a new trip with the caller as organizer. New trips
// stay unapproved until an admin signs off.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	userID := c.GetInt("userID")
	trip, err := h.tripRepo.CreateTrip(c.Request.Context(), models.Trip{
		OrganizerID:        userID,
		Name:               strings.TrimSpace(req.Name),
		Destination:        strings.TrimSpace(req.Destination),
		Description:        req.Description,
		Capacity:           req.Capacity,
		IsPublic:           req.IsPublic,
		AllowDiscussions:   req.AllowDiscussions,
		AllowItineraryEdit: req.AllowItineraryEdit,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create trip")
		return
	}

	// Eagerly open the discussion thread so the seed message lands before
	// the first participant looks at it.
	if trip.AllowDiscussions {
		if _, err := h.discussionRepo.GetOrCreateForTrip(c.Request.Context(), trip.ID); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to create discussion")
			return
		}
	}

	h.emitAudit(c, "INFO", "Trip created")
	respondOK(c, http.StatusCreated, "trip created", gin.H{"trip": trip})
}

// ApproveTrip marks a trip as approved. Admin only.
func (h *TripHandler) ApproveTrip(c *gin.Context) {
	userID := c.GetInt("userID")
	if !h.policy.IsAdmin(userID) {
		respondError(c, http.StatusForbidden, "admin access required")
		return
	}

	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	if err := h.tripRepo.ApproveTrip(c.Request.Context(), tripID); err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to approve trip")
		}
		return
	}

	trip, err := h.tripRepo.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load trip")
		return
	}

	h.broadcastGlobal(models.Event{Type: models.EventTripCreated, TripID: trip.ID, Payload: trip})
	h.emitAudit(c, "INFO", "Trip approved")
	respondOK(c, http.StatusOK, "trip approved", gin.H{"trip": trip})
}

// GetTrip returns a single trip the caller is allowed to see.
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := h.tripRepo.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load trip")
		}
		return
	}

	userID := c.GetInt("userID")
	if !trip.IsPublic && trip.OrganizerID != userID && !h.policy.IsAdmin(userID) {
		member, err := h.tripRepo.IsConfirmedParticipant(c.Request.Context(), trip.ID, userID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to verify membership")
			return
		}
		if !member {
			respondError(c, http.StatusNotFound, "trip not found")
			return
		}
	}
	respondOK(c, http.StatusOK, "", gin.H{"trip": trip})
}

// ListTrips returns public approved trips plus the caller's own.
func (h *TripHandler) ListTrips(c *gin.Context) {
	userID := c.GetInt("userID")
	trips, err := h.tripRepo.ListTrips(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list trips")
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"trips": trips})
}

// UpdateTrip edits trip fields. Organizer or admin only.
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	trip, ok := h.managedTrip(c)
	if !ok {
		return
	}

	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}
	if req.Capacity < trip.ParticipantCount {
		respondError(c, http.StatusBadRequest, "capacity cannot drop below current participant count")
		return
	}

	trip.Name = strings.TrimSpace(req.Name)
	trip.Destination = strings.TrimSpace(req.Destination)
	trip.Description = req.Description
	trip.Capacity = req.Capacity
	trip.IsPublic = req.IsPublic
	trip.AllowDiscussions = req.AllowDiscussions
	trip.AllowItineraryEdit = req.AllowItineraryEdit

	updated, err := h.tripRepo.UpdateTrip(c.Request.Context(), trip)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update trip")
		return
	}

	h.broadcastGlobal(models.Event{Type: models.EventTripUpdated, TripID: updated.ID, Payload: updated})
	h.emitAudit(c, "INFO", "Trip updated")
	respondOK(c, http.StatusOK, "trip updated", gin.H{"trip": updated})
}

// DeleteTrip removes a trip and everything hanging off it.
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	trip, ok := h.managedTrip(c)
	if !ok {
		return
	}

	if err := h.tripRepo.DeleteTrip(c.Request.Context(), trip.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to delete trip")
		return
	}

	h.broadcastGlobal(models.Event{Type: models.EventTripDeleted, TripID: trip.ID, Payload: gin.H{"trip_id": trip.ID}})
	h.emitAudit(c, "WARNING", "Trip deleted")
	respondOK(c, http.StatusOK, "trip deleted", nil)
}

// JoinTrip adds the caller as a confirmed participant.
func (h *TripHandler) JoinTrip(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	userID := c.GetInt("userID")
	trip, err := h.tripRepo.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load trip")
		}
		return
	}
	if trip.OrganizerID == userID {
		respondError(c, http.StatusBadRequest, "organizer is already a participant")
		return
	}
	if !trip.Approved {
		respondError(c, http.StatusBadRequest, "trip is not open for joining yet")
		return
	}

	updated, err := h.tripRepo.AddParticipant(c.Request.Context(), tripID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTripFull):
			respondError(c, http.StatusBadRequest, "trip is full")
		case errors.Is(err, repositories.ErrAlreadyJoined):
			respondError(c, http.StatusBadRequest, "already joined this trip")
		case errors.Is(err, repositories.ErrTripNotFound):
			respondError(c, http.StatusNotFound, "trip not found")
		default:
			respondError(c, http.StatusInternalServerError, "failed to join trip")
		}
		return
	}

	h.announceMembership(c, updated, userID, models.MessageTypeUserJoined, models.EventUserJoined, "joined the trip")
	h.emitAudit(c, "INFO", "Trip joined")
	respondOK(c, http.StatusOK, "joined trip", gin.H{"trip": updated})
}

// LeaveTrip removes the caller from the trip. The organizer cannot leave.
func (h *TripHandler) LeaveTrip(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	userID := c.GetInt("userID")
	trip, err := h.tripRepo.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load trip")
		}
		return
	}
	if trip.OrganizerID == userID {
		respondError(c, http.StatusBadRequest, "organizer cannot leave own trip")
		return
	}

	updated, err := h.tripRepo.RemoveParticipant(c.Request.Context(), tripID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotParticipant) {
			respondError(c, http.StatusBadRequest, "not a participant of this trip")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to leave trip")
		}
		return
	}

	h.announceMembership(c, updated, userID, models.MessageTypeUserLeft, models.EventUserLeft, "left the trip")
	h.emitAudit(c, "INFO", "Trip left")
	respondOK(c, http.StatusOK, "left trip", gin.H{"trip": updated})
}

// UpdateItinerary replaces the trip's day-by-day plan.
func (h *TripHandler) UpdateItinerary(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := h.tripRepo.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load trip")
		}
		return
	}

	userID := c.GetInt("userID")
	if !h.policy.CanManageTrip(trip, userID) {
		if !trip.AllowItineraryEdit {
			respondError(c, http.StatusForbidden, "itinerary editing is restricted to the organizer")
			return
		}
		member, err := h.tripRepo.IsConfirmedParticipant(c.Request.Context(), trip.ID, userID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to verify membership")
			return
		}
		if !member {
			respondError(c, http.StatusForbidden, "not a trip participant")
			return
		}
	}

	var req struct {
		Itinerary models.Itinerary `json:"itinerary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	updated, err := h.tripRepo.UpdateItinerary(c.Request.Context(), tripID, req.Itinerary)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update itinerary")
		return
	}

	if updated.AllowDiscussions {
		if editor, err := h.userRepo.GetUser(c.Request.Context(), userID); err == nil {
			h.systemMessage(c, updated.ID, userID, editor.Username,
				fmt.Sprintf("%s updated the itinerary", editor.Username),
				models.MessageTypeItineraryUpdate,
				&models.MessageMeta{ItineraryChange: &models.ItineraryChangeMeta{
					UpdatedBy: userID,
					DayCount:  len(req.Itinerary),
				}})
		}
	}

	h.broadcast(updated.ID, models.Event{Type: models.EventItineraryUpdated, TripID: updated.ID, Payload: updated.Itinerary})
	h.broadcastGlobal(models.Event{Type: models.EventTripUpdated, TripID: updated.ID, Payload: updated})
	h.emitAudit(c, "INFO", "Itinerary updated")
	respondOK(c, http.StatusOK, "itinerary updated", gin.H{"trip": updated})
}

// announceMembership drops a system message into the discussion (when enabled)
// and fans out membership events.
func (h *TripHandler) announceMembership(c *gin.Context, trip models.Trip, userID int, msgType, eventType, verb string) {
	userName := ""
	if user, err := h.userRepo.GetUser(c.Request.Context(), userID); err == nil {
		userName = user.Username
	}

	if trip.AllowDiscussions && userName != "" {
		h.systemMessage(c, trip.ID, userID, userName,
			fmt.Sprintf("%s %s", userName, verb),
			msgType,
			&models.MessageMeta{UserAction: &models.UserActionMeta{UserID: userID, UserName: userName}})
	}

	h.broadcast(trip.ID, models.Event{
		Type:    eventType,
		TripID:  trip.ID,
		Payload: models.UserActionMeta{UserID: userID, UserName: userName},
	})
	h.broadcastGlobal(models.Event{Type: models.EventTripUpdated, TripID: trip.ID, Payload: trip})
}

func (h *TripHandler) systemMessage(c *gin.Context, tripID, userID int, userName, content, msgType string, meta *models.MessageMeta) {
	discussion, err := h.discussionRepo.GetOrCreateForTrip(c.Request.Context(), tripID)
	if err != nil {
		return
	}
	msg, err := h.discussionRepo.CreateMessage(c.Request.Context(), discussion.ID, repositories.NewDiscussionMessage{
		SenderID:   &userID,
		SenderName: userName,
		Content:    content,
		Type:       msgType,
		Metadata:   meta,
	})
	if err != nil {
		return
	}
	h.broadcast(tripID, models.Event{Type: models.EventNewMessage, TripID: tripID, Payload: msg})
}

// managedTrip loads the trip from the path and rejects callers who are
// neither the organizer nor an admin.
func (h *TripHandler) managedTrip(c *gin.Context) (models.Trip, bool) {
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
	if !h.policy.CanManageTrip(trip, c.GetInt("userID")) {
		respondError(c, http.StatusForbidden, "only the organizer can manage this trip")
		return models.Trip{}, false
	}
	return trip, true
}

func (h *TripHandler) broadcast(tripID int, event models.Event) {
	if h.hub == nil {
		return
	}
	observability.IncBroadcast(event.Type)
	h.hub.BroadcastToTrip(tripID, event)
}

func (h *TripHandler) broadcastGlobal(event models.Event) {
	if h.hub == nil {
		return
	}
	observability.IncBroadcast(event.Type)
	h.hub.BroadcastGlobal(event)
}

func (h *TripHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
