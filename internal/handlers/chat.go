package handlers

import (
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

// ChatHandler manages direct chats and trip Q&A threads.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.ChatMessageRepository
	tripRepo    repositories.TripRepository
	userRepo    repositories.UserRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.ChatMessageRepository, tripRepo repositories.TripRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		tripRepo:    tripRepo,
		userRepo:    userRepo,
		hub:         hub,
		audit:       audit,
	}
}

// CreateDirectChat opens (or returns) the one direct chat between the caller
// and another user.
func (h *ChatHandler) CreateDirectChat(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	userID := c.GetInt("userID")
	if req.UserID == userID {
		respondError(c, http.StatusBadRequest, "cannot open a chat with yourself")
		return
	}
	if _, err := h.userRepo.GetUser(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to resolve user")
		}
		return
	}

	chat, err := h.chatRepo.CreateOrGetDirectChat(c.Request.Context(), userID, req.UserID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to open chat")
		return
	}

	h.emitAudit(c, "INFO", "Direct chat opened")
	respondOK(c, http.StatusOK, "", gin.H{"chat": chat})
}

// ListChats returns the caller's chats, most recently active first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")
	chats, err := h.chatRepo.ListChats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list chats")
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"chats": chats})
}

// GetChat returns a single chat the caller participates in.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"chat": chat})
}

// GetChatMessages pages through a chat's history in chronological order.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}

	page, limit := parsePage(c)
	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), chat.ID, (page-1)*limit, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load messages")
		return
	}

	// The repository returns newest-first pages; flip each page so clients
	// render chronologically.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"messages": msgs,
		"meta":     pageMeta{Page: page, Limit: limit, Total: len(msgs)},
	})
}

// SendChatMessage appends a message and notifies every participant's
// personal channel.
func (h *ChatHandler) SendChatMessage(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
		Type    string `json:"type"`
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

	msgType := models.ChatMessageText
	if req.Type == models.ChatMessageQuestion {
		if chat.Kind != models.ChatKindQA {
			respondError(c, http.StatusBadRequest, "questions are only allowed in trip Q&A chats")
			return
		}
		msgType = models.ChatMessageQuestion
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), chat.ID, userID, content, msgType)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to store message")
		return
	}
	if err := h.chatRepo.SetLastMessage(c.Request.Context(), chat.ID, msg.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update chat")
		return
	}

	h.notifyParticipants(c, chat.ID, models.Event{Type: models.EventNewMessage, Payload: msg})
	h.emitAudit(c, "INFO", "Chat message sent")
	respondOK(c, http.StatusCreated, "message sent", gin.H{"message": msg})
}

// MarkAsRead records read receipts for every message in the chat.
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if err := h.messageRepo.MarkAllRead(c.Request.Context(), chat.ID, userID); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to mark messages read")
		return
	}
	respondOK(c, http.StatusOK, "messages marked read", nil)
}

// DeleteMessage soft-deletes one of the caller's own messages.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	chat, ok := h.authorizedChat(c)
	if !ok {
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid message id")
		return
	}

	userID := c.GetInt("userID")
	if err := h.messageRepo.SoftDeleteMessage(c.Request.Context(), messageID, userID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			respondError(c, http.StatusForbidden, "can only delete your own messages")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to delete message")
		}
		return
	}

	h.notifyParticipants(c, chat.ID, models.Event{
		Type:    models.EventMessageDeleted,
		Payload: gin.H{"chat_id": chat.ID, "message_id": messageID},
	})
	h.emitAudit(c, "INFO", "Chat message deleted")
	respondOK(c, http.StatusOK, "message deleted", nil)
}

// OpenTripQA returns the trip's Q&A chat, creating it on first use and
// enrolling the caller.
func (h *ChatHandler) OpenTripQA(c *gin.Context) {
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

	chat, err := h.chatRepo.EnsureTripQAChat(c.Request.Context(), trip.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to open Q&A chat")
		return
	}

	userID := c.GetInt("userID")
	role := "member"
	if trip.OrganizerID == userID {
		role = "organizer"
	}
	if err := h.chatRepo.AddParticipant(c.Request.Context(), chat.ID, userID, role); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to join Q&A chat")
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"chat": chat})
}

// ListQuestions returns a trip's Q&A questions, optionally filtered by
// answered state via ?answered=true|false.
func (h *ChatHandler) ListQuestions(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	if _, err := h.tripRepo.GetTrip(c.Request.Context(), tripID); err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			respondError(c, http.StatusNotFound, "trip not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load trip")
		}
		return
	}

	var answered *bool
	if raw, present := c.GetQuery("answered"); present {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid answered filter")
			return
		}
		answered = &val
	}

	questions, err := h.messageRepo.ListQuestions(c.Request.Context(), tripID, answered)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list questions")
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"questions": questions})
}

// AnswerQuestion records the organizer's answer on a question message.
func (h *ChatHandler) AnswerQuestion(c *gin.Context) {
	tripID, err := strconv.Atoi(c.Param("trip_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid message id")
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
	if trip.OrganizerID != userID {
		respondError(c, http.StatusForbidden, "only the organizer can answer questions")
		return
	}

	var req struct {
		Answer string `json:"answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		respondError(c, http.StatusBadRequest, "answer is required")
		return
	}

	msg, err := h.messageRepo.AnswerQuestion(c.Request.Context(), messageID, userID, answer)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			respondError(c, http.StatusNotFound, "question not found")
		case errors.Is(err, repositories.ErrNotAQuestion):
			respondError(c, http.StatusBadRequest, "message is not a question")
		case errors.Is(err, repositories.ErrAlreadyAnswered):
			respondError(c, http.StatusBadRequest, "question already answered")
		default:
			respondError(c, http.StatusInternalServerError, "failed to answer question")
		}
		return
	}

	h.notifyParticipants(c, msg.ChatID, models.Event{Type: models.EventQuestionAnswered, Payload: msg})
	h.emitAudit(c, "INFO", "Question answered")
	respondOK(c, http.StatusOK, "question answered", gin.H{"message": msg})
}

// authorizedChat loads the chat from the path and rejects non-participants.
func (h *ChatHandler) authorizedChat(c *gin.Context) (models.Chat, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid chat id")
		return models.Chat{}, false
	}

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			respondError(c, http.StatusNotFound, "chat not found")
		} else {
			respondError(c, http.StatusInternalServerError, "failed to load chat")
		}
		return models.Chat{}, false
	}

	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chat.ID, c.GetInt("userID"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to verify membership")
		return models.Chat{}, false
	}
	if !member {
		respondError(c, http.StatusForbidden, "not a chat participant")
		return models.Chat{}, false
	}
	return chat, true
}

// notifyParticipants delivers an event to each participant's personal channel.
func (h *ChatHandler) notifyParticipants(c *gin.Context, chatID int, event models.Event) {
	if h.hub == nil {
		return
	}
	participants, err := h.chatRepo.Participants(c.Request.Context(), chatID)
	if err != nil {
		return
	}
	observability.IncBroadcast(event.Type)
	for _, p := range participants {
		h.hub.SendToUser(p.UserID, event)
	}
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
