package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trip-service/internal/mocks"
	"trip-service/internal/models"
	"trip-service/internal/repositories"
)

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/chats", handler.CreateDirectChat)
	r.GET("/chats", handler.ListChats)
	r.GET("/chats/:chat_id", handler.GetChat)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.SendChatMessage)
	r.POST("/chats/:chat_id/read", handler.MarkAsRead)
	r.DELETE("/chats/:chat_id/messages/:message_id", handler.DeleteMessage)
	r.POST("/trips/:trip_id/qa", handler.OpenTripQA)
	r.GET("/trips/:trip_id/questions", handler.ListQuestions)
	r.POST("/trips/:trip_id/questions/:message_id/answer", handler.AnswerQuestion)
	return r
}

func newChatHandlerWith(chatRepo *mocks.ChatRepositoryMock, messageRepo *mocks.ChatMessageRepositoryMock, tripRepo *mocks.TripRepositoryMock, userRepo *mocks.UserRepositoryMock) *ChatHandler {
	return NewChatHandler(chatRepo, messageRepo, tripRepo, userRepo, nil, nil)
}

func TestCreateDirectChatSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := newChatHandlerWith(chatRepo, new(mocks.ChatMessageRepositoryMock), new(mocks.TripRepositoryMock), userRepo)
	router := setupChatRouter(handler)

	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	chatRepo.On("CreateOrGetDirectChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10, Kind: models.ChatKindDirect}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats", bytesBuffer(`{"user_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	chatRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateDirectChatWithSelf(t *testing.T) {
	handler := newChatHandlerWith(new(mocks.ChatRepositoryMock), new(mocks.ChatMessageRepositoryMock), new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/chats", bytesBuffer(`{"user_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDirectChatUnknownUser(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := newChatHandlerWith(new(mocks.ChatRepositoryMock), new(mocks.ChatMessageRepositoryMock), new(mocks.TripRepositoryMock), userRepo)
	router := setupChatRouter(handler)

	userRepo.On("GetUser", mock.Anything, 99).Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats", bytesBuffer(`{"user_id":99}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestSendChatMessageSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	handler := newChatHandlerWith(chatRepo, messageRepo, new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10, Kind: models.ChatKindDirect}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 10, 1, "hi bob", models.ChatMessageText).Return(models.ChatMessage{ID: 7, ChatID: 10, SenderID: 1, Content: "hi bob"}, nil).Once()
	chatRepo.On("SetLastMessage", mock.Anything, 10, 7).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/10/messages", bytesBuffer(`{"content":"hi bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestSendChatMessageEmptyContent(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := newChatHandlerWith(chatRepo, new(mocks.ChatMessageRepositoryMock), new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/10/messages", bytesBuffer(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendChatMessageNonParticipant(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := newChatHandlerWith(chatRepo, new(mocks.ChatMessageRepositoryMock), new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/10/messages", bytesBuffer(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestQuestionRejectedInDirectChat(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := newChatHandlerWith(chatRepo, new(mocks.ChatMessageRepositoryMock), new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10, Kind: models.ChatKindDirect}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/10/messages", bytesBuffer(`{"content":"when do we leave?","type":"question"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkAsReadIdempotent(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	handler := newChatHandlerWith(chatRepo, messageRepo, new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10}, nil).Twice()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(true, nil).Twice()
	messageRepo.On("MarkAllRead", mock.Anything, 10, 1).Return(nil).Twice()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chats/10/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	messageRepo.AssertExpectations(t)
}

func TestDeleteMessageNotOwn(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	handler := newChatHandlerWith(chatRepo, messageRepo, new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(true, nil).Once()
	messageRepo.On("SoftDeleteMessage", mock.Anything, 7, 1).Return(repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/10/messages/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestOpenTripQAEnrollsCaller(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	tripRepo := new(mocks.TripRepositoryMock)
	handler := newChatHandlerWith(chatRepo, new(mocks.ChatMessageRepositoryMock), tripRepo, new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	tripRepo.On("GetTrip", mock.Anything, 5).Return(models.Trip{ID: 5, OrganizerID: 2}, nil).Once()
	chatRepo.On("EnsureTripQAChat", mock.Anything, 5).Return(models.Chat{ID: 20, Kind: models.ChatKindQA}, nil).Once()
	chatRepo.On("AddParticipant", mock.Anything, 20, 1, "member").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/trips/5/qa", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestAnswerQuestionSuccess(t *testing.T) {
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	tripRepo := new(mocks.TripRepositoryMock)
	handler := newChatHandlerWith(new(mocks.ChatRepositoryMock), messageRepo, tripRepo, new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	tripRepo.On("GetTrip", mock.Anything, 5).Return(models.Trip{ID: 5, OrganizerID: 1}, nil).Once()
	messageRepo.On("AnswerQuestion", mock.Anything, 7, 1, "at dawn").Return(models.ChatMessage{ID: 7, ChatID: 20, Answered: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/trips/5/questions/7/answer", bytesBuffer(`{"answer":"at dawn"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestAnswerQuestionNotOrganizer(t *testing.T) {
	tripRepo := new(mocks.TripRepositoryMock)
	handler := newChatHandlerWith(new(mocks.ChatRepositoryMock), new(mocks.ChatMessageRepositoryMock), tripRepo, new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	tripRepo.On("GetTrip", mock.Anything, 5).Return(models.Trip{ID: 5, OrganizerID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/trips/5/questions/7/answer", bytesBuffer(`{"answer":"at dawn"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnswerQuestionAlreadyAnswered(t *testing.T) {
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	tripRepo := new(mocks.TripRepositoryMock)
	handler := newChatHandlerWith(new(mocks.ChatRepositoryMock), messageRepo, tripRepo, new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	tripRepo.On("GetTrip", mock.Anything, 5).Return(models.Trip{ID: 5, OrganizerID: 1}, nil).Once()
	messageRepo.On("AnswerQuestion", mock.Anything, 7, 1, "at dawn").Return(models.ChatMessage{}, repositories.ErrAlreadyAnswered).Once()

	req := httptest.NewRequest(http.MethodPost, "/trips/5/questions/7/answer", bytesBuffer(`{"answer":"at dawn"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestListQuestionsAnsweredFilter(t *testing.T) {
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	tripRepo := new(mocks.TripRepositoryMock)
	handler := newChatHandlerWith(new(mocks.ChatRepositoryMock), messageRepo, tripRepo, new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	tripRepo.On("GetTrip", mock.Anything, 5).Return(models.Trip{ID: 5}, nil).Once()
	messageRepo.On("ListQuestions", mock.Anything, 5, mock.MatchedBy(func(answered *bool) bool {
		return answered != nil && !*answered
	})).Return([]models.ChatMessage{{ID: 7, Type: models.ChatMessageQuestion}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/trips/5/questions?answered=false", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestGetChatMessagesChronological(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.ChatMessageRepositoryMock)
	handler := newChatHandlerWith(chatRepo, messageRepo, new(mocks.TripRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 10).Return(models.Chat{ID: 10}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(true, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, 10, 0, 50).Return([]models.ChatMessage{{ID: 3}, {ID: 2}, {ID: 1}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/10/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"messages"`)

	// response order is oldest first
	body := rec.Body.String()
	require.Less(t, strings.Index(body, `"id":1`), strings.Index(body, `"id":3`))
	messageRepo.AssertExpectations(t)
}
