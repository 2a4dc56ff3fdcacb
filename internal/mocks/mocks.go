package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trip-service/internal/models"
	"trip-service/internal/repositories"
)

type TripRepositoryMock struct {
	mock.Mock
}

func (m *TripRepositoryMock) CreateTrip(ctx context.Context, trip models.Trip) (models.Trip, error) {
	args := m.Called(ctx, trip)
	var out models.Trip
	if val := args.Get(0); val != nil {
		out = val.(models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) GetTrip(ctx context.Context, tripID int) (models.Trip, error) {
	args := m.Called(ctx, tripID)
	var out models.Trip
	if val := args.Get(0); val != nil {
		out = val.(models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) ListTrips(ctx context.Context, userID int) ([]models.Trip, error) {
	args := m.Called(ctx, userID)
	var out []models.Trip
	if val := args.Get(0); val != nil {
		out = val.([]models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) UpdateTrip(ctx context.Context, trip models.Trip) (models.Trip, error) {
	args := m.Called(ctx, trip)
	var out models.Trip
	if val := args.Get(0); val != nil {
		out = val.(models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) ApproveTrip(ctx context.Context, tripID int) error {
	args := m.Called(ctx, tripID)
	return args.Error(0)
}

func (m *TripRepositoryMock) DeleteTrip(ctx context.Context, tripID int) error {
	args := m.Called(ctx, tripID)
	return args.Error(0)
}

func (m *TripRepositoryMock) AddParticipant(ctx context.Context, tripID int, userID int) (models.Trip, error) {
	args := m.Called(ctx, tripID, userID)
	var out models.Trip
	if val := args.Get(0); val != nil {
		out = val.(models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) RemoveParticipant(ctx context.Context, tripID int, userID int) (models.Trip, error) {
	args := m.Called(ctx, tripID, userID)
	var out models.Trip
	if val := args.Get(0); val != nil {
		out = val.(models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) IsConfirmedParticipant(ctx context.Context, tripID int, userID int) (bool, error) {
	args := m.Called(ctx, tripID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *TripRepositoryMock) UpdateItinerary(ctx context.Context, tripID int, itinerary models.Itinerary) (models.Trip, error) {
	args := m.Called(ctx, tripID, itinerary)
	var out models.Trip
	if val := args.Get(0); val != nil {
		out = val.(models.Trip)
	}
	return out, args.Error(1)
}

func (m *TripRepositoryMock) TouchActivity(ctx context.Context, tripID int) error {
	args := m.Called(ctx, tripID)
	return args.Error(0)
}

type DiscussionRepositoryMock struct {
	mock.Mock
}

func (m *DiscussionRepositoryMock) GetOrCreateForTrip(ctx context.Context, tripID int) (models.Discussion, error) {
	args := m.Called(ctx, tripID)
	var out models.Discussion
	if val := args.Get(0); val != nil {
		out = val.(models.Discussion)
	}
	return out, args.Error(1)
}

func (m *DiscussionRepositoryMock) GetForTrip(ctx context.Context, tripID int) (models.Discussion, error) {
	args := m.Called(ctx, tripID)
	var out models.Discussion
	if val := args.Get(0); val != nil {
		out = val.(models.Discussion)
	}
	return out, args.Error(1)
}

func (m *DiscussionRepositoryMock) ListMessages(ctx context.Context, discussionID int, offset int, limit int) ([]models.DiscussionMessage, error) {
	args := m.Called(ctx, discussionID, offset, limit)
	var out []models.DiscussionMessage
	if val := args.Get(0); val != nil {
		out = val.([]models.DiscussionMessage)
	}
	return out, args.Error(1)
}

func (m *DiscussionRepositoryMock) CountMessages(ctx context.Context, discussionID int) (int, error) {
	args := m.Called(ctx, discussionID)
	return args.Int(0), args.Error(1)
}

func (m *DiscussionRepositoryMock) CreateMessage(ctx context.Context, discussionID int, msg repositories.NewDiscussionMessage) (models.DiscussionMessage, error) {
	args := m.Called(ctx, discussionID, msg)
	var out models.DiscussionMessage
	if val := args.Get(0); val != nil {
		out = val.(models.DiscussionMessage)
	}
	return out, args.Error(1)
}

func (m *DiscussionRepositoryMock) UpsertPresence(ctx context.Context, discussionID int, userID int, typing bool) error {
	args := m.Called(ctx, discussionID, userID, typing)
	return args.Error(0)
}

func (m *DiscussionRepositoryMock) ListPresence(ctx context.Context, discussionID int) ([]models.Presence, error) {
	args := m.Called(ctx, discussionID)
	var out []models.Presence
	if val := args.Get(0); val != nil {
		out = val.([]models.Presence)
	}
	return out, args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetDirectChat(ctx context.Context, userID int, otherID int) (models.Chat, error) {
	args := m.Called(ctx, userID, otherID)
	var out models.Chat
	if val := args.Get(0); val != nil {
		out = val.(models.Chat)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) EnsureTripQAChat(ctx context.Context, tripID int) (models.Chat, error) {
	args := m.Called(ctx, tripID)
	var out models.Chat
	if val := args.Get(0); val != nil {
		out = val.(models.Chat)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var out models.Chat
	if val := args.Get(0); val != nil {
		out = val.(models.Chat)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var out []models.ChatSummary
	if val := args.Get(0); val != nil {
		out = val.([]models.ChatSummary)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) Participants(ctx context.Context, chatID int) ([]models.ChatParticipant, error) {
	args := m.Called(ctx, chatID)
	var out []models.ChatParticipant
	if val := args.Get(0); val != nil {
		out = val.([]models.ChatParticipant)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) AddParticipant(ctx context.Context, chatID int, userID int, role string) error {
	args := m.Called(ctx, chatID, userID, role)
	return args.Error(0)
}

func (m *ChatRepositoryMock) SetLastMessage(ctx context.Context, chatID int, messageID int) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

type ChatMessageRepositoryMock struct {
	mock.Mock
}

func (m *ChatMessageRepositoryMock) CreateMessage(ctx context.Context, chatID int, senderID int, content string, msgType string) (models.ChatMessage, error) {
	args := m.Called(ctx, chatID, senderID, content, msgType)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *ChatMessageRepositoryMock) ListMessages(ctx context.Context, chatID int, offset int, limit int) ([]models.ChatMessage, error) {
	args := m.Called(ctx, chatID, offset, limit)
	var out []models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.([]models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *ChatMessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.ChatMessage, error) {
	args := m.Called(ctx, messageID)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *ChatMessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID int, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

func (m *ChatMessageRepositoryMock) MarkAllRead(ctx context.Context, chatID int, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ChatMessageRepositoryMock) ListQuestions(ctx context.Context, tripID int, answered *bool) ([]models.ChatMessage, error) {
	args := m.Called(ctx, tripID, answered)
	var out []models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.([]models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *ChatMessageRepositoryMock) AnswerQuestion(ctx context.Context, messageID int, userID int, answer string) (models.ChatMessage, error) {
	args := m.Called(ctx, messageID, userID, answer)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

type RatingRepositoryMock struct {
	mock.Mock
}

func (m *RatingRepositoryMock) UpsertRating(ctx context.Context, reviewerID int, targetType string, targetID int, score int, review string) (models.Rating, error) {
	args := m.Called(ctx, reviewerID, targetType, targetID, score, review)
	var out models.Rating
	if val := args.Get(0); val != nil {
		out = val.(models.Rating)
	}
	return out, args.Error(1)
}

func (m *RatingRepositoryMock) GetRating(ctx context.Context, ratingID int) (models.Rating, error) {
	args := m.Called(ctx, ratingID)
	var out models.Rating
	if val := args.Get(0); val != nil {
		out = val.(models.Rating)
	}
	return out, args.Error(1)
}

func (m *RatingRepositoryMock) ListVisible(ctx context.Context, targetType string, targetID int, offset int, limit int) ([]models.Rating, error) {
	args := m.Called(ctx, targetType, targetID, offset, limit)
	var out []models.Rating
	if val := args.Get(0); val != nil {
		out = val.([]models.Rating)
	}
	return out, args.Error(1)
}

func (m *RatingRepositoryMock) Stats(ctx context.Context, targetType string, targetID int) (models.RatingStats, error) {
	args := m.Called(ctx, targetType, targetID)
	var out models.RatingStats
	if val := args.Get(0); val != nil {
		out = val.(models.RatingStats)
	}
	return out, args.Error(1)
}

func (m *RatingRepositoryMock) VoteHelpful(ctx context.Context, ratingID int, userID int) (models.Rating, error) {
	args := m.Called(ctx, ratingID, userID)
	var out models.Rating
	if val := args.Get(0); val != nil {
		out = val.(models.Rating)
	}
	return out, args.Error(1)
}

func (m *RatingRepositoryMock) Report(ctx context.Context, ratingID int, userID int, reason string) (models.Rating, error) {
	args := m.Called(ctx, ratingID, userID, reason)
	var out models.Rating
	if val := args.Get(0); val != nil {
		out = val.(models.Rating)
	}
	return out, args.Error(1)
}

func (m *RatingRepositoryMock) ListByReviewer(ctx context.Context, reviewerID int) ([]models.Rating, error) {
	args := m.Called(ctx, reviewerID)
	var out []models.Rating
	if val := args.Get(0); val != nil {
		out = val.([]models.Rating)
	}
	return out, args.Error(1)
}

type OrderRepositoryMock struct {
	mock.Mock
}

func (m *OrderRepositoryMock) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	args := m.Called(ctx, order)
	var out models.Order
	if val := args.Get(0); val != nil {
		out = val.(models.Order)
	}
	return out, args.Error(1)
}

func (m *OrderRepositoryMock) GetOrder(ctx context.Context, orderID int) (models.Order, error) {
	args := m.Called(ctx, orderID)
	var out models.Order
	if val := args.Get(0); val != nil {
		out = val.(models.Order)
	}
	return out, args.Error(1)
}

func (m *OrderRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	var out []models.Order
	if val := args.Get(0); val != nil {
		out = val.([]models.Order)
	}
	return out, args.Error(1)
}

func (m *OrderRepositoryMock) SetStatus(ctx context.Context, orderID int, status string) (models.Order, error) {
	args := m.Called(ctx, orderID, status)
	var out models.Order
	if val := args.Get(0); val != nil {
		out = val.(models.Order)
	}
	return out, args.Error(1)
}

func (m *OrderRepositoryMock) Refund(ctx context.Context, orderID int, amount float64, reason string) (models.Order, error) {
	args := m.Called(ctx, orderID, amount, reason)
	var out models.Order
	if val := args.Get(0); val != nil {
		out = val.(models.Order)
	}
	return out, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var out []models.User
	if val := args.Get(0); val != nil {
		out = val.([]models.User)
	}
	return out, args.Error(1)
}
