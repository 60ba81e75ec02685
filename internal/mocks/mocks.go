package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/angga0x/ownchat/internal/models"
	"github.com/angga0x/ownchat/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	args := m.Called(ctx, username, passwordHash)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, id int) (models.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *UserRepositoryMock) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SetOnline(ctx context.Context, id int, online bool) error {
	args := m.Called(ctx, id, online)
	return args.Error(0)
}

func (m *UserRepositoryMock) PinChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	args := m.Called(ctx, userID, partnerID)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *UserRepositoryMock) UnpinChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	args := m.Called(ctx, userID, partnerID)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *UserRepositoryMock) ArchiveChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	args := m.Called(ctx, userID, partnerID)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *UserRepositoryMock) UnarchiveChat(ctx context.Context, userID, partnerID int) (models.User, error) {
	args := m.Called(ctx, userID, partnerID)
	return userArg(args.Get(0)), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, senderID, receiverID int, content, imagePath *string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, content, imagePath)
	return messageArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	return messageArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) GetMessagesBetween(ctx context.Context, userA, userB int) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	return messagesArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) GetUndelivered(ctx context.Context, receiverID int) ([]models.Message, error) {
	args := m.Called(ctx, receiverID)
	return messagesArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) MarkDelivered(ctx context.Context, receiverID int) ([]models.Message, error) {
	args := m.Called(ctx, receiverID)
	return messagesArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, senderID, receiverID int) ([]models.Message, error) {
	args := m.Called(ctx, senderID, receiverID)
	return messagesArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) DeleteForMe(ctx context.Context, messageID, viewerID int) (models.Message, error) {
	args := m.Called(ctx, messageID, viewerID)
	return messageArg(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) DeleteForAll(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	return messageArg(args.Get(0)), args.Error(1)
}

func userArg(val interface{}) models.User {
	if val == nil {
		return models.User{}
	}
	return val.(models.User)
}

func messageArg(val interface{}) models.Message {
	if val == nil {
		return models.Message{}
	}
	return val.(models.Message)
}

func messagesArg(val interface{}) []models.Message {
	if val == nil {
		return nil
	}
	return val.([]models.Message)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
