package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/repository"
)

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrChatAccessDenied  = errors.New("not a participant of this chat")
	ErrNoTrainerAssigned = errors.New("no trainer assigned")
)

// Send paths, used as the metrics label.
const (
	PathHTTP = "http"
	PathWS   = "ws"
)

// Broadcaster publishes chat events to the chat's broadcast group.
type Broadcaster interface {
	Publish(ctx context.Context, chatID, event string, payload interface{}) error
	// Reset announces a replacement chat to oldChatID's group and moves it to newChatID.
	Reset(ctx context.Context, oldChatID, newChatID string, payload interface{}) error
}

// ChatReset is the chatReset payload.
type ChatReset struct {
	OldChatID primitive.ObjectID `json:"oldChatId"`
	Chat      *domain.Chat       `json:"chat"`
}

// MessageDeleted is the messageDeleted payload.
type MessageDeleted struct {
	ChatID    primitive.ObjectID `json:"chatId"`
	MessageID primitive.ObjectID `json:"messageId"`
}

type ChatService interface {
	ForMember(ctx context.Context, actor Actor) (*domain.ChatWithMessages, error)
	ForTrainer(ctx context.Context, actor Actor, memberID primitive.ObjectID) (*domain.ChatWithMessages, error)
	// Join resolves the chat for a pair of profiles on behalf of one of its participants.
	// It does not read history: live viewers subscribe first, then call History.
	Join(ctx context.Context, actor Actor, memberID, trainerID primitive.ObjectID) (*domain.Chat, error)
	History(ctx context.Context, chat *domain.Chat) (*domain.ChatWithMessages, error)

	// Send is the single write path for messages; it persists and then broadcasts.
	Send(ctx context.Context, actor Actor, chatID primitive.ObjectID, content, path string) (*domain.Message, error)
	SendAsMember(ctx context.Context, actor Actor, content, path string) (*domain.Message, error)
	SendAsTrainer(ctx context.Context, actor Actor, memberID primitive.ObjectID, content, path string) (*domain.Message, error)

	// DeleteChat wipes the chat and returns its empty replacement for the same pair.
	DeleteChat(ctx context.Context, actor Actor, chatID primitive.ObjectID) (*domain.Chat, error)
	DeleteMessage(ctx context.Context, actor Actor, messageID primitive.ObjectID) error
}

type chatService struct {
	tx          repository.TxManager
	chats       repository.ChatRepository
	members     repository.MemberRepository
	trainers    repository.TrainerRepository
	broadcaster Broadcaster
	metrics     Metrics
	log         logrus.FieldLogger
}

// NewChatService wires chat persistence to the broadcaster. metrics may be nil.
func NewChatService(
	tx repository.TxManager,
	chats repository.ChatRepository,
	members repository.MemberRepository,
	trainers repository.TrainerRepository,
	broadcaster Broadcaster,
	metrics Metrics,
	log logrus.FieldLogger,
) ChatService {
	return &chatService{
		tx:          tx,
		chats:       chats,
		members:     members,
		trainers:    trainers,
		broadcaster: broadcaster,
		metrics:     metricsOrNop(metrics),
		log:         loggerOrDiscard(log),
	}
}

func (s *chatService) withMessages(ctx context.Context, chat *domain.Chat) (*domain.ChatWithMessages, error) {
	messages, err := s.chats.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &domain.ChatWithMessages{Chat: *chat, Messages: messages}, nil
}

// memberChat returns the chat between the calling member and their assigned trainer.
func (s *chatService) memberChat(ctx context.Context, actor Actor) (*domain.Chat, error) {
	member, err := memberByUser(ctx, s.members, actor.UserID)
	if err != nil {
		return nil, err
	}
	if member.TrainerID == nil {
		return nil, ErrNoTrainerAssigned
	}
	return s.chats.GetOrCreate(ctx, member.ID, *member.TrainerID)
}

// trainerChat returns the chat between the calling trainer and one of their members.
func (s *chatService) trainerChat(ctx context.Context, actor Actor, memberID primitive.ObjectID) (*domain.Chat, error) {
	trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
	if err != nil {
		return nil, err
	}
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	if !member.HasTrainer(trainer.ID) {
		return nil, ErrMemberNotAssigned
	}
	return s.chats.GetOrCreate(ctx, member.ID, trainer.ID)
}

func (s *chatService) ForMember(ctx context.Context, actor Actor) (*domain.ChatWithMessages, error) {
	chat, err := s.memberChat(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.withMessages(ctx, chat)
}

func (s *chatService) ForTrainer(ctx context.Context, actor Actor, memberID primitive.ObjectID) (*domain.ChatWithMessages, error) {
	chat, err := s.trainerChat(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}
	return s.withMessages(ctx, chat)
}

func (s *chatService) Join(ctx context.Context, actor Actor, memberID, trainerID primitive.ObjectID) (*domain.Chat, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	trainer, err := s.trainers.GetByID(ctx, trainerID)
	if err != nil {
		return nil, notFound(err, ErrTrainerNotFound)
	}
	if !actor.IsAdmin() {
		if actor.UserID != member.UserID && actor.UserID != trainer.UserID {
			return nil, ErrChatAccessDenied
		}
		if !member.HasTrainer(trainer.ID) {
			return nil, ErrMemberNotAssigned
		}
	}
	return s.chats.GetOrCreate(ctx, member.ID, trainer.ID)
}

func (s *chatService) History(ctx context.Context, chat *domain.Chat) (*domain.ChatWithMessages, error) {
	return s.withMessages(ctx, chat)
}

// authorize checks that actor takes part in chat, returning the role it speaks as.
func (s *chatService) authorize(ctx context.Context, actor Actor, chat *domain.Chat) (domain.Role, error) {
	switch actor.Role {
	case domain.RoleMember:
		member, err := memberByUser(ctx, s.members, actor.UserID)
		if err != nil {
			return "", err
		}
		if member.ID == chat.MemberID {
			return domain.RoleMember, nil
		}
	case domain.RoleTrainer:
		trainer, err := trainerByUser(ctx, s.trainers, actor.UserID)
		if err != nil {
			return "", err
		}
		if trainer.ID == chat.TrainerID {
			return domain.RoleTrainer, nil
		}
	}
	return "", ErrChatAccessDenied
}

func (s *chatService) getChat(ctx context.Context, chatID primitive.ObjectID) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, notFound(err, ErrChatNotFound)
	}
	return chat, nil
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", validationError("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return "", validationError("message content exceeds %d characters", domain.MaxMessageLength)
	}
	return content, nil
}

func (s *chatService) Send(ctx context.Context, actor Actor, chatID primitive.ObjectID, content, path string) (*domain.Message, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, actor, chat, content, path)
}

func (s *chatService) send(ctx context.Context, actor Actor, chat *domain.Chat, content, path string) (*domain.Message, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	role, err := s.authorize(ctx, actor, chat)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ChatID:     chat.ID,
		SenderID:   actor.UserID,
		SenderRole: role,
		Content:    content,
	}
	if _, err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.metrics.MessageSent(path)
	s.broadcast(ctx, chat.ID, realtime.EventNewMessage, msg)
	return msg, nil
}

func (s *chatService) SendAsMember(ctx context.Context, actor Actor, content, path string) (*domain.Message, error) {
	chat, err := s.memberChat(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, actor, chat, content, path)
}

func (s *chatService) SendAsTrainer(ctx context.Context, actor Actor, memberID primitive.ObjectID, content, path string) (*domain.Message, error) {
	chat, err := s.trainerChat(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, actor, chat, content, path)
}

func (s *chatService) DeleteChat(ctx context.Context, actor Actor, chatID primitive.ObjectID) (*domain.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if _, err := s.authorize(ctx, actor, chat); err != nil {
			return nil, err
		}
	}

	var replacement *domain.Chat
	var removed int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if removed, err = s.chats.DeleteMessages(ctx, chat.ID); err != nil {
			return err
		}
		if err := s.chats.Delete(ctx, chat.ID); err != nil {
			return notFound(err, ErrChatNotFound)
		}
		replacement, err = s.chats.GetOrCreate(ctx, chat.MemberID, chat.TrainerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"oldChatId": chat.ID.Hex(),
		"chatId":    replacement.ID.Hex(),
		"messages":  removed,
	}).Info("chat reset")
	if s.broadcaster != nil {
		payload := ChatReset{OldChatID: chat.ID, Chat: replacement}
		if err := s.broadcaster.Reset(ctx, chat.ID.Hex(), replacement.ID.Hex(), payload); err != nil {
			s.log.WithError(err).WithField("chatId", chat.ID.Hex()).Warn("chat reset broadcast failed")
		}
	}
	return replacement, nil
}

func (s *chatService) DeleteMessage(ctx context.Context, actor Actor, messageID primitive.ObjectID) error {
	if actor.Role != domain.RoleTrainer && !actor.IsAdmin() {
		return ErrForbidden
	}
	msg, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		return notFound(err, ErrMessageNotFound)
	}
	chat, err := s.getChat(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if _, err := s.authorize(ctx, actor, chat); err != nil {
			return err
		}
	}
	if err := s.chats.DeleteMessage(ctx, messageID); err != nil {
		return notFound(err, ErrMessageNotFound)
	}
	s.broadcast(ctx, chat.ID, realtime.EventMessageDeleted, MessageDeleted{ChatID: chat.ID, MessageID: messageID})
	return nil
}

// broadcast is best effort: the write already succeeded.
func (s *chatService) broadcast(ctx context.Context, chatID primitive.ObjectID, event string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, chatID.Hex(), event, payload); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"chatId": chatID.Hex(), "event": event}).Warn("broadcast failed")
	}
}
