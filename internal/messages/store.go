package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier is told about successful changes. Notifications are best effort.
type Notifier interface {
	NotifyMessageCreated(ctx context.Context, messageID string) error
	NotifyMessageLiked(ctx context.Context, messageID string) error
	NotifyMessageChanged(ctx context.Context, messageID string) error
}

// Store is the message CRUD service.
type Store struct {
	db       *gorm.DB
	notifier Notifier
	logger   *zap.Logger
}

// NewStore creates a Store. notifier may be nil.
func NewStore(db *gorm.DB, notifier Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, notifier: notifier, logger: logger}
}

// Migrate creates or updates the message tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Message{}, &Like{}); err != nil {
		return fmt.Errorf("failed to migrate messages: %w", err)
	}
	return nil
}

// Create stores a new message written by userID.
func (s *Store) Create(ctx context.Context, userID, text string) (*Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidMessage
	}

	msg := &Message{Text: text, UserID: userID, LikedBy: []Like{}}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.notify(ctx, "created", msg.ID, s.notifierCreated)
	return msg, nil
}

// List returns every live message, oldest first.
func (s *Store) List(ctx context.Context) ([]Message, error) {
	var msgs []Message
	err := s.db.WithContext(ctx).
		Preload("LikedBy").
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// Get returns one message with its likes.
func (s *Store) Get(ctx context.Context, id string) (*Message, error) {
	return s.get(s.db.WithContext(ctx), id)
}

// Update replaces a message's text.
func (s *Store) Update(ctx context.Context, id, text string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidMessage
	}

	res := s.db.WithContext(ctx).Model(&Message{}).Where("id = ?", id).Update("text", text)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update message %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update %s: %w", id, ErrMessageNotFound)
	}

	s.notify(ctx, "updated", id, s.notifierChanged)
	return s.Get(ctx, id)
}

// Delete soft-deletes a message.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Message{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrMessageNotFound)
	}

	s.notify(ctx, "deleted", id, s.notifierChanged)
	return nil
}

// Like records a like by userID. Liking twice changes nothing.
func (s *Store) Like(ctx context.Context, id, userID string) (*Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.get(tx, id); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Like{MessageID: id, UserID: userID})
		if res.Error != nil {
			return fmt.Errorf("failed to record like: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&Message{}).Where("id = ?", id).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "liked", id, s.notifierLiked)
	return s.Get(ctx, id)
}

// Unlike removes a like by userID. Unliking a message the user never liked
// changes nothing, and the count never drops below zero.
func (s *Store) Unlike(ctx context.Context, id, userID string) (*Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.get(tx, id); err != nil {
			return err
		}
		res := tx.Where("message_id = ? AND user_id = ?", id, userID).Delete(&Like{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove like: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&Message{}).Where("id = ?", id).
			UpdateColumn("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "unliked", id, s.notifierLiked)
	return s.Get(ctx, id)
}

func (s *Store) get(db *gorm.DB, id string) (*Message, error) {
	var msg Message
	err := db.Preload("LikedBy").Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("message %s: %w", id, ErrMessageNotFound)
		}
		return nil, fmt.Errorf("failed to load message %s: %w", id, err)
	}
	return &msg, nil
}

func (s *Store) notifierCreated(ctx context.Context, id string) error {
	return s.notifier.NotifyMessageCreated(ctx, id)
}

func (s *Store) notifierLiked(ctx context.Context, id string) error {
	return s.notifier.NotifyMessageLiked(ctx, id)
}

func (s *Store) notifierChanged(ctx context.Context, id string) error {
	return s.notifier.NotifyMessageChanged(ctx, id)
}

func (s *Store) notify(ctx context.Context, action, id string, fn func(context.Context, string) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(ctx, id); err != nil {
		s.logger.Warn("message notification failed",
			zap.String("action", action),
			zap.String("message_id", id),
			zap.Error(err))
	}
}
