package historyctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/TayoO/embedchain/src/core/app"
)

type ChatMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	AppID     string    `gorm:"not null;index:idx_chat_session" json:"app_id"`
	SessionID string    `gorm:"not null;index:idx_chat_session" json:"session_id"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewHistoryService(db *gorm.DB, node *snowflake.Node) *HistoryService {
	return &HistoryService{
		db:        db,
		snowflake: node,
	}
}

func (s *HistoryService) AutoMigrate() error {
	return s.db.AutoMigrate(&ChatMessage{})
}

// Append implements app.HistoryStore. Snowflake ids keep the insertion
// order of messages saved in the same call.
func (s *HistoryService) Append(ctx context.Context, msgs ...*app.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	rows := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		rows[i] = ChatMessage{
			ID:        s.snowflake.Generate().Int64(),
			AppID:     m.AppID,
			SessionID: m.SessionID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}

	result := s.db.WithContext(ctx).Create(&rows)
	if result.Error != nil {
		return fmt.Errorf("failed to save chat messages: %v", result.Error)
	}
	for i := range msgs {
		msgs[i].ID = rows[i].ID
	}
	return nil
}

// Recent implements app.HistoryStore
func (s *HistoryService) Recent(ctx context.Context, appID, sessionID string, limit int) ([]app.ChatMessage, error) {
	var rows []ChatMessage
	result := s.db.WithContext(ctx).
		Where("app_id = ? AND session_id = ?", appID, sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list chat messages: %v", result.Error)
	}

	return toMessages(rows), nil
}

// DeleteByApp implements app.HistoryStore
func (s *HistoryService) DeleteByApp(ctx context.Context, appID string) error {
	result := s.db.WithContext(ctx).Where("app_id = ?", appID).Delete(&ChatMessage{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chat messages: %v", result.Error)
	}
	return nil
}

// toMessages reverses newest-first rows into chronological order.
func toMessages(rows []ChatMessage) []app.ChatMessage {
	out := make([]app.ChatMessage, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = app.ChatMessage{
			ID:        r.ID,
			AppID:     r.AppID,
			SessionID: r.SessionID,
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		}
	}
	return out
}
