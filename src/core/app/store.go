package app

import (
	"context"
	"time"
)

// DataSource is one document added to an app.
type DataSource struct {
	ID        int64          `json:"id,string"`
	AppID     string         `json:"app_id"`
	DocID     string         `json:"doc_id"`
	DataType  DataType       `json:"data_type"`
	Source    string         `json:"source"`
	Chunks    int            `json:"chunks"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DataSourceStore records what was added to each app
type DataSourceStore interface {
	Save(ctx context.Context, src *DataSource) error
	List(ctx context.Context, appID string) ([]DataSource, error)
	DeleteByApp(ctx context.Context, appID string) error
}

const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

type ChatMessage struct {
	ID        int64     `json:"id,string"`
	AppID     string    `json:"app_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore keeps chat exchanges per app and session
type HistoryStore interface {
	Append(ctx context.Context, msgs ...*ChatMessage) error
	// Recent returns at most limit messages, oldest first
	Recent(ctx context.Context, appID, sessionID string, limit int) ([]ChatMessage, error)
	DeleteByApp(ctx context.Context, appID string) error
}
