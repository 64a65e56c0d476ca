package datasourcectrl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/TayoO/embedchain/src/core/app"
)

type DataSource struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	AppID     string    `gorm:"not null;index" json:"app_id"`
	DocID     string    `gorm:"not null;index" json:"doc_id"`
	DataType  string    `gorm:"not null" json:"data_type"`
	Source    string    `gorm:"not null" json:"source"`
	Chunks    int       `gorm:"not null" json:"chunks"`
	Metadata  []byte    `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DataSourceService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

// NewDataSourceService stores data sources with ids from node. Every
// process writing to the table needs its own node number.
func NewDataSourceService(db *gorm.DB, node *snowflake.Node) *DataSourceService {
	return &DataSourceService{
		db:        db,
		snowflake: node,
	}
}

func (s *DataSourceService) AutoMigrate() error {
	return s.db.AutoMigrate(&DataSource{})
}

// Save implements app.DataSourceStore
func (s *DataSourceService) Save(ctx context.Context, src *app.DataSource) error {
	row, err := toRow(src)
	if err != nil {
		return err
	}
	row.ID = s.snowflake.Generate().Int64()

	result := s.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to create data source: %v", result.Error)
	}

	src.ID = row.ID
	src.CreatedAt = row.CreatedAt
	return nil
}

// List implements app.DataSourceStore
func (s *DataSourceService) List(ctx context.Context, appID string) ([]app.DataSource, error) {
	var rows []DataSource
	result := s.db.WithContext(ctx).Where("app_id = ?", appID).Order("created_at").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list data sources: %v", result.Error)
	}

	out := make([]app.DataSource, 0, len(rows))
	for i := range rows {
		src, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// DeleteByApp implements app.DataSourceStore
func (s *DataSourceService) DeleteByApp(ctx context.Context, appID string) error {
	result := s.db.WithContext(ctx).Where("app_id = ?", appID).Delete(&DataSource{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete data sources: %v", result.Error)
	}
	return nil
}

func toRow(src *app.DataSource) (*DataSource, error) {
	var meta []byte
	if len(src.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(src.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}
	return &DataSource{
		AppID:     src.AppID,
		DocID:     src.DocID,
		DataType:  string(src.DataType),
		Source:    src.Source,
		Chunks:    src.Chunks,
		Metadata:  meta,
		CreatedAt: src.CreatedAt,
	}, nil
}

func fromRow(row *DataSource) (app.DataSource, error) {
	src := app.DataSource{
		ID:        row.ID,
		AppID:     row.AppID,
		DocID:     row.DocID,
		DataType:  app.DataType(row.DataType),
		Source:    row.Source,
		Chunks:    row.Chunks,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &src.Metadata); err != nil {
			return app.DataSource{}, fmt.Errorf("failed to decode metadata of data source %d: %w", row.ID, err)
		}
	}
	return src, nil
}
