package repository

import (
	"context"
	"encoding/json"

	"github.com/Harrysk/ibm.qradar/domain/entity"
)

// LogSourceRepository defines the QRadar log source management operations
type LogSourceRepository interface {
	// Lookup operations
	FindByName(ctx context.Context, name string) (*entity.LogSourceRecord, error)
	FindType(ctx context.Context, filter string) (*entity.LogSourceType, error)

	// Mutating operations. Each returns the raw API response.
	Create(ctx context.Context, request entity.LogSourceCreateRequest) (json.RawMessage, error)
	Update(ctx context.Context, record entity.LogSourceRecord) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) (json.RawMessage, error)
}

// OffenseRepository defines the QRadar offense read operations
type OffenseRepository interface {
	// GetByID returns nil when the offense does not exist
	GetByID(ctx context.Context, id int64) (*entity.Offense, error)
	Query(ctx context.Context, queryString string) ([]entity.Offense, error)
	FindClosingReason(ctx context.Context, text string) (*entity.ClosingReason, error)
}
