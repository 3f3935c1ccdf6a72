package qradar

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harrysk/ibm.qradar/domain/entity"
	"github.com/Harrysk/ibm.qradar/domain/repository"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/shared/common"
)

const (
	logSourcesPath     = "api/config/event_sources/log_source_management/log_sources"
	logSourceTypesPath = "api/config/event_sources/log_source_management/log_source_types"
)

// LogSourceRepository implements repository.LogSourceRepository on the QRadar REST API
type LogSourceRepository struct {
	client *Client
	logger *logging.Logger
}

var _ repository.LogSourceRepository = (*LogSourceRepository)(nil)

// NewLogSourceRepository creates a new log source repository
func NewLogSourceRepository(client *Client, logger *logging.Logger) *LogSourceRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LogSourceRepository{
		client: client,
		logger: logger.WithComponent("log_source_repository"),
	}
}

// FindByName returns the first log source whose name matches exactly, or nil
func (r *LogSourceRepository) FindByName(ctx context.Context, name string) (*entity.LogSourceRecord, error) {
	path := logSourcesPath + "?filter=" + escapeFilter(`name="`+name+`"`)

	data, err := r.client.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	var records []entity.LogSourceRecord
	if err := decodeList(data, &records); err != nil {
		return nil, common.WrapError(err, common.ErrCodeTransport, "failed to decode log sources")
	}

	r.logger.Debug("Looked up log source", debugFields(path, zap.Int("matches", len(records)))...)

	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// FindType returns the first log source type matching filter, or nil
func (r *LogSourceRepository) FindType(ctx context.Context, filter string) (*entity.LogSourceType, error) {
	path := logSourceTypesPath + "?filter=" + escapeFilter(filter)

	data, err := r.client.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	var types []entity.LogSourceType
	if err := decodeList(data, &types); err != nil {
		return nil, common.WrapError(err, common.ErrCodeTransport, "failed to decode log source types")
	}

	r.logger.Debug("Looked up log source type", debugFields(path, zap.Int("matches", len(types)))...)

	if len(types) == 0 {
		return nil, nil
	}
	return &types[0], nil
}

// Create posts a one-element list holding the new log source
func (r *LogSourceRepository) Create(ctx context.Context, request entity.LogSourceCreateRequest) (json.RawMessage, error) {
	return r.client.CreateUpdate(ctx, logSourcesPath, []entity.LogSourceCreateRequest{request})
}

// Update posts the whole replacement record, unknown fields included
func (r *LogSourceRepository) Update(ctx context.Context, record entity.LogSourceRecord) (json.RawMessage, error) {
	return r.client.CreateUpdate(ctx, logSourcesPath, []entity.LogSourceRecord{record})
}

// Delete removes the log source with the given id
func (r *LogSourceRepository) Delete(ctx context.Context, id int64) (json.RawMessage, error) {
	return r.client.DeleteByPath(ctx, fmt.Sprintf("%s/%d", logSourcesPath, id))
}

// decodeList decodes a JSON array. An empty body decodes as an empty list.
func decodeList(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
