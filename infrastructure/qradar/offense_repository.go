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
	offensesPath       = "api/siem/offenses"
	closingReasonsPath = "api/siem/offense_closing_reasons"
)

// OffenseRepository implements repository.OffenseRepository on the QRadar REST API
type OffenseRepository struct {
	client *Client
	logger *logging.Logger
}

var _ repository.OffenseRepository = (*OffenseRepository)(nil)

// NewOffenseRepository creates a new offense repository
func NewOffenseRepository(client *Client, logger *logging.Logger) *OffenseRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OffenseRepository{
		client: client,
		logger: logger.WithComponent("offense_repository"),
	}
}

// GetByID fetches a single offense. A 404 or an empty body yields nil.
func (r *OffenseRepository) GetByID(ctx context.Context, id int64) (*entity.Offense, error) {
	path := fmt.Sprintf("%s/%d", offensesPath, id)

	data, err := r.client.GetByPath(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			r.logger.Debug("Offense not found", debugFields(path, zap.Int64("offense_id", id))...)
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var offense entity.Offense
	if err := json.Unmarshal(data, &offense); err != nil {
		return nil, common.WrapError(err, common.ErrCodeTransport, "failed to decode offense")
	}
	return &offense, nil
}

// Query lists offenses using a prebuilt query string
func (r *OffenseRepository) Query(ctx context.Context, queryString string) ([]entity.Offense, error) {
	path := offensesPath + "?" + queryString

	data, err := r.client.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	var offenses []entity.Offense
	if err := decodeList(data, &offenses); err != nil {
		return nil, common.WrapError(err, common.ErrCodeTransport, "failed to decode offenses")
	}

	r.logger.Debug("Queried offenses", debugFields(path, zap.Int("matches", len(offenses)))...)
	return offenses, nil
}

// FindClosingReason returns the closing reason whose text matches exactly, or nil
func (r *OffenseRepository) FindClosingReason(ctx context.Context, text string) (*entity.ClosingReason, error) {
	path := closingReasonsPath + "?filter=" + escapeFilter(`text="`+text+`"`)

	data, err := r.client.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	var reasons []entity.ClosingReason
	if err := decodeList(data, &reasons); err != nil {
		return nil, common.WrapError(err, common.ErrCodeTransport, "failed to decode closing reasons")
	}

	if len(reasons) == 0 {
		return nil, nil
	}
	return &reasons[0], nil
}
