package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harrysk/ibm.qradar/domain/entity"
	"github.com/Harrysk/ibm.qradar/domain/repository"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/shared/common"
)

const msgNoQuery = "No changes necessary. Nothing to do."

// OffenseService looks up QRadar offenses by id or by filters
type OffenseService struct {
	repo   repository.OffenseRepository
	logger *logging.Logger
}

// NewOffenseService creates a new offense service
func NewOffenseService(repo repository.OffenseRepository, logger *logging.Logger) *OffenseService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OffenseService{
		repo:   repo,
		logger: logger.WithComponent("offense_service"),
	}
}

// ResolveQuery turns module arguments into a query, resolving a closing
// reason text into its id.
func (s *OffenseService) ResolveQuery(ctx context.Context, params entity.OffenseParams) (entity.OffenseQuery, error) {
	closingReasonID := params.ClosingReasonID

	if params.ClosingReason != "" {
		reason, err := s.repo.FindClosingReason(ctx, params.ClosingReason)
		if err != nil {
			return entity.OffenseQuery{}, fmt.Errorf("failed to look up closing reason: %w", err)
		}
		if reason == nil {
			return entity.OffenseQuery{}, common.ErrNotFound(
				fmt.Sprintf("Unable to find closing_reason text: %s", params.ClosingReason))
		}
		id := reason.ID
		closingReasonID = &id
	}

	if params.Name != "" {
		s.logger.Debug("Offense name is not used for lookups", zap.String("name", params.Name))
	}

	return entity.NewOffenseQuery(params, closingReasonID), nil
}

// Lookup fetches a single offense when an id is given, otherwise every offense
// matching the supplied filters. No filters means nothing is fetched.
func (s *OffenseService) Lookup(ctx context.Context, params entity.OffenseParams) (*entity.OffenseOutcome, error) {
	query, err := s.ResolveQuery(ctx, params)
	if err != nil {
		return nil, err
	}

	if id, ok := query.OffenseID(); ok {
		offense, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch offense: %w", err)
		}
		if offense == nil {
			return nil, common.ErrNotFound(fmt.Sprintf("Unable to find Offense ID: %d", id))
		}
		return &entity.OffenseOutcome{
			Action:   entity.ActionQuery,
			Message:  fmt.Sprintf("Found Offense ID: %d", id),
			Offenses: []entity.Offense{*offense},
		}, nil
	}

	queryString := query.QueryString()
	if queryString == "" {
		return &entity.OffenseOutcome{
			Action:   entity.ActionNone,
			Message:  msgNoQuery,
			Offenses: []entity.Offense{},
		}, nil
	}

	offenses, err := s.repo.Query(ctx, queryString)
	if err != nil {
		return nil, fmt.Errorf("failed to query offenses: %w", err)
	}
	if offenses == nil {
		offenses = []entity.Offense{}
	}

	ids := make([]int64, 0, len(offenses))
	for _, offense := range offenses {
		ids = append(ids, offense.ID)
	}
	s.logger.Debug("Queried offenses",
		zap.String("query", queryString),
		zap.Int64s("offense_ids", ids),
	)

	return &entity.OffenseOutcome{
		Action:   entity.ActionQuery,
		Message:  fmt.Sprintf("Found %d offenses", len(offenses)),
		Offenses: offenses,
	}, nil
}
