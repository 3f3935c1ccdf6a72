package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harrysk/ibm.qradar/domain/entity"
	"github.com/Harrysk/ibm.qradar/domain/repository"
	"github.com/Harrysk/ibm.qradar/domain/service"
	"github.com/Harrysk/ibm.qradar/pkg/ansible"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/pkg/metrics"
)

// OffenseModuleName is the Ansible module name of the offense use case
const OffenseModuleName = "qradar_offense_info"

// OffenseArgs are the arguments qradar_offense_info accepts
type OffenseArgs struct {
	ID              *int64 `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	Status          string `mapstructure:"status" validate:"omitempty,oneof=open OPEN hidden HIDDEN closed CLOSED"`
	AssignedTo      string `mapstructure:"assigned_to"`
	ClosingReason   string `mapstructure:"closing_reason"`
	ClosingReasonID *int64 `mapstructure:"closing_reason_id" validate:"excluded_with=ClosingReason"`
	FollowUp        *bool  `mapstructure:"follow_up"`
	Protected       *bool  `mapstructure:"protected"`
}

// Params maps the decoded arguments onto OffenseParams. The status is
// upper-cased; its choices have already been checked.
func (a OffenseArgs) Params() entity.OffenseParams {
	status, _ := entity.ParseOffenseStatus(a.Status)
	return entity.OffenseParams{
		ID:              a.ID,
		Name:            a.Name,
		Status:          status,
		AssignedTo:      a.AssignedTo,
		ClosingReason:   a.ClosingReason,
		ClosingReasonID: a.ClosingReasonID,
		FollowUp:        a.FollowUp,
		Protected:       a.Protected,
	}
}

// OffenseUseCase runs one qradar_offense_info invocation
type OffenseUseCase struct {
	repo    repository.OffenseRepository
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewOffenseUseCase creates a new OffenseUseCase. metrics may be nil.
func NewOffenseUseCase(repo repository.OffenseRepository, logger *logging.Logger, metrics *metrics.Collector) *OffenseUseCase {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OffenseUseCase{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// Handle looks up offenses. Lookups are read-only and run in check mode too.
func (uc *OffenseUseCase) Handle(ctx context.Context, inv ansible.Invocation[OffenseArgs]) ansible.Result {
	timer := metrics.NewTimer()
	logger := uc.logger.WithInvocation(uuid.NewString()).WithComponent("offense_usecase")

	params := inv.Params.Params()
	svc := service.NewOffenseService(uc.repo, logger)

	outcome, err := svc.Lookup(ctx, params)
	if err != nil {
		logger.WithError(err).Error("Offense lookup failed")
		recordFailure(uc.metrics, OffenseModuleName, "offense_usecase", err, timer)
		return ansible.Failure("", err)
	}

	logger.Info("Offense lookup finished",
		zap.String("action", string(outcome.Action)),
		zap.Int("count", len(outcome.Offenses)),
	)
	recordSuccess(uc.metrics, OffenseModuleName, string(outcome.Action), inv.CheckMode, timer)

	return ansible.Success(false, outcome.Message, map[string]interface{}{
		"offenses": outcome.Offenses,
	})
}
