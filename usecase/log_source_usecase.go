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

// LogSourceModuleName is the Ansible module name of the log source use case
const LogSourceModuleName = "qradar_log_source_management"

// LogSourceArgs are the arguments qradar_log_source_management accepts.
// Exactly one of type_name and type_id must be given.
type LogSourceArgs struct {
	Name           string  `mapstructure:"name" validate:"required"`
	State          string  `mapstructure:"state" validate:"required,oneof=present absent"`
	TypeName       string  `mapstructure:"type_name" validate:"required_without=TypeID"`
	TypeID         *int64  `mapstructure:"type_id" validate:"excluded_with=TypeName"`
	Identifier     string  `mapstructure:"identifier" validate:"required"`
	ProtocolTypeID *int64  `mapstructure:"protocol_type_id"`
	Description    *string `mapstructure:"description" validate:"required"`
}

// Params maps the decoded arguments onto LogSourceParams
func (a LogSourceArgs) Params() entity.LogSourceParams {
	var description string
	if a.Description != nil {
		description = *a.Description
	}
	return entity.LogSourceParams{
		Name:           a.Name,
		State:          entity.State(a.State),
		TypeName:       a.TypeName,
		TypeID:         a.TypeID,
		Identifier:     a.Identifier,
		ProtocolTypeID: a.ProtocolTypeID,
		Description:    description,
	}
}

// LogSourceUseCase runs one qradar_log_source_management invocation
type LogSourceUseCase struct {
	repo    repository.LogSourceRepository
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewLogSourceUseCase creates a new LogSourceUseCase. metrics may be nil.
func NewLogSourceUseCase(repo repository.LogSourceRepository, logger *logging.Logger, metrics *metrics.Collector) *LogSourceUseCase {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LogSourceUseCase{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// Handle reconciles the requested log source and reports the module result
func (uc *LogSourceUseCase) Handle(ctx context.Context, inv ansible.Invocation[LogSourceArgs]) ansible.Result {
	timer := metrics.NewTimer()
	logger := uc.logger.WithInvocation(uuid.NewString()).
		WithComponent("log_source_usecase").
		WithFields(zap.Bool("check_mode", inv.CheckMode))

	params := inv.Params.Params()
	svc := service.NewLogSourceService(uc.repo, logger)

	outcome, err := svc.Reconcile(ctx, params, inv.CheckMode)
	if err != nil {
		logger.WithError(err).Error("Log source reconciliation failed",
			zap.String("name", params.Name),
			zap.String("state", string(params.State)),
		)
		recordFailure(uc.metrics, LogSourceModuleName, "log_source_usecase", err, timer)
		return ansible.Failure("", err)
	}

	logger.LogChange(string(outcome.Action), "log_source", outcome.Changed, inv.CheckMode,
		zap.String("name", params.Name),
	)
	recordSuccess(uc.metrics, LogSourceModuleName, string(outcome.Action), inv.CheckMode, timer)

	var data map[string]interface{}
	if outcome.Changed {
		data = map[string]interface{}{"qradar_return_data": outcome.ReturnData}
	}
	return ansible.Success(outcome.Changed, outcome.Message, data)
}
