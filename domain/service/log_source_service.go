package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/Harrysk/ibm.qradar/domain/entity"
	"github.com/Harrysk/ibm.qradar/domain/repository"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/shared/common"
)

const (
	msgIncompatibleType     = "Incompatible type provided, please consult QRadar Documentation for Log Source Types"
	msgIncompatibleProtocol = "Incompatible protocol_type_id provided, please consult QRadar Documentation for Log Source Types"
	msgNoProtocolTypes      = "Log source type has no protocol types, please consult QRadar Documentation for Log Source Types"
	msgNothingToDo          = "Nothing to do."
)

// LogSourceService reconciles a single QRadar log source with its desired state
type LogSourceService struct {
	repo   repository.LogSourceRepository
	logger *logging.Logger
}

// NewLogSourceService creates a new log source service
func NewLogSourceService(repo repository.LogSourceRepository, logger *logging.Logger) *LogSourceService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LogSourceService{
		repo:   repo,
		logger: logger.WithComponent("log_source_service"),
	}
}

// ResolveDesiredState looks up the requested log source type and builds the
// desired state, defaulting the protocol to the type's first protocol.
func (s *LogSourceService) ResolveDesiredState(ctx context.Context, params entity.LogSourceParams) (entity.DesiredLogSource, error) {
	filter := params.TypeFilter()
	if filter == "" {
		return entity.DesiredLogSource{}, common.ErrConfiguration("one of the following is required: type_name, type_id")
	}

	logSourceType, err := s.repo.FindType(ctx, filter)
	if err != nil {
		return entity.DesiredLogSource{}, fmt.Errorf("failed to look up log source type: %w", err)
	}
	if logSourceType == nil {
		return entity.DesiredLogSource{}, common.NewAppErrorWithDetails(common.ErrCodeConfiguration, msgIncompatibleType, "no log source type matches "+filter)
	}

	typeID := logSourceType.ID
	if params.TypeID != nil {
		typeID = *params.TypeID
	}

	var protocolTypeID int64
	if params.ProtocolTypeID != nil {
		if !logSourceType.SupportsProtocol(*params.ProtocolTypeID) {
			return entity.DesiredLogSource{}, common.ErrConfiguration(msgIncompatibleProtocol).
				WithContext("protocol_type_id", *params.ProtocolTypeID)
		}
		protocolTypeID = *params.ProtocolTypeID
	} else {
		if len(logSourceType.ProtocolTypes) == 0 {
			return entity.DesiredLogSource{}, common.ErrConfiguration(msgNoProtocolTypes).
				WithContext("type_id", logSourceType.ID)
		}
		protocolTypeID = logSourceType.ProtocolTypes[0].ProtocolID
	}

	s.logger.Debug("Resolved log source type",
		zap.String("type_name", logSourceType.Name),
		zap.Int64("type_id", typeID),
		zap.Int64("protocol_type_id", protocolTypeID),
	)

	return entity.NewDesiredLogSource(params.Name, params.Description, typeID, protocolTypeID, params.Identifier), nil
}

// Reconcile brings the named log source to the requested state. At most one
// create, update or delete call is issued, and none in check mode.
func (s *LogSourceService) Reconcile(ctx context.Context, params entity.LogSourceParams, checkMode bool) (*entity.LogSourceOutcome, error) {
	if params.State != entity.StatePresent && params.State != entity.StateAbsent {
		return nil, common.ErrValidationFailed(fmt.Sprintf("invalid state: %q", params.State))
	}

	existing, err := s.repo.FindByName(ctx, params.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up log source: %w", err)
	}

	switch {
	case existing == nil && params.State == entity.StateAbsent:
		return noChange(), nil
	case existing == nil:
		return s.create(ctx, params, checkMode)
	case params.State == entity.StateAbsent:
		return s.delete(ctx, params.Name, *existing, checkMode)
	default:
		return s.update(ctx, params, *existing, checkMode)
	}
}

func (s *LogSourceService) create(ctx context.Context, params entity.LogSourceParams, checkMode bool) (*entity.LogSourceOutcome, error) {
	desired, err := s.ResolveDesiredState(ctx, params)
	if err != nil {
		return nil, err
	}

	outcome := &entity.LogSourceOutcome{
		Action:  entity.ActionCreate,
		Changed: true,
		Message: fmt.Sprintf("Successfully created log source: %s", params.Name),
	}

	if checkMode {
		outcome.ReturnData = entity.CheckModeReturnData
		return outcome, nil
	}

	data, err := s.repo.Create(ctx, desired.RESTData())
	if err != nil {
		return nil, fmt.Errorf("failed to create log source: %w", err)
	}
	outcome.ReturnData = data
	return outcome, nil
}

func (s *LogSourceService) update(ctx context.Context, params entity.LogSourceParams, existing entity.LogSourceRecord, checkMode bool) (*entity.LogSourceOutcome, error) {
	desired, err := s.ResolveDesiredState(ctx, params)
	if err != nil {
		return nil, err
	}

	if InSync(existing, desired) {
		return noChange(), nil
	}

	outcome := &entity.LogSourceOutcome{
		Action:  entity.ActionUpdate,
		Changed: true,
		Message: fmt.Sprintf("Successfully updated log source: %s", params.Name),
	}

	if checkMode {
		outcome.ReturnData = entity.CheckModeReturnData
		return outcome, nil
	}

	data, err := s.repo.Update(ctx, desired.ApplyTo(existing))
	if err != nil {
		return nil, fmt.Errorf("failed to update log source: %w", err)
	}
	outcome.ReturnData = data
	return outcome, nil
}

func (s *LogSourceService) delete(ctx context.Context, name string, existing entity.LogSourceRecord, checkMode bool) (*entity.LogSourceOutcome, error) {
	if existing.ID == 0 {
		return nil, common.ErrNotFound(fmt.Sprintf("Unable to resolve the id of log source: %s", name))
	}

	outcome := &entity.LogSourceOutcome{
		Action:  entity.ActionDelete,
		Changed: true,
		Message: fmt.Sprintf("Successfully deleted log source: %s", name),
	}

	if checkMode {
		outcome.ReturnData = entity.CheckModeReturnData
		return outcome, nil
	}

	data, err := s.repo.Delete(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete log source: %w", err)
	}
	outcome.ReturnData = data
	return outcome, nil
}

// InSync reports whether the existing record already matches the desired
// identifier, name, type and description. Other fields are not compared.
func InSync(existing entity.LogSourceRecord, desired entity.DesiredLogSource) bool {
	identifier, idx := existing.IdentifierParameter()
	if idx < 0 {
		return false
	}

	return identifier.StringValue() == desired.Identifier() &&
		existing.Name == desired.Name() &&
		existing.TypeID == desired.TypeID() &&
		normalizeText(existing.DescriptionText()) == normalizeText(desired.Description())
}

func normalizeText(s string) string {
	return norm.NFC.String(s)
}

func noChange() *entity.LogSourceOutcome {
	return &entity.LogSourceOutcome{
		Action:  entity.ActionNone,
		Changed: false,
		Message: msgNothingToDo,
	}
}
