package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/Harrysk/ibm.qradar/domain/entity"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/shared/common"
)

var apacheType = &entity.LogSourceType{
	ID:   10,
	Name: "Apache",
	ProtocolTypes: []entity.ProtocolType{
		{ProtocolID: 0},
		{ProtocolID: 12},
	},
}

type LogSourceServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *mockLogSourceRepository
	service *LogSourceService
}

func (s *LogSourceServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = new(mockLogSourceRepository)
	s.service = NewLogSourceService(s.repo, logging.FromZap(zaptest.NewLogger(s.T()), "test"))
}

func (s *LogSourceServiceTestSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
}

func (s *LogSourceServiceTestSuite) params(state entity.State) entity.LogSourceParams {
	return entity.LogSourceParams{
		Name:        "web-srv-01",
		State:       state,
		TypeName:    "Apache",
		Identifier:  "10.0.0.5",
		Description: "Apache front end",
	}
}

func (s *LogSourceServiceTestSuite) existing() *entity.LogSourceRecord {
	var record entity.LogSourceRecord
	require.NoError(s.T(), json.Unmarshal([]byte(`{
		"id": 42,
		"name": "web-srv-01",
		"description": "Apache front end",
		"type_id": 10,
		"enabled": true,
		"protocol_parameters": [{"id": 0, "name": "identifier", "value": "10.0.0.5"}]
	}`), &record))
	return &record
}

func (s *LogSourceServiceTestSuite) TestCreateWhenMissing() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(nil, nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(apacheType, nil).Once()
	s.repo.On("Create", s.ctx, mock.AnythingOfType("entity.LogSourceCreateRequest")).
		Return(json.RawMessage(`[{"id": 100}]`), nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, s.params(entity.StatePresent), false)
	s.Require().NoError(err)

	s.True(outcome.Changed)
	s.Equal(entity.ActionCreate, outcome.Action)
	s.Equal("Successfully created log source: web-srv-01", outcome.Message)
	s.JSONEq(`[{"id": 100}]`, string(outcome.ReturnData.(json.RawMessage)))

	request := s.repo.Calls[2].Arguments.Get(1).(entity.LogSourceCreateRequest)
	s.Equal("web-srv-01", request.Name)
	s.Equal(int64(10), request.TypeID)
	s.Equal(int64(0), request.ProtocolTypeID)
	s.Require().Len(request.ProtocolParameters, 1)
	s.Equal(int64(0), request.ProtocolParameters[0].ID)
	s.Equal(entity.IdentifierParameterName, request.ProtocolParameters[0].Name)
	s.Equal("10.0.0.5", request.ProtocolParameters[0].StringValue())
}

func (s *LogSourceServiceTestSuite) TestCreateInCheckMode() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(nil, nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(apacheType, nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, s.params(entity.StatePresent), true)
	s.Require().NoError(err)

	s.True(outcome.Changed)
	s.Equal(entity.ActionCreate, outcome.Action)
	s.Equal(entity.CheckModeReturnData, outcome.ReturnData)
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *LogSourceServiceTestSuite) TestNoChangeWhenInSync() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(s.existing(), nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(apacheType, nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, s.params(entity.StatePresent), false)
	s.Require().NoError(err)

	s.False(outcome.Changed)
	s.Equal(entity.ActionNone, outcome.Action)
	s.Equal("Nothing to do.", outcome.Message)
	s.Nil(outcome.ReturnData)
}

func (s *LogSourceServiceTestSuite) TestUpdateOnDescriptionChange() {
	params := s.params(entity.StatePresent)
	params.Description = "Apache back end"

	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(s.existing(), nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(apacheType, nil).Once()
	s.repo.On("Update", s.ctx, mock.AnythingOfType("entity.LogSourceRecord")).
		Return(json.RawMessage(`[{"id": 42}]`), nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, params, false)
	s.Require().NoError(err)

	s.True(outcome.Changed)
	s.Equal(entity.ActionUpdate, outcome.Action)
	s.Equal("Successfully updated log source: web-srv-01", outcome.Message)

	record := s.repo.Calls[2].Arguments.Get(1).(entity.LogSourceRecord)
	s.Equal(int64(42), record.ID)
	s.Equal("Apache back end", record.DescriptionText())
	s.Contains(record.Extra, "enabled")
}

func (s *LogSourceServiceTestSuite) TestUpdateInCheckMode() {
	params := s.params(entity.StatePresent)
	params.Identifier = "10.0.0.6"

	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(s.existing(), nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(apacheType, nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, params, true)
	s.Require().NoError(err)

	s.True(outcome.Changed)
	s.Equal(entity.ActionUpdate, outcome.Action)
	s.Equal(entity.CheckModeReturnData, outcome.ReturnData)
	s.repo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *LogSourceServiceTestSuite) TestDeleteWhenPresent() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(s.existing(), nil).Once()
	s.repo.On("Delete", s.ctx, int64(42)).Return(json.RawMessage(`{"id": 42}`), nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, s.params(entity.StateAbsent), false)
	s.Require().NoError(err)

	s.True(outcome.Changed)
	s.Equal(entity.ActionDelete, outcome.Action)
	s.Equal("Successfully deleted log source: web-srv-01", outcome.Message)
	s.repo.AssertNotCalled(s.T(), "FindType", mock.Anything, mock.Anything)
}

func (s *LogSourceServiceTestSuite) TestDeleteInCheckMode() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(s.existing(), nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, s.params(entity.StateAbsent), true)
	s.Require().NoError(err)

	s.True(outcome.Changed)
	s.Equal(entity.CheckModeReturnData, outcome.ReturnData)
	s.repo.AssertNotCalled(s.T(), "Delete", mock.Anything, mock.Anything)
}

func (s *LogSourceServiceTestSuite) TestDeleteWithoutIDIsNotFound() {
	record := s.existing()
	record.ID = 0
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(record, nil).Once()

	_, err := s.service.Reconcile(s.ctx, s.params(entity.StateAbsent), false)
	s.Require().Error(err)
	s.True(common.HasErrorCode(err, common.ErrCodeNotFound))
}

func (s *LogSourceServiceTestSuite) TestAbsentAndMissingIsNoop() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(nil, nil).Once()

	outcome, err := s.service.Reconcile(s.ctx, s.params(entity.StateAbsent), false)
	s.Require().NoError(err)

	s.False(outcome.Changed)
	s.Equal("Nothing to do.", outcome.Message)
}

func (s *LogSourceServiceTestSuite) TestUnknownTypeIsConfigurationError() {
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(nil, nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(nil, nil).Once()

	_, err := s.service.Reconcile(s.ctx, s.params(entity.StatePresent), false)
	s.Require().Error(err)
	s.True(common.HasErrorCode(err, common.ErrCodeConfiguration))
	s.Equal("Incompatible type provided, please consult QRadar Documentation for Log Source Types", common.UserMessage(err))
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *LogSourceServiceTestSuite) TestIncompatibleProtocolIsConfigurationError() {
	params := s.params(entity.StatePresent)
	protocolTypeID := int64(99)
	params.ProtocolTypeID = &protocolTypeID

	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(s.existing(), nil).Once()
	s.repo.On("FindType", s.ctx, `name="Apache"`).Return(apacheType, nil).Once()

	_, err := s.service.Reconcile(s.ctx, params, false)
	s.Require().Error(err)
	s.True(common.HasErrorCode(err, common.ErrCodeConfiguration))
	s.Contains(common.UserMessage(err), "Incompatible protocol_type_id provided")
	s.repo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *LogSourceServiceTestSuite) TestLookupFailureIsPropagated() {
	transportErr := common.ErrTransport("GET log_sources returned status 500", errors.New("boom"))
	s.repo.On("FindByName", s.ctx, "web-srv-01").Return(nil, transportErr).Once()

	_, err := s.service.Reconcile(s.ctx, s.params(entity.StatePresent), false)
	s.Require().Error(err)
	s.True(common.HasErrorCode(err, common.ErrCodeTransport))
}

func (s *LogSourceServiceTestSuite) TestInvalidStateIsRejected() {
	_, err := s.service.Reconcile(s.ctx, s.params("started"), false)
	s.Require().Error(err)
	s.True(common.HasErrorCode(err, common.ErrCodeValidationFailed))
}

func TestLogSourceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LogSourceServiceTestSuite))
}

func TestResolveDesiredState(t *testing.T) {
	ctx := context.Background()
	typeID := int64(10)
	protocolTypeID := int64(12)

	t.Run("by type id with explicit protocol", func(t *testing.T) {
		repo := new(mockLogSourceRepository)
		repo.On("FindType", ctx, `id="10"`).Return(apacheType, nil)
		service := NewLogSourceService(repo, nil)

		desired, err := service.ResolveDesiredState(ctx, entity.LogSourceParams{
			Name:           "a",
			TypeID:         &typeID,
			ProtocolTypeID: &protocolTypeID,
			Identifier:     "host",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), desired.TypeID())
		assert.Equal(t, int64(12), desired.ProtocolTypeID())
		assert.Equal(t, int64(12), desired.IdentifierParameter().ID)
	})

	t.Run("defaults to first protocol", func(t *testing.T) {
		repo := new(mockLogSourceRepository)
		repo.On("FindType", ctx, `name="Apache"`).Return(apacheType, nil)
		service := NewLogSourceService(repo, nil)

		desired, err := service.ResolveDesiredState(ctx, entity.LogSourceParams{TypeName: "Apache"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), desired.ProtocolTypeID())
	})

	t.Run("type without protocols", func(t *testing.T) {
		repo := new(mockLogSourceRepository)
		repo.On("FindType", ctx, `name="Bare"`).Return(&entity.LogSourceType{ID: 3, Name: "Bare"}, nil)
		service := NewLogSourceService(repo, nil)

		_, err := service.ResolveDesiredState(ctx, entity.LogSourceParams{TypeName: "Bare"})
		require.Error(t, err)
		assert.True(t, common.HasErrorCode(err, common.ErrCodeConfiguration))
	})

	t.Run("no type selector", func(t *testing.T) {
		service := NewLogSourceService(new(mockLogSourceRepository), nil)

		_, err := service.ResolveDesiredState(ctx, entity.LogSourceParams{Name: "a"})
		require.Error(t, err)
		assert.True(t, common.HasErrorCode(err, common.ErrCodeConfiguration))
	})
}

func TestInSync(t *testing.T) {
	description := "Caf\u00e9 logs"
	existing := entity.LogSourceRecord{
		ID:          1,
		Name:        "web",
		Description: &description,
		TypeID:      10,
		ProtocolParameters: []entity.ProtocolParameter{
			entity.NewIdentifierParameter(0, "10.0.0.5"),
		},
	}

	// decomposed e + combining acute accent
	assert.True(t, InSync(existing, entity.NewDesiredLogSource("web", "Cafe\u0301 logs", 10, 0, "10.0.0.5")))

	assert.False(t, InSync(existing, entity.NewDesiredLogSource("web-2", description, 10, 0, "10.0.0.5")))
	assert.False(t, InSync(existing, entity.NewDesiredLogSource("web", description, 11, 0, "10.0.0.5")))
	assert.False(t, InSync(existing, entity.NewDesiredLogSource("web", description, 10, 0, "10.0.0.6")))
	assert.False(t, InSync(existing, entity.NewDesiredLogSource("web", "other", 10, 0, "10.0.0.5")))

	// protocol type id is not compared
	assert.True(t, InSync(existing, entity.NewDesiredLogSource("web", description, 10, 12, "10.0.0.5")))

	existing.ProtocolParameters = nil
	assert.False(t, InSync(existing, entity.NewDesiredLogSource("web", description, 10, 0, "10.0.0.5")))

	existing.Description = nil
	existing.ProtocolParameters = []entity.ProtocolParameter{entity.NewIdentifierParameter(0, "10.0.0.5")}
	assert.True(t, InSync(existing, entity.NewDesiredLogSource("web", "", 10, 0, "10.0.0.5")))
}
