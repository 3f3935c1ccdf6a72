package service

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/Harrysk/ibm.qradar/domain/entity"
)

type mockLogSourceRepository struct {
	mock.Mock
}

func (m *mockLogSourceRepository) FindByName(ctx context.Context, name string) (*entity.LogSourceRecord, error) {
	args := m.Called(ctx, name)
	record, _ := args.Get(0).(*entity.LogSourceRecord)
	return record, args.Error(1)
}

func (m *mockLogSourceRepository) FindType(ctx context.Context, filter string) (*entity.LogSourceType, error) {
	args := m.Called(ctx, filter)
	logSourceType, _ := args.Get(0).(*entity.LogSourceType)
	return logSourceType, args.Error(1)
}

func (m *mockLogSourceRepository) Create(ctx context.Context, request entity.LogSourceCreateRequest) (json.RawMessage, error) {
	args := m.Called(ctx, request)
	data, _ := args.Get(0).(json.RawMessage)
	return data, args.Error(1)
}

func (m *mockLogSourceRepository) Update(ctx context.Context, record entity.LogSourceRecord) (json.RawMessage, error) {
	args := m.Called(ctx, record)
	data, _ := args.Get(0).(json.RawMessage)
	return data, args.Error(1)
}

func (m *mockLogSourceRepository) Delete(ctx context.Context, id int64) (json.RawMessage, error) {
	args := m.Called(ctx, id)
	data, _ := args.Get(0).(json.RawMessage)
	return data, args.Error(1)
}

type mockOffenseRepository struct {
	mock.Mock
}

func (m *mockOffenseRepository) GetByID(ctx context.Context, id int64) (*entity.Offense, error) {
	args := m.Called(ctx, id)
	offense, _ := args.Get(0).(*entity.Offense)
	return offense, args.Error(1)
}

func (m *mockOffenseRepository) Query(ctx context.Context, queryString string) ([]entity.Offense, error) {
	args := m.Called(ctx, queryString)
	offenses, _ := args.Get(0).([]entity.Offense)
	return offenses, args.Error(1)
}

func (m *mockOffenseRepository) FindClosingReason(ctx context.Context, text string) (*entity.ClosingReason, error) {
	args := m.Called(ctx, text)
	reason, _ := args.Get(0).(*entity.ClosingReason)
	return reason, args.Error(1)
}
