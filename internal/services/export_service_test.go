package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

func TestExportReturns_WritesWorkbook(t *testing.T) {
	returnRepo := new(MockReturnRepository)
	svc := NewExportService(returnRepo, testLogger())
	order := createTestOrder(models.OrderStatusDelivered)
	ret := createTestReturn(order, models.ReturnStatusApproved)
	pickup := fixedNow.Add(24 * time.Hour)
	ret.PickupScheduledAt = &pickup
	status := models.ReturnStatusApproved

	returnRepo.On("List", mock.Anything, repository.ReturnFilters{
		TenantID: "tenant-1",
		Status:   &status,
		Page:     1,
		Limit:    maxExportRows,
	}).Return([]models.Return{*ret}, int64(1), nil)

	export, err := svc.ExportReturns(context.Background(), "tenant-1", ReturnListFilters{Status: &status})
	require.NoError(t, err)
	assert.False(t, export.Truncated())

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Returns")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Return #", rows[0][0])
	assert.Equal(t, ret.ReturnNumber, rows[1][0])
	assert.Equal(t, order.OrderNumber, rows[1][1])
	assert.Equal(t, "Approved", rows[1][4])
	assert.Equal(t, "Linen Shirt x2 (Too small)", rows[1][6])
	assert.Equal(t, pickup.Format(time.RFC3339), rows[1][8])
}

func TestExportReturns_PassesOrderAndCustomerFilters(t *testing.T) {
	returnRepo := new(MockReturnRepository)
	svc := NewExportService(returnRepo, testLogger())
	order := createTestOrder(models.OrderStatusDelivered)
	ret := createTestReturn(order, models.ReturnStatusRequested)

	returnRepo.On("List", mock.Anything, repository.ReturnFilters{
		TenantID:   "tenant-1",
		CustomerID: "cust-1",
		OrderID:    &order.ID,
		Search:     "RET",
		Page:       1,
		Limit:      maxExportRows,
	}).Return([]models.Return{*ret}, int64(1), nil)

	export, err := svc.ExportReturns(context.Background(), "tenant-1", ReturnListFilters{
		CustomerID: "cust-1",
		OrderID:    &order.ID,
		Search:     "  RET ",
		Page:       3,
		Limit:      20,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, export.Rows)
	returnRepo.AssertExpectations(t)
}

func TestExportReturns_ReportsTruncation(t *testing.T) {
	returnRepo := new(MockReturnRepository)
	svc := NewExportService(returnRepo, testLogger())
	ret := createTestReturn(createTestOrder(models.OrderStatusDelivered), models.ReturnStatusRequested)

	returnRepo.On("List", mock.Anything, mock.Anything).Return([]models.Return{*ret}, int64(maxExportRows+5), nil)

	export, err := svc.ExportReturns(context.Background(), "tenant-1", ReturnListFilters{})

	require.NoError(t, err)
	assert.True(t, export.Truncated())
	assert.Equal(t, int64(maxExportRows+5), export.Total)
}

func TestExportReturns_RepositoryError(t *testing.T) {
	returnRepo := new(MockReturnRepository)
	svc := NewExportService(returnRepo, testLogger())

	returnRepo.On("List", mock.Anything, mock.Anything).Return([]models.Return(nil), int64(0), repository.ErrStorage)

	_, err := svc.ExportReturns(context.Background(), "tenant-1", ReturnListFilters{})

	assert.True(t, errors.Is(err, repository.ErrStorage))
}

func TestGenerateReturnSlip(t *testing.T) {
	svc := NewSlipService("Threadline")
	ret := createTestReturn(createTestOrder(models.OrderStatusDelivered), models.ReturnStatusApproved)

	pdf, err := svc.GenerateReturnSlip(ret)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestGenerateReturnSlip_RejectedReturn(t *testing.T) {
	svc := NewSlipService("Threadline")
	ret := createTestReturn(createTestOrder(models.OrderStatusDelivered), models.ReturnStatusRejected)

	_, err := svc.GenerateReturnSlip(ret)

	assert.True(t, models.IsValidationKind(err, models.ValidationSlipUnavailable))
}
