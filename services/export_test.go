package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"septic-booking-server/models"
)

func TestBookingExporterWrite(t *testing.T) {
	receipt := "R-42"
	bookings := []models.Booking{
		{
			ID:            1,
			ServiceName:   "Septic Tank Pumping",
			Date:          futureDate,
			Time:          "09:00 AM",
			Duration:      2,
			Price:         500,
			PaymentStatus: models.PaymentStatusPaid,
			AmountPaid:    500,
			Status:        models.BookingStatusCompleted,
			ReceiptNumber: &receipt,
			CreatedAt:     time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
			Customer:      &models.User{FullName: "Jane Doe"},
			Technician:    &models.User{FullName: "Tom Tech"},
		},
		{
			ID:          2,
			ServiceName: "Drain Field Cleaning",
			Date:        pastDate,
			Time:        "01:00 PM",
			Status:      models.BookingStatusPending,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewBookingExporter().Write(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportColumns, rows[0])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Jane Doe", rows[1][1])
	assert.Equal(t, "Tom Tech", rows[1][2])
	assert.Equal(t, "completed", rows[1][11])
	assert.Equal(t, "R-42", rows[1][13])
	assert.Equal(t, "2025-06-01 09:30", rows[1][14])

	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "pending", rows[2][11])
}
