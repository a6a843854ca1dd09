package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"septic-booking-server/models"
)

const exportSheet = "Bookings"

var exportColumns = []string{
	"ID", "Customer", "Technician", "Service", "Date", "Time", "Duration (h)",
	"Price", "Payment Method", "Payment Status", "Amount Paid", "Status",
	"Cancel Reason", "Receipt", "Created At",
}

// BookingExporter renders bookings as an xlsx workbook.
type BookingExporter struct{}

func NewBookingExporter() *BookingExporter {
	return &BookingExporter{}
}

// Write renders bookings to w. Customer and Technician should be preloaded.
func (e *BookingExporter) Write(w io.Writer, bookings []models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRow(f, 1, toCells(exportColumns)); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(exportSheet, "A1", end, style)
	}

	for i, b := range bookings {
		if err := writeRow(f, i+2, exportRow(b)); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func exportRow(b models.Booking) []interface{} {
	customer := ""
	if b.Customer != nil {
		customer = b.Customer.FullName
	}
	technician := ""
	if b.Technician != nil {
		technician = b.Technician.FullName
	}
	receipt := ""
	if b.ReceiptNumber != nil {
		receipt = *b.ReceiptNumber
	}
	return []interface{}{
		b.ID, customer, technician, b.ServiceName, b.Date, b.Time, b.Duration,
		b.Price, b.PaymentMethod, string(b.PaymentStatus), b.AmountPaid,
		string(b.Status), b.CancelReason, receipt,
		b.CreatedAt.Format("2006-01-02 15:04"),
	}
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, v); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
