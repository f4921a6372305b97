package response

import (
	"time"

	"salon-booking/internal/data/entity"
)

type BookingResponse struct {
	ID             string               `json:"id"`
	OrderID        string               `json:"order_id"`
	CustomerID     string               `json:"customer_id"`
	StoreID        string               `json:"store_id"`
	StoreServiceID string               `json:"store_service_id"`
	EmployeeID     *string              `json:"employee_id,omitempty"`
	BookingDate    string               `json:"booking_date"`
	StartTime      string               `json:"start_time"`
	EndTime        string               `json:"end_time"`
	TotalPrice     float64              `json:"total_price"`
	PaidAmount     float64              `json:"paid_amount"`
	PaymentStatus  entity.PaymentStatus `json:"payment_status"`
	Status         entity.BookingStatus `json:"status"`
	Notes          *string              `json:"notes,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type BookingDetailResponse struct {
	BookingResponse
	PaymentEvents []PaymentEventResponse `json:"payment_events"`
}

// Helper converter
func BookingToResponse(booking *entity.Booking) BookingResponse {
	var employeeID *string
	if booking.EmployeeID != nil {
		id := booking.EmployeeID.String()
		employeeID = &id
	}

	return BookingResponse{
		ID:             booking.ID.String(),
		OrderID:        booking.OrderID,
		CustomerID:     booking.CustomerID.String(),
		StoreID:        booking.StoreID.String(),
		StoreServiceID: booking.StoreServiceID.String(),
		EmployeeID:     employeeID,
		BookingDate:    booking.BookingDate.Format("2006-01-02"),
		StartTime:      booking.StartTime,
		EndTime:        booking.EndTime,
		TotalPrice:     booking.TotalPrice,
		PaidAmount:     booking.PaidAmount,
		PaymentStatus:  booking.PaymentStatus,
		Status:         booking.Status,
		Notes:          booking.Notes,
		CreatedAt:      booking.CreatedAt,
	}
}
