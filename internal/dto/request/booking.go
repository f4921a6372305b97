package request

type CreateBookingRequest struct {
	StoreID           string  `json:"store_id" validate:"required,uuid4"`
	StoreServiceID    string  `json:"store_service_id" validate:"required,uuid4"`
	EmployeeID        *string `json:"employee_id,omitempty" validate:"omitempty,uuid4"`
	BookingDate       string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime         string  `json:"start_time" validate:"required"`
	PaymentPercentage int     `json:"payment_percentage" validate:"required,oneof=50 100"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}
