package request

type AvailabilityWindowInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	IsActive  bool   `json:"is_active"`
}

type ReplaceAvailabilityRequest struct {
	EmployeeID *string                   `json:"employee_id,omitempty" validate:"omitempty,uuid4"`
	Windows    []AvailabilityWindowInput `json:"windows" validate:"required,dive"`
}
