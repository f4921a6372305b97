package response

import "salon-booking/internal/data/entity"

type StoreServiceResponse struct {
	ID              string  `json:"id"`
	StoreID         string  `json:"store_id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

func StoreServiceToResponse(service *entity.StoreService) StoreServiceResponse {
	return StoreServiceResponse{
		ID:              service.ID.String(),
		StoreID:         service.StoreID.String(),
		Name:            service.Name,
		DurationMinutes: service.DurationMinutes,
		Price:           service.Price,
	}
}

type SlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AvailableSlotsResponse struct {
	StoreID    string         `json:"store_id"`
	EmployeeID *string        `json:"employee_id,omitempty"`
	Date       string         `json:"date"`
	Duration   int            `json:"duration_minutes"`
	Slots      []SlotResponse `json:"slots"`
}
