package adaptor

import (
	"encoding/json"
	"net/http"

	"salon-booking/internal/dto/request"
	"salon-booking/internal/usecase"
	"salon-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// GetAvailableSlots handles GET /api/stores/{storeId}/slots (public)
func (h *AvailabilityHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	if storeID == "" {
		utils.ResponseBadRequest(w, "Store ID is required", nil)
		return
	}

	query := r.URL.Query()

	slotQuery := usecase.SlotQuery{
		StoreID:        storeID,
		StoreServiceID: query.Get("service_id"),
		Date:           query.Get("date"),
	}
	if employeeID := query.Get("employee_id"); employeeID != "" {
		slotQuery.EmployeeID = &employeeID
	}

	slots, err := h.service.GetAvailableSlots(r.Context(), slotQuery)
	if err != nil {
		handleServiceError(w, h.log, err, "get available slots")
		return
	}

	utils.ResponseSuccess(w, "success", slots)
}

// GetStoreServices handles GET /api/stores/{storeId}/services (public)
func (h *AvailabilityHandler) GetStoreServices(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	if storeID == "" {
		utils.ResponseBadRequest(w, "Store ID is required", nil)
		return
	}

	services, err := h.service.GetStoreServices(r.Context(), storeID)
	if err != nil {
		handleServiceError(w, h.log, err, "get store services")
		return
	}

	utils.ResponseSuccess(w, "success", services)
}

// ReplaceAvailability handles PUT /api/stores/{storeId}/availability (owner only)
func (h *AvailabilityHandler) ReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	storeID := chi.URLParam(r, "storeId")
	if storeID == "" {
		utils.ResponseBadRequest(w, "Store ID is required", nil)
		return
	}

	var req request.ReplaceAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.ReplaceWindows(r.Context(), userID, role, storeID, &req); err != nil {
		handleServiceError(w, h.log, err, "replace availability")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
