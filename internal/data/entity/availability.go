package entity

import (
	"github.com/google/uuid"
)

// AvailabilityWindow is one weekly working-hour window for a store, or for a
// single employee when EmployeeID is set. Windows are replaced wholesale on
// update, never merged.
type AvailabilityWindow struct {
	BaseSimple
	StoreID    uuid.UUID  `db:"store_id"`
	EmployeeID *uuid.UUID `db:"employee_id"`
	DayOfWeek  int        `db:"day_of_week"` // 0 = Sunday ... 6 = Saturday
	StartTime  string     `db:"start_time"`  // HH:MM
	EndTime    string     `db:"end_time"`    // HH:MM
	IsActive   bool       `db:"is_active"`
}
