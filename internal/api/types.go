package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/appointment-scheduling/internal/appointment"
	"github.com/carebridge/appointment-scheduling/internal/availability"
	"github.com/carebridge/appointment-scheduling/internal/notify"
)

type BookAppointmentRequest struct {
	PatientID  string  `json:"patient_id"`
	ProviderID string  `json:"provider_id"`
	FacilityID *string `json:"facility_id,omitempty"`
	StartAt    string  `json:"start_at"` // RFC 3339
}

type RescheduleAppointmentRequest struct {
	StartAt string `json:"start_at"` // RFC 3339
}

type DeclareSlotRequest struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"` // 2006-01-02
	Time       string `json:"time"` // 15:04
}

type AppointmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	FacilityID *uuid.UUID `json:"facility_id,omitempty"`
	StartAt    time.Time  `json:"start_at"`
	Status     string     `json:"status"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		PatientID:  a.PatientID,
		ProviderID: a.ProviderID,
		FacilityID: a.FacilityID,
		StartAt:    a.StartAt,
		Status:     string(a.Status),
	}
}

func toAppointmentResponses(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

func toSlotResponse(s *availability.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		Date:       s.Date.Format("2006-01-02"),
		Time:       s.TimeOfDay,
	}
}

type FreeSlotsResponse struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Times      []string  `json:"times"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponses(ns []notify.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			PatientID: n.PatientID,
			Kind:      n.Kind,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
