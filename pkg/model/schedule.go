package model

import "time"

const DefaultScheduleID = "default"

type Vehicle struct {
	ID    string `json:"id" bson:"id" validate:"required,max=100"`
	Name  string `json:"name" bson:"name" validate:"required,max=100"`
	Model string `json:"model" bson:"model" validate:"omitempty,max=100"`
	Year  int    `json:"year" bson:"year" validate:"omitempty,min=1900,max=2100"`
	Type  string `json:"type" bson:"type" validate:"omitempty,max=50"`
	Image string `json:"image,omitempty" bson:"image,omitempty"`
}

// Schedule is the addressable slot space. An empty list leaves that
// dimension unrestricted.
type Schedule struct {
	ID        string    `json:"id" bson:"_id"`
	Dates     []string  `json:"dates" bson:"dates" validate:"omitempty,max=366,dive,slotdate"`
	TimeSlots []string  `json:"time_slots" bson:"time_slots" validate:"required,min=1,max=288,dive,timelabel"`
	Vehicles  []Vehicle `json:"vehicles" bson:"vehicles" validate:"omitempty,max=100,dive"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (s *Schedule) HasDate(date string) bool {
	return len(s.Dates) == 0 || contains(s.Dates, date)
}

func (s *Schedule) HasTimeSlot(label string) bool {
	return len(s.TimeSlots) == 0 || contains(s.TimeSlots, label)
}

func (s *Schedule) HasVehicle(id string) bool {
	if len(s.Vehicles) == 0 {
		return true
	}
	return s.Vehicle(id) != nil
}

func (s *Schedule) Vehicle(id string) *Vehicle {
	for i := range s.Vehicles {
		if s.Vehicles[i].ID == id {
			v := s.Vehicles[i]
			return &v
		}
	}
	return nil
}

type GenerateSlotsRequest struct {
	Start           string `json:"start" validate:"required,timelabel"`
	End             string `json:"end" validate:"required,timelabel"`
	IntervalMinutes int    `json:"interval_minutes" validate:"required,min=5,max=240"`
}
