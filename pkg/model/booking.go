package model

import (
	"time"
)

type Passenger struct {
	Name                     string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	IsOver18                 bool   `json:"is_over_18" bson:"is_over_18"`
	MeetsRequirements        bool   `json:"meets_requirements" bson:"meets_requirements"`
	Signature                string `json:"signature,omitempty" bson:"signature,omitempty"`
	ParentalConsentSignature string `json:"parental_consent_signature,omitempty" bson:"parental_consent_signature,omitempty"`
	GuardianRelationship     string `json:"guardian_relationship,omitempty" bson:"guardian_relationship,omitempty" validate:"omitempty,oneof=parent guardian"`
	GuardianName             string `json:"guardian_name,omitempty" bson:"guardian_name,omitempty" validate:"omitempty,max=100"`
}

type Registrant struct {
	FirstName            string      `json:"first_name" bson:"first_name" validate:"required,min=1,max=100"`
	LastName             string      `json:"last_name" bson:"last_name" validate:"required,min=1,max=100"`
	Email                string      `json:"email" bson:"email" validate:"required,email"`
	Phone                string      `json:"phone" bson:"phone" validate:"required,e164"`
	HasValidLicense      bool        `json:"has_valid_license" bson:"has_valid_license"`
	AdditionalPassengers []Passenger `json:"additional_passengers,omitempty" bson:"additional_passengers,omitempty" validate:"omitempty,max=4,dive"`
	Signature            string      `json:"signature" bson:"signature" validate:"required"`
	AgreedToTOS          bool        `json:"agreed_to_tos" bson:"agreed_to_tos"`
	CommunicationOptIn   bool        `json:"communication_opt_in" bson:"communication_opt_in"`
	WaiverPDFURL         string      `json:"waiver_pdf_url,omitempty" bson:"waiver_pdf_url,omitempty" validate:"omitempty,url"`
}

// Booking is the authoritative record that a slot is taken.
type Booking struct {
	ID             string     `json:"id,omitempty" bson:"_id,omitempty"`
	RegistrationID string     `json:"registration_id" bson:"registration_id"`
	SlotKey        `bson:",inline"`
	Vehicle        *Vehicle   `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	Registrant     Registrant `json:"registrant" bson:"registrant"`
	SessionID      string     `json:"session_id,omitempty" bson:"session_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
}
