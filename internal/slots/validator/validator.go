package validator

import (
	"errors"
	"fmt"
	"strings"

	"testdrive/pkg/logger"
	"testdrive/pkg/model"
	"testdrive/pkg/timeslot"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	v := validator.New()

	if err := v.RegisterValidation("timelabel", validateTimeLabel); err != nil {
		log.Fatal("Failed to register 'timelabel' validator",
			"error", err,
		)
	}
	if err := v.RegisterValidation("slotdate", validateSlotDate); err != nil {
		log.Fatal("Failed to register 'slotdate' validator",
			"error", err,
		)
	}

	log.Debug("Slot validator initialized successfully")

	return &SlotValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeLabel(fl validator.FieldLevel) bool {
	return timeslot.IsValid(fl.Field().String())
}

func validateSlotDate(fl validator.FieldLevel) bool {
	return timeslot.ValidDate(fl.Field().String())
}

func (v *SlotValidator) ValidateSlotKey(key model.SlotKey) error {
	return v.structErrors(key)
}

// ValidateFinalize checks the slot key and the registrant, including the
// consent rules the wizard enforces before submission.
func (v *SlotValidator) ValidateFinalize(req *model.FinalizeRequest) error {
	if err := v.structErrors(req); err != nil {
		return err
	}

	var errs ValidationErrors
	if !req.Registrant.AgreedToTOS {
		errs = append(errs, ValidationError{
			Field:   "AgreedToTOS",
			Message: "terms of service must be accepted",
		})
	}
	if !req.Registrant.HasValidLicense {
		errs = append(errs, ValidationError{
			Field:   "HasValidLicense",
			Message: "a valid driver's license is required",
		})
	}
	for i, p := range req.Registrant.AdditionalPassengers {
		if !p.IsOver18 && !p.MeetsRequirements {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("AdditionalPassengers[%d]", i),
				Message: "passenger must be over 18 or meet the passenger requirements",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *SlotValidator) ValidateSchedule(schedule *model.Schedule) error {
	if err := v.structErrors(schedule); err != nil {
		return err
	}

	seen := make(map[string]bool, len(schedule.Vehicles))
	for i, vehicle := range schedule.Vehicles {
		if seen[vehicle.ID] {
			return ValidationErrors{
				ValidationError{
					Field:   fmt.Sprintf("Vehicles[%d].ID", i),
					Message: fmt.Sprintf("duplicate vehicle id %q", vehicle.ID),
				},
			}
		}
		seen[vehicle.ID] = true
	}
	return nil
}

func (v *SlotValidator) ValidateGenerate(req *model.GenerateSlotsRequest) error {
	return v.structErrors(req)
}

func (v *SlotValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *SlotValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +16502530000)", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		case "timelabel":
			message = fmt.Sprintf("%s must be a time label such as 10:00 AM", err.Field())
		case "slotdate":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
