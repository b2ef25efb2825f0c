package validator

import (
	"fmt"
	"strings"
	"time"

	"courtside/pkg/clock"
	"courtside/pkg/logger"
	"courtside/pkg/model"

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

type ReservationValidator struct {
	validate *validator.Validate
	clk      clock.Clock
	log      *logger.Logger

	minDuration time.Duration
	horizon     time.Duration
}

func NewReservationValidator(log *logger.Logger, clk clock.Clock, minDurationMinutes, horizonDays int) *ReservationValidator {
	return &ReservationValidator{
		validate:    validator.New(),
		clk:         clk,
		log:         log,
		minDuration: time.Duration(minDurationMinutes) * time.Minute,
		horizon:     time.Duration(horizonDays) * 24 * time.Hour,
	}
}

// ValidateCreate checks the request structure and booking window, and
// returns the parsed slot boundaries in UTC.
func (v *ReservationValidator) ValidateCreate(req *model.CreateReservationRequest) (start, end time.Time, err error) {
	if err := v.validateStruct(req); err != nil {
		return time.Time{}, time.Time{}, err
	}

	start, err = parseSlot(req.Date, req.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationErrors{{Field: "start_time", Message: err.Error()}}
	}
	end, err = parseSlot(req.Date, req.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationErrors{{Field: "end_time", Message: err.Error()}}
	}

	var errs ValidationErrors
	if !end.After(start) {
		errs = append(errs, ValidationError{Field: "end_time", Message: "must be after start_time"})
	} else if end.Sub(start) < v.minDuration {
		errs = append(errs, ValidationError{
			Field:   "end_time",
			Message: fmt.Sprintf("reservation must be at least %s long", v.minDuration),
		})
	}

	now := v.clk.Now()
	if start.Before(now) {
		errs = append(errs, ValidationError{Field: "start_time", Message: "cannot reserve a slot in the past"})
	}
	if start.After(now.Add(v.horizon)) {
		errs = append(errs, ValidationError{
			Field:   "date",
			Message: fmt.Sprintf("slot is beyond the %d-day booking horizon", int(v.horizon.Hours()/24)),
		})
	}

	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}
	return start, end, nil
}

func (v *ReservationValidator) ValidateCancel(req *model.CancelReservationRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) validateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs ValidationErrors
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			})
		}
		return errs
	}
	return ValidationErrors{{Field: "request", Message: err.Error()}}
}

func parseSlot(date, hhmm string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04", date+" "+hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot time %q", hhmm)
	}
	return t.UTC(), nil
}
