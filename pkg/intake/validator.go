package intake

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tib-ai/triage/pkg/records"
)

var (
	errMissingField   = errors.New("missing required field")
	errInvalidNumber  = errors.New("invalid number")
	errImageExtension = errors.New("image type not allowed")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Form carries the raw submission fields as received.
type Form struct {
	Name            string
	Age             string
	Gender          string
	Location        string
	TemperatureF    string
	PregnancyStatus string
	BloodPressure   string
	BloodGlucose    string
	Symptoms        string
}

type Validator struct {
	allowedExtensions map[string]struct{}
	maxAge            int
}

func NewValidator(extensions []string) *Validator {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(ext)), ".")
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return &Validator{allowedExtensions: allowed, maxAge: 150}
}

// Patient checks the form and converts it to a record. Optional vitals stay
// nil when blank.
func (v *Validator) Patient(form Form) (*records.Patient, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return nil, ValidationError{reason: fmt.Errorf("name: %w", errMissingField)}
	}
	gender := strings.TrimSpace(form.Gender)
	if gender == "" {
		return nil, ValidationError{reason: fmt.Errorf("gender: %w", errMissingField)}
	}
	location := strings.TrimSpace(form.Location)
	if location == "" {
		return nil, ValidationError{reason: fmt.Errorf("location: %w", errMissingField)}
	}

	rawAge := strings.TrimSpace(form.Age)
	if rawAge == "" {
		return nil, ValidationError{reason: fmt.Errorf("age: %w", errMissingField)}
	}
	age, err := strconv.Atoi(rawAge)
	if err != nil || age < 0 || age > v.maxAge {
		return nil, ValidationError{reason: fmt.Errorf("age must be a whole number between 0 and %d: %w", v.maxAge, errInvalidNumber)}
	}

	temperature, err := optionalFloat("temperature_f", form.TemperatureF)
	if err != nil {
		return nil, err
	}
	glucose, err := optionalFloat("blood_glucose", form.BloodGlucose)
	if err != nil {
		return nil, err
	}

	pregnancy := strings.TrimSpace(form.PregnancyStatus)
	if pregnancy == "" {
		pregnancy = "N/A"
	}

	return &records.Patient{
		Name:            name,
		Age:             age,
		Gender:          gender,
		Location:        location,
		TemperatureF:    temperature,
		PregnancyStatus: pregnancy,
		BloodPressure:   strings.TrimSpace(form.BloodPressure),
		BloodGlucose:    glucose,
		Symptoms:        form.Symptoms,
	}, nil
}

// ImageName checks the uploaded file name against the allowed extensions.
func (v *Validator) ImageName(filename string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if _, ok := v.allowedExtensions[ext]; !ok {
		return ValidationError{reason: fmt.Errorf("%q: %w", filename, errImageExtension)}
	}
	return nil
}

func optionalFloat(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, ValidationError{reason: fmt.Errorf("%s: %w", field, errInvalidNumber)}
	}
	return &value, nil
}
