// internal/validation/validation.go

// Package validation turns raw submission JSON into a typed
// models.SubmissionData. Structure is checked against a JSON Schema,
// then the typed payload gets enum-membership and value checks. The
// workflows never see unvalidated input.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"cites-permits/internal/models"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

const (
	CodeMissingRequired = "MISSING_REQUIRED"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidEnum     = "INVALID_ENUM"
	CodeInvalidValue    = "INVALID_VALUE"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const submissionSchema = `{
	"type": "object",
	"required": ["applicantInfo", "permitType", "species", "shipmentDetails"],
	"properties": {
		"applicantInfo": {
			"type": "object",
			"required": ["firstName", "lastName", "email", "phone", "address"],
			"properties": {
				"firstName": {"type": "string", "minLength": 1},
				"lastName": {"type": "string", "minLength": 1},
				"email": {"type": "string", "minLength": 3},
				"phone": {"type": "string", "minLength": 5},
				"organization": {"type": "string"},
				"address": {
					"type": "object",
					"required": ["street", "city", "country"],
					"properties": {
						"street": {"type": "string", "minLength": 1},
						"city": {"type": "string", "minLength": 1},
						"state": {"type": "string"},
						"zipCode": {"type": "string"},
						"country": {"type": "string", "minLength": 2}
					}
				}
			}
		},
		"permitType": {"type": "string"},
		"species": {
			"type": "object",
			"required": ["scientificName", "commonName", "citesAppendix", "quantity", "purpose", "sourceCode"],
			"properties": {
				"scientificName": {"type": "string", "minLength": 1},
				"commonName": {"type": "string", "minLength": 1},
				"citesAppendix": {"type": "string"},
				"quantity": {"type": "integer"},
				"purpose": {"type": "string"},
				"sourceCode": {"type": "string"},
				"description": {"type": "string"}
			}
		},
		"shipmentDetails": {
			"type": "object",
			"required": ["originCountry", "destinationCountry"],
			"properties": {
				"originCountry": {"type": "string", "minLength": 2},
				"destinationCountry": {"type": "string", "minLength": 2},
				"transportMethod": {"type": "string"},
				"expectedShipmentDate": {"type": "string", "format": "date-time"},
				"portOfEntry": {"type": "string"}
			}
		},
		"documents": {"type": "array"}
	}
}`

// Validator checks submissions. Safe for concurrent use.
type Validator struct {
	schema  *gojsonschema.Schema
	enabled map[models.PermitType]bool
}

// NewValidator compiles the submission schema. A non-empty
// enabledTypes narrows the accepted permit types; empty accepts every
// canonical type.
func NewValidator(enabledTypes []string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(submissionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}
	var enabled map[models.PermitType]bool
	if len(enabledTypes) > 0 {
		enabled = make(map[models.PermitType]bool, len(enabledTypes))
		for _, t := range enabledTypes {
			enabled[models.PermitType(t)] = true
		}
	}
	return &Validator{schema: schema, enabled: enabled}, nil
}

// Validate returns the normalized submission or the list of field
// errors. A non-empty error list means the data must not be persisted.
func (v *Validator) Validate(raw []byte) (*models.SubmissionData, []FieldError) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, []FieldError{{
			Field:   "body",
			Message: "request body is not valid JSON",
			Code:    CodeInvalidFormat,
		}}
	}
	if !result.Valid() {
		errs := make([]FieldError, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, FieldError{
				Field:   schemaField(desc),
				Message: desc.Description(),
				Code:    schemaCode(desc.Type()),
			})
		}
		return nil, errs
	}

	var data models.SubmissionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, []FieldError{{
			Field:   "body",
			Message: fmt.Sprintf("cannot parse submission: %v", err),
			Code:    CodeInvalidFormat,
		}}
	}

	if errs := v.check(&data); len(errs) > 0 {
		return nil, errs
	}
	return &data, nil
}

// check applies the domain rules the schema cannot express.
func (v *Validator) check(data *models.SubmissionData) []FieldError {
	var errs []FieldError

	if !data.PermitType.IsValid() {
		errs = append(errs, FieldError{
			Field:   "permitType",
			Message: fmt.Sprintf("unknown permit type: %s", data.PermitType),
			Code:    CodeInvalidEnum,
		})
	} else if v.enabled != nil && !v.enabled[data.PermitType] {
		errs = append(errs, FieldError{
			Field:   "permitType",
			Message: fmt.Sprintf("permit type not accepted: %s", data.PermitType),
			Code:    CodeInvalidValue,
		})
	}
	if !data.Species.CITESAppendix.IsValid() {
		errs = append(errs, FieldError{
			Field:   "species.citesAppendix",
			Message: fmt.Sprintf("unknown CITES appendix: %s", data.Species.CITESAppendix),
			Code:    CodeInvalidEnum,
		})
	}
	if !data.Species.Purpose.IsValid() {
		errs = append(errs, FieldError{
			Field:   "species.purpose",
			Message: fmt.Sprintf("unknown purpose: %s", data.Species.Purpose),
			Code:    CodeInvalidEnum,
		})
	}
	if !data.Species.SourceCode.IsValid() {
		errs = append(errs, FieldError{
			Field:   "species.sourceCode",
			Message: fmt.Sprintf("unknown source code: %s", data.Species.SourceCode),
			Code:    CodeInvalidEnum,
		})
	}
	if data.Species.Quantity <= 0 {
		errs = append(errs, FieldError{
			Field:   "species.quantity",
			Message: "quantity must be positive",
			Code:    CodeInvalidValue,
		})
	}
	if !emailRegex.MatchString(data.ApplicantInfo.Email) {
		errs = append(errs, FieldError{
			Field:   "applicantInfo.email",
			Message: "invalid email address",
			Code:    CodeInvalidFormat,
		})
	}

	return errs
}

func schemaField(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == "(root)" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	return field
}

func schemaCode(errType string) string {
	switch {
	case errType == "required":
		return CodeMissingRequired
	case strings.Contains(errType, "type"):
		return CodeInvalidFormat
	default:
		return CodeInvalidValue
	}
}
