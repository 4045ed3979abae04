package offering

import (
	"strconv"
	"unicode/utf8"
)

// Field types understood by the coercion step. Multipart form submissions
// deliver every value as a string; the schema says what each one means.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeString  = "string"
)

// FieldSpec declares one coercible form field.
type FieldSpec struct {
	Type      string
	Required  bool
	MaxLength int // 0 = unconstrained; applies to string fields
}

// Schema maps form field names to their specs. Fields absent from the schema
// are ignored entirely, which is what keeps client payloads from smuggling in
// columns like the owning admin id.
type Schema map[string]FieldSpec

// Fields is a typed partial record produced by coercion, keyed by column name.
type Fields map[string]any

// Coerce converts an untyped form value map into a typed partial record.
// Keys missing from the schema are dropped; empty-string values are treated
// as absent. Numeric fields that fail to parse surface a field-keyed
// validation error rather than being silently dropped.
func (s Schema) Coerce(form map[string]string) (Fields, error) {
	fields := make(Fields)
	verr := &ValidationError{}
	for name, spec := range s {
		value, ok := form[name]
		if !ok || value == "" {
			continue
		}
		switch spec.Type {
		case TypeInteger:
			n, err := strconv.Atoi(value)
			if err != nil {
				verr.Add(name, KeywordType, "must be an integer")
				continue
			}
			fields[name] = n
		case TypeNumber:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				verr.Add(name, KeywordType, "must be a number")
				continue
			}
			fields[name] = f
		case TypeBoolean:
			// exact-match contract: only the literal "true" is true
			fields[name] = value == "true"
		default:
			if spec.MaxLength > 0 && utf8.RuneCountInString(value) > spec.MaxLength {
				verr.Add(name, KeywordMaxLen, "must be at most %d characters", spec.MaxLength)
				continue
			}
			fields[name] = value
		}
	}
	if !verr.Empty() {
		return nil, verr
	}
	return fields, nil
}

// CheckRequired verifies that every required field is present in a coerced
// record. Used on the create path only; edits are partial patches and
// validate just the fields they carry.
func (s Schema) CheckRequired(fields Fields) error {
	verr := &ValidationError{}
	for name, spec := range s {
		if !spec.Required {
			continue
		}
		if _, ok := fields[name]; !ok {
			verr.Add(name, KeywordRequired, "is required")
		}
	}
	return verr.OrNil()
}

// OfferingSchema declares the client-writable scalar fields of an offering,
// keyed by column name. admin_id is deliberately absent: ownership always
// comes from the authenticated session, never from the form.
var OfferingSchema = Schema{
	// Deal information
	"title":                    {Type: TypeString, Required: true, MaxLength: 255},
	"offering_type":            {Type: TypeString, Required: true, MaxLength: 255},
	"target_funding_date":      {Type: TypeString, Required: true, MaxLength: 255},
	"minimum_investment":       {Type: TypeNumber, Required: true},
	"total_capital_investment": {Type: TypeNumber, Required: true},
	"monthly_pmt_to_investor":  {Type: TypeNumber, Required: true},
	"investor_yield":           {Type: TypeNumber, Required: true},
	"gross_protective_equity":  {Type: TypeNumber, Required: true},
	"exit_strategy":            {Type: TypeString, MaxLength: 1020},

	// Property details
	"property_address": {Type: TypeString, Required: true, MaxLength: 255},
	"property_type":    {Type: TypeString, Required: true, MaxLength: 10},
	"occupancy":        {Type: TypeString, Required: true, MaxLength: 20},
	"market_value":     {Type: TypeNumber, Required: true},
	"apn":              {Type: TypeString, MaxLength: 20},
	"county":           {Type: TypeString, MaxLength: 255},
	"year_built":       {Type: TypeInteger},
	"square_footage":   {Type: TypeNumber},
	"lot_size":         {Type: TypeString, MaxLength: 255},
	"bedrooms":         {Type: TypeInteger},
	"bathrooms":        {Type: TypeInteger},
	"exterior":         {Type: TypeString, MaxLength: 1020},
	"zoning":           {Type: TypeString, MaxLength: 1020},

	// Debt stack
	"existing_first_mortgage": {Type: TypeBoolean},
	"borrower_credit_score":   {Type: TypeInteger, Required: true},
	"loan_type":               {Type: TypeString, Required: true, MaxLength: 20},
	"lien_position":           {Type: TypeString, Required: true, MaxLength: 3},
	"payment_type":            {Type: TypeString, Required: true, MaxLength: 15},
	"loan_term":               {Type: TypeString, Required: true, MaxLength: 255},
	"prepaid_interest":        {Type: TypeString, MaxLength: 255},
	"guaranteed_interest":     {Type: TypeString, MaxLength: 255},
}
