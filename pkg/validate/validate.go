// Package validate checks inbound order payloads against their schema.
// Every violation is reported, not just the first.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/uhyunpark/airship/pkg/crypto"
)

// MinKeyLength is the shortest accepted mint / order key string
const MinKeyLength = 40

// CreateOrderRequest is the body of POST /createOrder
type CreateOrderRequest struct {
	Owner      string      `json:"owner" validate:"required,pubkey"`
	InAmount   json.Number `json:"inAmount" validate:"required,number"`
	OutAmount  json.Number `json:"outAmount" validate:"required,number"`
	InputMint  string      `json:"inputMint" validate:"required,min=40,pubkey"`
	OutputMint string      `json:"outputMint" validate:"required,min=40,pubkey"`
}

// CancelOrderRequest is the body of DELETE /cancel/{orderId}
type CancelOrderRequest struct {
	Owner       string `json:"owner" validate:"required,min=40,pubkey"`
	OrderPubKey string `json:"orderPubKey" validate:"required,min=40,pubkey"`
}

// FieldError is one schema violation
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a payload
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "Request invalid: " + strings.Join(msgs, ". ")
}

// Has reports whether field has at least one violation
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	if err := v.RegisterValidation("pubkey", func(fl validator.FieldLevel) bool {
		return crypto.IsPublicKey(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateCreateOrderFields checks a create-order payload
func ValidateCreateOrderFields(req *CreateOrderRequest) error {
	return check(req)
}

// ValidateCancelOrderFields checks a cancel-order payload
func ValidateCancelOrderFields(req *CancelOrderRequest) error {
	return check(req)
}

// DecodeCreateOrder reads and validates a create-order body
func DecodeCreateOrder(r io.Reader) (*CreateOrderRequest, error) {
	var req CreateOrderRequest
	if err := decodeAndCheck(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeCancelOrder reads and validates a cancel-order body
func DecodeCancelOrder(r io.Reader) (*CancelOrderRequest, error) {
	var req CancelOrderRequest
	if err := decodeAndCheck(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func check(v interface{}) error {
	fields := structErrors(v)
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// decodeAndCheck decodes the body one field at a time, so a mistyped
// field is reported next to every other violation instead of aborting the
// decode. Keys outside the schema are rejected.
func decodeAndCheck(r io.Reader, v interface{}) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return &ValidationError{Fields: []FieldError{{
			Field:   "body",
			Rule:    "json",
			Message: fmt.Sprintf("body must be a valid JSON object: %v", err),
		}}}
	}

	var fields []FieldError
	target := reflect.ValueOf(v).Elem()
	known := make(map[string]bool, target.NumField())
	for i := 0; i < target.NumField(); i++ {
		name := jsonName(target.Type().Field(i))
		if name == "" {
			continue
		}
		known[name] = true

		value, ok := raw[name]
		if !ok {
			continue
		}
		field := target.Field(i)
		if err := json.Unmarshal(value, field.Addr().Interface()); err != nil {
			field.Set(reflect.Zero(field.Type()))
			fields = append(fields, FieldError{
				Field:   name,
				Rule:    "type",
				Message: fmt.Sprintf("%q must be a %s", name, describeKind(field.Type())),
			})
		}
	}

	var unknown []string
	for name := range raw {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	for _, f := range structErrors(v) {
		if !(&ValidationError{Fields: fields}).Has(f.Field) {
			fields = append(fields, f)
		}
	}
	for _, name := range unknown {
		fields = append(fields, FieldError{
			Field:   name,
			Rule:    "unknown",
			Message: fmt.Sprintf("%q is not allowed", name),
		})
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func structErrors(v interface{}) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Rule: "invalid", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fe.Field())
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", fe.Field(), fe.Param())
	case "number":
		return fmt.Sprintf("%q must be an unsigned integer", fe.Field())
	case "pubkey":
		return fmt.Sprintf("%q must be a valid base58 public key", fe.Field())
	}
	return fmt.Sprintf("%q failed on %s", fe.Field(), fe.Tag())
}

func describeKind(t reflect.Type) string {
	if t == reflect.TypeOf(json.Number("")) {
		return "number"
	}
	return t.Kind().String()
}
