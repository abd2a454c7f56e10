package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"mymodels-api/meta"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NonFieldErrorsKey collects errors that do not belong to a single field.
const NonFieldErrorsKey = "non_field_errors"

// FieldErrors maps a JSON field name to its validation messages.
type FieldErrors = meta.FieldErrors

// ParseError is returned when the request body is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "JSON parse error - " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	slugRegex   = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	decimalType = reflect.TypeOf(decimal.Decimal{})
	setupOnce   sync.Once

	// readOnlyFields are the metadata keys dropped from request bodies.
	readOnlyFields = jsonFields(reflect.TypeOf(meta.ObjectMeta{}))
)

// setupValidator extends gin's shared validator engine with the rules and
// naming used by the serializers. Safe to call more than once.
func setupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugRegex.MatchString(fl.Field().String())
		})
		if err != nil {
			panic(fmt.Sprintf("register slug validation: %v", err))
		}
	})
}

// Serializer turns request payloads into validated resources.
type Serializer[T any] struct {
	fields map[string]jsonField
}

// jsonField is a struct field as seen by encoding/json, keyed by its
// lower-cased name since key matching is case-insensitive.
type jsonField struct {
	Name string
	Type reflect.Type
}

// NewSerializer creates a serializer for T.
func NewSerializer[T any]() *Serializer[T] {
	setupValidator()
	return &Serializer[T]{fields: jsonFields(reflect.TypeOf((*T)(nil)).Elem())}
}

// jsonFields lists the JSON keys of a struct type, promoting the fields of
// untagged embedded structs the way encoding/json does.
func jsonFields(t reflect.Type) map[string]jsonField {
	fields := map[string]jsonField{}
	if t.Kind() != reflect.Struct {
		return fields
	}
	var embedded []reflect.Type
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, ft)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[strings.ToLower(name)] = jsonField{Name: name, Type: f.Type}
	}
	for _, et := range embedded {
		for key, field := range jsonFields(et) {
			if _, ok := fields[key]; !ok {
				fields[key] = field
			}
		}
	}
	return fields
}

// Bind decodes body onto obj and validates the result. Fields absent from
// body keep whatever value obj already holds, so callers pick full or
// partial semantics by choosing the starting value. Metadata held by obj is
// never overwritten by the payload. Unique fields are checked through dao.
func (s *Serializer[T]) Bind(ctx context.Context, dao *DAO[T], body []byte, obj *T) error {
	var saved meta.ObjectMeta
	o, hasMeta := any(obj).(meta.Object)
	if hasMeta {
		saved = *o.GetObjectMeta()
	}

	errs := FieldErrors{}
	var err error
	if len(bytes.TrimSpace(body)) > 0 {
		body, err = s.clean(body, hasMeta, errs)
		if err != nil {
			return err
		}
		err = binding.JSON.BindBody(body, obj)
	} else {
		err = binding.Validator.ValidateStruct(obj)
	}
	if hasMeta {
		*o.GetObjectMeta() = saved
	}

	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return decodeError(err)
		}
		for _, fe := range verrs {
			// a key dropped for its type would otherwise also be reported missing
			if _, failed := errs[fe.Field()]; failed {
				continue
			}
			errs.Add(fe.Field(), validationMessage(fe))
		}
	}

	if v, ok := any(obj).(meta.ResourceValidator); ok {
		if err := v.Validate(); err != nil {
			var verrs FieldErrors
			if !errors.As(err, &verrs) {
				return err
			}
			for field, messages := range verrs {
				if _, failed := errs[field]; failed {
					continue
				}
				errs[field] = append(errs[field], messages...)
			}
		}
	}

	if u, ok := any(obj).(meta.Unique); ok && dao != nil {
		for _, f := range u.UniqueFields() {
			if _, failed := errs[f.Name]; failed {
				continue
			}
			taken, err := dao.Exists(ctx, f.Column, f.Value, saved.ID)
			if err != nil {
				return fmt.Errorf("check unique %s: %w", f.Name, err)
			}
			if taken {
				errs.Add(f.Name, fmt.Sprintf("%s with this %s already exists.", verboseName(obj), f.Name))
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// clean drops read-only metadata keys from a JSON object body and decodes
// every remaining known key on its own, so a value of the wrong type is
// reported under its JSON name. Keys that fail are recorded in errs and
// removed from the returned body.
func (s *Serializer[T]) clean(body []byte, dropMeta bool, errs FieldErrors) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, decodeError(err)
	}
	if raw == nil {
		return body, nil
	}
	for key, value := range raw {
		lower := strings.ToLower(key)
		if _, ok := readOnlyFields[lower]; ok && dropMeta {
			delete(raw, key)
			continue
		}
		field, ok := s.fields[lower]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, reflect.New(field.Type).Interface()); err != nil {
			errs.Add(field.Name, typeMessage(field.Type))
			delete(raw, key)
		}
	}
	return json.Marshal(raw)
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return FieldErrors{NonFieldErrorsKey: {
				fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", typeErr.Value),
			}}
		}
		return FieldErrors{typeErr.Field: {typeMessage(typeErr.Type)}}
	}
	return &ParseError{Err: err}
}

func typeMessage(t reflect.Type) string {
	if t == decimalType {
		return "A valid number is required."
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Float32, reflect.Float64:
		return "A valid number is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Must be a valid boolean."
	default:
		return fmt.Sprintf("Incorrect type. Expected %s.", t.Kind())
	}
}

func validationMessage(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if text {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if text {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "slug":
		return `Enter a valid "slug" consisting of letters, numbers, underscores or hyphens.`
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

func verboseName(obj any) string {
	if n, ok := obj.(meta.Named); ok {
		return n.VerboseName()
	}
	return "object"
}
