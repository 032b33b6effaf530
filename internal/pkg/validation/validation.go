// Package validation turns validate struct tags into domain field errors.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"transport-billing/internal/core/domain"
)

// Validator validates request structs and reports failures in English
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New builds a Validator that names fields by their json tag and
// validates decimal.Decimal values as numbers.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation(currencyTag, validateCurrency); err != nil {
		panic(err)
	}

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}
	err := v.RegisterTranslation(currencyTag, trans, func(ut ut.Translator) error {
		return ut.Add(currencyTag, "{0} must have at most 2 decimal places", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(currencyTag, fe.Field())
		return t
	})
	if err != nil {
		panic(err)
	}

	return &Validator{validate: v, trans: trans}
}

// currencyTag accepts amounts the storage columns hold exactly
const currencyTag = "currency"

// currencyPlaces matches the scale of every money column
const currencyPlaces = 2

func validateCurrency(fl validator.FieldLevel) bool {
	field := fl.Field()
	var d decimal.Decimal
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		// decimals arrive here as float64 through the custom type func
		d = decimal.NewFromFloat(field.Float())
	case reflect.String:
		parsed, err := decimal.NewFromString(field.String())
		if err != nil {
			return false
		}
		d = parsed
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
	return d.Equal(d.Round(currencyPlaces))
}

// Struct validates s. Tag violations come back as *domain.ValidationError;
// any other failure is returned unchanged.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(v.trans),
		})
	}
	return &domain.ValidationError{Fields: fields}
}
