package utils

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validator wrapper para go-playground/validator.
// Los nombres de campo se reportan con su nombre JSON.
type Validator struct {
	validate *validator.Validate
}

// NewValidator crea una nueva instancia del validador
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate valida una estructura
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidateStruct valida una estructura y devuelve un *ValidationError con todos los campos
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		details := GetValidationError(err)
		if len(details) == 0 {
			return WrapError(err, "invalid payload")
		}
		return NewValidationErrors(details)
	}
	return nil
}

// GetValidationError convierte errores de validación a formato legible
func GetValidationError(err error) []ValidationErrorDetail {
	var validationErrors []ValidationErrorDetail

	if validationErr, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErr {
			validationErrors = append(validationErrors, ValidationErrorDetail{
				Field:   fieldPath(fieldError.Namespace()),
				Message: getValidationMessage(fieldError),
				Value:   fieldError.Value(),
			})
		}
	}

	return validationErrors
}

// fieldPath quita del namespace la estructura raíz y las estructuras embebidas,
// que son los únicos segmentos en mayúscula.
func fieldPath(namespace string) string {
	segments := strings.Split(namespace, ".")
	out := segments[:0]
	for i, s := range segments {
		if i == 0 || s == "" {
			continue
		}
		if unicode.IsUpper([]rune(s)[0]) {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, ".")
}

// getValidationMessage genera un mensaje descriptivo para el error de validación
func getValidationMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()
	tag := fieldError.Tag()
	param := fieldError.Param()

	switch tag {
	case "required":
		return field + " is required"
	case "min":
		if fieldError.Kind() == reflect.Slice {
			return field + " must contain at least " + param + " item(s)"
		}
		return field + " must be at least " + param + " characters long"
	case "max":
		return field + " must be at most " + param + " characters long"
	case "oneof":
		return field + " must be one of: " + param
	case "gt":
		return field + " must be greater than " + param
	case "gte":
		return field + " must be greater than or equal to " + param
	case "len":
		return field + " must be exactly " + param + " characters long"
	default:
		return field + " is invalid"
	}
}

// ValidateObjectID valida que un string sea un ObjectID válido
func ValidateObjectID(id string) error {
	return validator.New().Var(id, "required,len=24,hexadecimal")
}

// SanitizeInput limpia y sanitiza input del usuario
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	// Remover caracteres de control
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)
}
