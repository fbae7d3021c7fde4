package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

// MsgInvalidInput heads every validation failure.
const MsgInvalidInput = "Datos de entrada inválidos"

const (
	minPasswordRunes = 8
	minNameRunes     = 2
	maxNameRunes     = 50
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the account rules (pwd, personname).
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	mustRegister(v, "pwd", validPassword)
	mustRegister(v, "personname", validPersonName)
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validPassword requires at least 8 characters and at most
// helpers.MaxPasswordBytes bytes.
func validPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return utf8.RuneCountInString(s) >= minPasswordRunes && len(s) <= helpers.MaxPasswordBytes
}

// validPersonName measures the name as it will be stored, after trimming.
func validPersonName(fl validator.FieldLevel) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
	return n >= minNameRunes && n <= maxNameRunes
}

// Bind decodes the JSON body into obj and validates it. Failures come back as
// an apperror.Validation carrying one entry per field.
func Bind(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return apperror.Validation(MsgInvalidInput, ToDetails(err)...)
	}
	return nil
}

// BindQuery is Bind for query strings.
func BindQuery(c *gin.Context, obj any) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		return apperror.Validation(MsgInvalidInput, ToDetails(err)...)
	}
	return nil
}

// ToDetails converts validation/binding errors into field errors.
func ToDetails(err error) []apperror.FieldError {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return []apperror.FieldError{{Field: "body", Message: "El cuerpo de la petición es requerido"}}
	case errors.As(err, &ute):
		return []apperror.FieldError{{Field: ute.Field, Message: "Tipo de dato inválido"}}
	case errors.As(err, &se):
		return []apperror.FieldError{{Field: "body", Message: "JSON inválido"}}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, apperror.FieldError{Field: fe.Field(), Message: formatFieldError(fe)})
		}
		return out
	}

	return []apperror.FieldError{{Field: "body", Message: "Petición inválida"}}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "Este campo es requerido"
	case "email":
		return "Por favor ingresa un email válido"
	case "url":
		return "Debe ser una URL válida"
	case "uuid":
		return "Debe ser un UUID válido"
	case "pwd":
		if s, ok := fe.Value().(string); ok && len(s) > helpers.MaxPasswordBytes {
			return "La contraseña no puede superar 72 bytes"
		}
		return "La contraseña debe tener al menos 8 caracteres"
	case "personname":
		return "El nombre debe tener entre 2 y 50 caracteres"
	case "len":
		return "Debe tener exactamente " + param + " caracteres"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "Debe ser al menos " + param
		}
		return "Debe tener al menos " + param + " caracteres"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "Debe ser como máximo " + param
		}
		return "No puede tener más de " + param + " caracteres"
	case "nefield":
		return "Debe ser distinto de " + param
	case "eqfield":
		return "Debe coincidir con " + param
	case "oneof":
		return "Debe ser uno de: " + strings.Join(strings.Fields(param), ", ")
	case "hexadecimal":
		return "Debe ser hexadecimal"
	case "numeric":
		return "Debe ser numérico"
	default:
		if param != "" {
			return "Valor inválido (" + fe.Tag() + "=" + param + ")"
		}
		return "Valor inválido (" + fe.Tag() + ")"
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
