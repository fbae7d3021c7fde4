package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

func TestToDetails_FieldMessages(t *testing.T) {
	err := newValidator().Struct(signup{Name: "A", Email: "nope", Password: "short"})
	require.Error(t, err)

	got := map[string]string{}
	for _, d := range ToDetails(err) {
		got[d.Field] = d.Message
	}
	assert.Equal(t, "El nombre debe tener entre 2 y 50 caracteres", got["name"])
	assert.Equal(t, "Por favor ingresa un email válido", got["email"])
	assert.Equal(t, "La contraseña debe tener al menos 8 caracteres", got["password"])
}

func TestToDetails_Required(t *testing.T) {
	err := newValidator().Struct(signup{})
	require.Error(t, err)
	for _, d := range ToDetails(err) {
		assert.Equal(t, "Este campo es requerido", d.Message, d.Field)
	}
}

func TestToDetails_MalformedJSON(t *testing.T) {
	var dst signup
	err := json.Unmarshal([]byte(`{"name":`), &dst)
	require.Error(t, err)
	d := ToDetails(err)
	require.Len(t, d, 1)
	assert.Equal(t, "body", d[0].Field)

	err = json.Unmarshal([]byte(`{"name": 5}`), &dst)
	d = ToDetails(err)
	require.Len(t, d, 1)
	assert.Equal(t, "name", d[0].Field)
}

func TestToDetails_Nil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}

func TestPasswordRule_ByteCeiling(t *testing.T) {
	v := newValidator()
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"eight chars", "secret12", true},
		{"seventy two bytes", strings.Repeat("a", 72), true},
		{"hundred chars", strings.Repeat("a", 100), false},
		{"multibyte over limit", strings.Repeat("ñ", 40), false},
		{"seven chars", "secret1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(signup{Name: "Ana", Email: "ana@x.com", Password: tt.password})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			d := ToDetails(err)
			require.Len(t, d, 1)
			assert.Equal(t, "password", d[0].Field)
		})
	}

	err := v.Struct(signup{Name: "Ana", Email: "ana@x.com", Password: strings.Repeat("a", 100)})
	assert.Equal(t, "La contraseña no puede superar 72 bytes", ToDetails(err)[0].Message)
}

func TestPersonNameRule_MeasuresTrimmedValue(t *testing.T) {
	v := newValidator()

	err := v.Struct(signup{Name: "   A   ", Email: "ana@x.com", Password: "secret123"})
	require.Error(t, err)
	d := ToDetails(err)
	require.Len(t, d, 1)
	assert.Equal(t, "name", d[0].Field)
	assert.Equal(t, "El nombre debe tener entre 2 y 50 caracteres", d[0].Message)

	assert.NoError(t, v.Struct(signup{Name: "  Ana  ", Email: "ana@x.com", Password: "secret123"}))
	assert.Error(t, v.Struct(signup{Name: strings.Repeat("n", 51), Email: "ana@x.com", Password: "secret123"}))

	type profile struct {
		Name *string `json:"name" validate:"omitempty,personname"`
	}
	blank := "    "
	assert.Error(t, v.Struct(profile{Name: &blank}))
	assert.NoError(t, v.Struct(profile{}))
}
