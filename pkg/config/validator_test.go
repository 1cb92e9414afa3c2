package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleConfig struct {
	Name    string  `validate:"required"`
	Port    int     `validate:"min=1,max=65535"`
	Mode    string  `validate:"oneof=standalone cluster"`
	Rate    float64 `validate:"gte=0,lte=100"`
}

func TestValidatorValidate(t *testing.T) {
	v := NewValidator()

	valid := sampleConfig{Name: "core", Port: 5432, Mode: "standalone", Rate: 70}
	assert.NoError(t, v.Validate(valid))

	tests := []struct {
		name string
		cfg  sampleConfig
	}{
		{"missing name", sampleConfig{Port: 5432, Mode: "standalone"}},
		{"port out of range", sampleConfig{Name: "x", Port: 70000, Mode: "standalone"}},
		{"bad mode", sampleConfig{Name: "x", Port: 1, Mode: "sentinel"}},
		{"rate over limit", sampleConfig{Name: "x", Port: 1, Mode: "cluster", Rate: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.cfg)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestValidatorNil(t *testing.T) {
	v := NewValidator()
	assert.ErrorIs(t, v.Validate(nil), ErrNilConfig)
}

func TestValidateField(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateField(50, "gte=0,lte=100"))
	assert.Error(t, v.ValidateField(-1, "gte=0"))
}
