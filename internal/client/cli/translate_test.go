package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The first name field must be at least 3 characters.", "Ism kamida 3 ta harfdan iborat bo'lishi kerak."},
		{"The last name field must be at least 3 characters.", "Familiya kamida 3 ta harfdan iborat bo'lishi kerak."},
		{"The first name field is required.", "Ism maydoni to'ldirilishi shart."},
		{"The last name field is required.", "Familiya maydoni to'ldirilishi shart."},
		{"The telegram user id field is required.", "Telegram foydalanuvchi IDsi topilmadi."},
		{"The telegram user id has already been taken.", "Bu Telegram foydalanuvchi allaqachon ro'yxatdan o'tgan."},
		{"Something else happened.", "Something else happened."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Translate(tc.in))
	}
}

func TestPrintError_APIFieldErrors(t *testing.T) {
	err := &client.APIError{
		Status:  422,
		Message: "The given data was invalid.",
		Errors: map[string][]string{
			"last_name":  {"The last name field is required."},
			"first_name": {"The first name field must be at least 3 characters."},
		},
	}

	var out bytes.Buffer
	printError(&out, fmt.Errorf("register: %w", err))

	assert.Equal(t, "Error: The given data was invalid.\n"+
		"  first_name: Ism kamida 3 ta harfdan iborat bo'lishi kerak.\n"+
		"  last_name: Familiya maydoni to'ldirilishi shart.\n", out.String())
}

func TestPrintError_LocalValidation(t *testing.T) {
	var out bytes.Buffer
	printError(&out, models.FieldErrors{"year": {"must be positive"}})
	assert.Equal(t, "Error: validation failed\n  year: must be positive\n", out.String())
}

func TestPrintError_Plain(t *testing.T) {
	var out bytes.Buffer
	printError(&out, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", out.String())
}
