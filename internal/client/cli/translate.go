package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

// errorTranslations maps backend registration messages to Uzbek.
var errorTranslations = map[string]string{
	"The first name field must be at least 3 characters.": "Ism kamida 3 ta harfdan iborat bo'lishi kerak.",
	"The last name field must be at least 3 characters.":  "Familiya kamida 3 ta harfdan iborat bo'lishi kerak.",
	"The first name field is required.":                   "Ism maydoni to'ldirilishi shart.",
	"The last name field is required.":                    "Familiya maydoni to'ldirilishi shart.",
	"The telegram user id field is required.":             "Telegram foydalanuvchi IDsi topilmadi.",
	"The telegram user id has already been taken.":        "Bu Telegram foydalanuvchi allaqachon ro'yxatdan o'tgan.",
}

// Translate returns the Uzbek form of a known backend message, or msg.
func Translate(msg string) string {
	if t, ok := errorTranslations[msg]; ok {
		return t
	}
	return msg
}

// fieldErrors extracts per-field messages from a backend validation error or
// a local validation failure.
func fieldErrors(err error) models.FieldErrors {
	var fe models.FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.FieldErrors()
	}
	return nil
}

// printError writes err to w, followed by one translated line per field
// message when err carries field errors.
func printError(w io.Writer, err error) {
	fe := fieldErrors(err)

	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintln(w, "Error:", Translate(apiErr.Message))
	case len(fe) > 0:
		fmt.Fprintln(w, "Error: validation failed")
	default:
		fmt.Fprintln(w, "Error:", err)
	}

	for _, field := range fe.Fields() {
		for _, msg := range fe[field] {
			fmt.Fprintf(w, "  %s: %s\n", field, Translate(msg))
		}
	}
}
