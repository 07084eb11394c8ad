package menu

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/core"
)

var validate = validator.New()

// ValidateAmount parses a positive amount. Comma decimals are accepted.
func ValidateAmount(s string) (float64, error) {
	amount, err := core.ParseAmount(s)
	switch {
	case errors.Is(err, core.ErrAmountNotNumber):
		return 0, errors.New("Amount must be a valid number")
	case err != nil:
		return 0, errors.New("Amount must be greater than zero")
	}
	if validate.Var(amount, "gt=0") != nil {
		return 0, errors.New("Amount must be greater than zero")
	}
	return amount, nil
}

// ValidateCategory trims the input and capitalises it: first letter upper,
// the rest lower.
func ValidateCategory(s string) (string, error) {
	s = strings.TrimSpace(s)
	if validate.Var(s, "required") != nil {
		return "", errors.New("Category cannot be empty")
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:]), nil
}

// ValidateDate returns today's date for blank input and otherwise requires
// a YYYY-MM-DD calendar date.
func ValidateDate(s string, now core.Clock) (string, error) {
	if strings.TrimSpace(s) == "" {
		if now == nil {
			now = time.Now
		}
		return now().Format(core.DateLayout), nil
	}
	if validate.Var(s, "datetime="+core.DateLayout) != nil {
		return "", errors.New("Date must be in YYYY-MM-DD format")
	}
	return s, nil
}
