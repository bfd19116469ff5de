package http

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"finboard/internal/resource"
)

var (
	formValidateOnce sync.Once
	formValidate     *validator.Validate
)

func formValidator() *validator.Validate {
	formValidateOnce.Do(func() {
		formValidate = validator.New(validator.WithRequiredStructEnabled())
	})
	return formValidate
}

// fieldMessages are shown next to the form; keys are "Field.tag".
var fieldMessages = map[string]string{
	"Email.required":    "Email is required",
	"Email.email":       "Invalid email format",
	"Password.required": "Password is required",
	"Password.min":      "Password must be at least 5 characters long",
}

// validationMessage turns validator errors into one line for an inline fragment.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if m, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			msgs = append(msgs, m)
			continue
		}
		msgs = append(msgs, fe.Field()+" is invalid")
	}
	return strings.Join(msgs, ". ")
}

// loginForm reads and validates the login form.
func loginForm(r *http.Request) (resource.Credentials, error) {
	cred := resource.Credentials{
		Email:    sanitizeInput(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if err := formValidator().Struct(cred); err != nil {
		return cred, err
	}
	return cred, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
