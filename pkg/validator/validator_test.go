package validator

import (
	"context"
	"strings"
	"testing"
)

type guestForm struct {
	Name  string `json:"name" validate:"required,max=20"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

func TestValidate(t *testing.T) {
	tt := []struct {
		name    string
		in      guestForm
		wantErr string
	}{
		{"valid", guestForm{"Ana", "ana@x.com", "+521234567890"}, ""},
		{"missing name", guestForm{"", "ana@x.com", "+521234567890"}, "field is required: name"},
		{"long name", guestForm{strings.Repeat("a", 21), "ana@x.com", "+521234567890"}, "field exceeds maximum length: name"},
		{"missing email", guestForm{"Ana", "", "+521234567890"}, "field is required: email"},
		{"bad email", guestForm{"Ana", "ana-at-x", "+521234567890"}, "invalid email address: email"},
		{"missing phone", guestForm{"Ana", "ana@x.com", ""}, "field is required: phone"},
		{"bad phone", guestForm{"Ana", "ana@x.com", "call me"}, "invalid phone number: phone"},
		{"formatted phone", guestForm{"Ana", "ana@x.com", "(55) 1234-5678"}, ""},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(context.Background(), tc.in)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("Validate() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}
