package entity

import (
	"net/http"

	"finsurvey/lib/validate"
)

type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (o *OTPRequest) Bind(_ *http.Request) error {
	o.Email = NormalizeEmail(o.Email)
	return validate.Struct(o)
}

type OTPVerification struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

func (o *OTPVerification) Bind(_ *http.Request) error {
	o.Email = NormalizeEmail(o.Email)
	return validate.Struct(o)
}
