package services

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gmapauth/internal/common"
	"github.com/dmitrijs2005/gmapauth/internal/cryptox"
)

const (
	SignupPasswordMinLength = 6
	ResetPasswordMinLength  = 8

	maxEmailLength = 191
	maxNameLength  = 120
)

const (
	msgRequired     = "This field may not be blank."
	msgInvalidEmail = "Enter a valid email address."
)

func requireField(v *common.ValidationError, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, msgRequired)
		return false
	}
	return true
}

func checkEmail(v *common.ValidationError, field, email string) {
	if !requireField(v, field, email) {
		return
	}
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLength {
		v.Add(field, msgInvalidEmail)
	}
}

func checkMinLength(v *common.ValidationError, field, value string, n int) {
	if !requireField(v, field, value) {
		return
	}
	if utf8.RuneCountInString(value) < n {
		v.Add(field, fmt.Sprintf("Ensure this field has at least %d characters.", n))
	}
}

func checkMaxLength(v *common.ValidationError, field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		v.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", n))
	}
}

func (in SignupInput) validate() error {
	v := common.NewValidationError()
	if requireField(v, "name", in.Name) {
		checkMaxLength(v, "name", strings.TrimSpace(in.Name), maxNameLength)
	}
	checkEmail(v, "email", in.Email)
	checkMinLength(v, "password", in.Password, SignupPasswordMinLength)
	return v.OrNil()
}

func (in LoginInput) validate() error {
	v := common.NewValidationError()
	checkEmail(v, "email", in.Email)
	requireField(v, "password", in.Password)
	return v.OrNil()
}

func validateToken(token string) error {
	v := common.NewValidationError()
	requireField(v, "token", token)
	return v.OrNil()
}

func validateForgotPassword(email string) error {
	v := common.NewValidationError()
	checkEmail(v, "email", email)
	return v.OrNil()
}

func (in VerifyResetOTPInput) validate() error {
	v := common.NewValidationError()
	checkEmail(v, "email", in.Email)
	if requireField(v, "otp", in.OTP) && utf8.RuneCountInString(in.OTP) != cryptox.OTPDigits {
		v.Add("otp", fmt.Sprintf("Ensure this field has exactly %d characters.", cryptox.OTPDigits))
	}
	return v.OrNil()
}

func (in ResetPasswordInput) validate() error {
	v := common.NewValidationError()
	requireField(v, "resetToken", in.ResetToken)
	checkMinLength(v, "password", in.Password, ResetPasswordMinLength)
	return v.OrNil()
}
