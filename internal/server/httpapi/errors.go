package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gmapauth/internal/common"
)

const msgInternal = "Internal server error."

// errorCase maps one sentinel to a status and client message.
type errorCase struct {
	err     error
	status  int
	message string
}

// endpointErrors describes how an endpoint reports failures. An empty
// invalidInput means validation failures are returned field by field.
type endpointErrors struct {
	invalidInput string
	cases        []errorCase
}

var (
	signupErrors = endpointErrors{
		cases: []errorCase{
			{common.ErrorAlreadyExists, http.StatusBadRequest, "Email already registered."},
		},
	}
	verifyEmailErrors = endpointErrors{
		invalidInput: "Invalid token.",
		cases: []errorCase{
			{common.ErrorTokenExpired, http.StatusBadRequest, "Token expired. Please signup again."},
			{common.ErrorInvalidOrExpired, http.StatusBadRequest, "Invalid or expired token."},
		},
	}
	loginErrors = endpointErrors{
		invalidInput: "Invalid credentials.",
		cases: []errorCase{
			{common.ErrorInvalidCredentials, http.StatusBadRequest, "Invalid credentials."},
			{common.ErrorEmailNotVerified, http.StatusForbidden, "Please verify your email before logging in."},
		},
	}
	forgotPasswordErrors = endpointErrors{
		invalidInput: "Enter a valid email.",
	}
	verifyResetOTPErrors = endpointErrors{
		invalidInput: "Invalid request.",
		cases: []errorCase{
			{common.ErrorTokenExpired, http.StatusBadRequest, "Code expired. Please resend."},
			{common.ErrorInvalidOrExpired, http.StatusBadRequest, "Invalid or expired code."},
			{common.ErrorTooManyAttempts, http.StatusTooManyRequests, "Too many attempts. Please resend code."},
			{common.ErrorInvalidCode, http.StatusBadRequest, "Invalid code."},
		},
	}
	resetPasswordErrors = endpointErrors{
		invalidInput: "Invalid request.",
		cases: []errorCase{
			{common.ErrorTokenExpired, http.StatusBadRequest, "Reset token expired. Please restart."},
			{common.ErrorInvalidOrExpired, http.StatusBadRequest, "Invalid or expired reset token."},
		},
	}
)

// resolve picks the status and body for err. Unknown errors become a bare
// 500 and ok is false.
func (e endpointErrors) resolve(err error) (status int, body errorBody, ok bool) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		if e.invalidInput == "" {
			return http.StatusBadRequest, errorBody{Error: verr.Fields}, true
		}
		return http.StatusBadRequest, errorBody{Error: e.invalidInput}, true
	}

	// ordered: ErrorTokenExpired must be tried before ErrorInvalidOrExpired
	for _, c := range e.cases {
		if errors.Is(err, c.err) {
			return c.status, errorBody{Error: c.message}, true
		}
	}
	return http.StatusInternalServerError, errorBody{Error: msgInternal}, false
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, e endpointErrors, err error) {
	status, body, ok := e.resolve(err)
	if !ok {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}
