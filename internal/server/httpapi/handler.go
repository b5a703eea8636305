package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/models"
	"github.com/dmitrijs2005/gmapauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// AuthFlows is the part of services.AuthService the handlers call.
type AuthFlows interface {
	Signup(ctx context.Context, in services.SignupInput) error
	VerifyEmail(ctx context.Context, token string) (*services.Session, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, in services.VerifyResetOTPInput) (string, error)
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) error
}

type AuthHandler struct {
	flows AuthFlows
	log   logging.Logger
}

func NewAuthHandler(flows AuthFlows, log logging.Logger) *AuthHandler {
	return &AuthHandler{flows: flows, log: log.With("component", "http")}
}

// RegisterRoutes mounts the flows. Trailing slashes are stripped by the
// router, so /auth/login and /auth/login/ both match.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.Signup)
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/verify-reset-otp", h.VerifyResetOTP)
	r.Post("/reset-password", h.ResetPassword)
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type verifyResetOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	ResetToken string `json:"resetToken"`
	Password   string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	Message string               `json:"message,omitempty"`
	Access  string               `json:"access"`
	Refresh string               `json:"refresh"`
	User    models.PublicAccount `json:"user"`
}

type resetTokenResponse struct {
	ResetToken string `json:"resetToken"`
}

type errorBody struct {
	Error any `json:"error"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.flows.Signup(r.Context(), services.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, signupErrors, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Verification link sent to your email."})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.flows.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, verifyEmailErrors, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse("Email verified.", sess))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.flows.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, loginErrors, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse("", sess))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.flows.ForgotPassword(r.Context(), req.Email); err != nil {
		h.fail(w, r, forgotPasswordErrors, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "If that email exists, a code was sent."})
}

func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyResetOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.flows.VerifyResetOTP(r.Context(), services.VerifyResetOTPInput{Email: req.Email, OTP: req.OTP})
	if err != nil {
		h.fail(w, r, verifyResetOTPErrors, err)
		return
	}
	writeJSON(w, http.StatusOK, resetTokenResponse{ResetToken: token})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.flows.ResetPassword(r.Context(), services.ResetPasswordInput{ResetToken: req.ResetToken, Password: req.Password})
	if err != nil {
		h.fail(w, r, resetPasswordErrors, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successful."})
}

func newSessionResponse(message string, s *services.Session) sessionResponse {
	return sessionResponse{
		Message: message,
		Access:  s.Tokens.Access,
		Refresh: s.Tokens.Refresh,
		User:    s.Account,
	}
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body."})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
