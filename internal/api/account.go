package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"inventory-sales-service/internal/auth"
)

type loginView struct {
	Email     string
	ReturnURL string
	Error     string
}

const msgInvalidCredentials = "Credenciales inválidas."

func (h *HTTPHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	returnURL := auth.SafeReturnURL(r.URL.Query().Get("returnUrl"))
	if _, ok := h.sessions.Current(r); ok {
		h.redirect(w, r, returnURL)
		return
	}
	h.render(w, r, http.StatusOK, "login", "Iniciar sesión", loginView{ReturnURL: returnURL})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.badRequest(w, r, "Formulario inválido.")
		return
	}
	email := r.PostFormValue("email")
	returnURL := auth.SafeReturnURL(r.PostFormValue("returnUrl"))

	id, err := h.verifier.Verify(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.serverError(w, r, "Credential verification failed", err)
			return
		}
		h.logger.Info("Rejected login", zap.String("email", email))
		h.render(w, r, http.StatusUnauthorized, "login", "Iniciar sesión", loginView{
			Email:     email,
			ReturnURL: returnURL,
			Error:     msgInvalidCredentials,
		})
		return
	}

	if err := h.sessions.SignIn(w, r, id); err != nil {
		h.serverError(w, r, "Failed to issue session", err)
		return
	}
	h.logger.Info("Signed in", zap.String("email", id.Email))
	h.redirect(w, r, returnURL)
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		h.logger.Warn("Failed to clear session", zap.Error(err))
	}
	h.redirect(w, r, auth.LoginPath)
}
