package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	sessionmw "github.com/MrEthical07/goSession/middleware"
)

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type mfaEnableRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

type mfaDisableRequest struct {
	Code string `json:"code"`
}

type passwordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type statusResponse struct {
	Status string   `json:"status"`
	Roles  []string `json:"roles,omitempty"`
}

type userResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	IsActive    bool     `json:"is_active"`
	MFAEnabled  bool     `json:"mfa_enabled"`
	Roles       []string `json:"roles"`
}

type mfaSetupResponse struct {
	Secret    string `json:"secret"`
	QRCodeURI string `json:"qr_code_uri"`
}

func toUserResponse(u *goSession.UserRecord) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:          u.UserID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsActive:    u.Active,
		MFAEnabled:  u.MFAEnabled,
		Roles:       roles,
	}
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched; unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"redis_latency_ms": latency.Milliseconds(),
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.engine.Register(r.Context(), goSession.RegisterRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.engine.Login(r.Context(), goSession.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		TOTPCode: strings.TrimSpace(req.TOTPCode),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Status == goSession.LoginMFARequired {
		writeJSON(w, http.StatusOK, statusResponse{Status: string(goSession.LoginMFARequired)})
		return
	}

	h.cookies.setPair(w, res.AccessToken, res.AccessExpiresAt, res.RefreshToken, res.RefreshExpiresAt)
	roles := res.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: string(goSession.LoginSuccess), Roles: roles})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(refreshCookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		raw = req.RefreshToken
	}
	if raw == "" {
		writeDetail(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	pair, err := h.engine.Refresh(r.Context(), raw)
	if err != nil {
		if errors.Is(err, goSession.ErrSessionInvalidated) {
			h.cookies.clearPair(w)
		}
		h.writeError(w, r, err)
		return
	}

	h.cookies.setPair(w, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, statusResponse{Status: "refreshed"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	if err := h.engine.Logout(r.Context(), p.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.cookies.clearPair(w)
	writeJSON(w, http.StatusOK, statusResponse{Status: "logged_out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	user, err := h.engine.GetUser(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	setup, err := h.engine.SetupMFA(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mfaSetupResponse{Secret: setup.Secret, QRCodeURI: setup.ProvisioningURI})
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req mfaEnableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.engine.EnableMFA(r.Context(), p.UserID, strings.TrimSpace(req.Secret), strings.TrimSpace(req.Code))
	if errors.Is(err, goSession.ErrInvalidMFACode) {
		writeDetail(w, http.StatusBadRequest, "Invalid verification code")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req mfaDisableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.engine.DisableMFA(r.Context(), p.UserID, strings.TrimSpace(req.Code))
	if errors.Is(err, goSession.ErrInvalidMFACode) {
		writeDetail(w, http.StatusBadRequest, "Invalid verification code")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

func (h *Handler) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.engine.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword)
	if errors.Is(err, goSession.ErrInvalidCredentials) {
		writeDetail(w, http.StatusBadRequest, "Old password incorrect")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// the refresh session is gone; the access cookie lives out its TTL
	h.cookies.clear(w, refreshCookieName)
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

// mustPrincipal returns the principal installed by the guard. Routes using it
// are always mounted behind the guard.
func mustPrincipal(r *http.Request) *goSession.Principal {
	p, ok := sessionmw.PrincipalFromContext(r.Context())
	if !ok {
		panic("httpapi: handler mounted without auth guard")
	}
	return p
}
