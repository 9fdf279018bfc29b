package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tradebench/tradebench/internal/model"
)

const sessionCookieName = "session"

// userView is the account shape returned to the SPA.
type userView struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	SelectedYear int    `json:"selected_year"`
}

func viewOf(u *model.User) userView {
	return userView{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		SelectedYear: u.SelectedYear,
	}
}

// requireAuth is middleware that checks for a valid session cookie. Failures
// return a JSON 401: the SPA keeps quiz-taking alive locally and retries the
// sync later.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondMessage(w, r, http.StatusUnauthorized, "ErrNotAuthenticated")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondMessage(w, r, http.StatusUnauthorized, "ErrNotAuthenticated")
			return
		}
		if authSess == nil {
			respondMessage(w, r, http.StatusUnauthorized, "ErrNotAuthenticated")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil {
			respondMessage(w, r, http.StatusUnauthorized, "ErrNotAuthenticated")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
		MaxAge:   7 * 24 * 60 * 60,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email            string `json:"email"`
		Password         string `json:"password"`
		FullName         string `json:"full_name"`
		SecurityQuestion string `json:"security_question"`
		SecurityAnswer   string `json:"security_answer"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondMessage(w, r, http.StatusBadRequest, "ErrRegisterFields")
		return
	}
	if body.Email == "" || body.Password == "" || body.FullName == "" {
		respondMessage(w, r, http.StatusBadRequest, "ErrRegisterFields")
		return
	}

	existing, err := h.store.GetUserByEmail(body.Email)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		respondMessage(w, r, http.StatusConflict, "ErrEmailExists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	nameParts := strings.Fields(body.FullName)
	firstName := ""
	lastName := ""
	if len(nameParts) > 0 {
		firstName = nameParts[0]
		lastName = strings.Join(nameParts[1:], " ")
	}

	var answerHash string
	if body.SecurityAnswer != "" {
		ah, err := bcrypt.GenerateFromPassword(
			[]byte(strings.ToLower(strings.TrimSpace(body.SecurityAnswer))),
			bcrypt.DefaultCost,
		)
		if err != nil {
			slog.Error("failed to hash security answer", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		answerHash = string(ah)
	}

	id, err := h.store.CreateUser(model.User{
		Email:              body.Email,
		PasswordHash:       string(hash),
		FullName:           body.FullName,
		FirstName:          firstName,
		LastName:           lastName,
		SecurityQuestion:   body.SecurityQuestion,
		SecurityAnswerHash: answerHash,
	})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := h.store.GetUserByID(id)
	if err != nil || user == nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusCreated, viewOf(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Email == "" || body.Password == "" {
		respondMessage(w, r, http.StatusBadRequest, "ErrInvalidCredentials")
		return
	}

	user, err := h.store.GetUserByEmail(body.Email)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		respondMessage(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if user == nil {
		respondMessage(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		respondMessage(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, viewOf(user))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	respondMessage(w, r, http.StatusOK, "MsgLoggedOut")
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	respondJSON(w, http.StatusOK, viewOf(user))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var body struct {
		SelectedYear int `json:"selected_year"`
	}
	if err := decodeJSON(r, &body); err != nil || body.SelectedYear < 1 || body.SelectedYear > model.NumYears {
		respondMessage(w, r, http.StatusBadRequest, "ErrYearRequired")
		return
	}

	if err := h.store.UpdateSelectedYear(user.ID, body.SelectedYear); err != nil {
		slog.Error("failed to update selected year", "user_id", user.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user.SelectedYear = body.SelectedYear
	respondJSON(w, http.StatusOK, viewOf(user))
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Email == "" {
		respondMessage(w, r, http.StatusNotFound, "ErrAccountNotFound")
		return
	}

	user, err := h.store.GetUserByEmail(body.Email)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil || user.SecurityQuestion == "" {
		respondMessage(w, r, http.StatusNotFound, "ErrAccountNotFound")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"security_question": user.SecurityQuestion})
}

func (h *Handler) handleVerifyAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email          string `json:"email"`
		SecurityAnswer string `json:"security_answer"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondMessage(w, r, http.StatusNotFound, "ErrAccountNotFound")
		return
	}

	user, err := h.store.GetUserByEmail(body.Email)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil || user.SecurityAnswerHash == "" {
		respondMessage(w, r, http.StatusNotFound, "ErrAccountNotFound")
		return
	}

	answer := strings.ToLower(strings.TrimSpace(body.SecurityAnswer))
	if err := bcrypt.CompareHashAndPassword([]byte(user.SecurityAnswerHash), []byte(answer)); err != nil {
		respondMessage(w, r, http.StatusUnauthorized, "ErrIncorrectAnswer")
		return
	}

	token, err := h.store.CreateResetToken(user.ID)
	if err != nil {
		slog.Error("failed to create reset token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"reset_token": token})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ResetToken  string `json:"reset_token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ResetToken == "" || body.NewPassword == "" {
		respondMessage(w, r, http.StatusUnauthorized, "ErrInvalidResetToken")
		return
	}

	userID, err := h.store.ConsumeResetToken(body.ResetToken)
	if err != nil {
		slog.Error("failed to consume reset token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if userID == 0 {
		respondMessage(w, r, http.StatusUnauthorized, "ErrInvalidResetToken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.store.UpdatePasswordHash(userID, string(hash)); err != nil {
		slog.Error("failed to update password", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondMessage(w, r, http.StatusOK, "MsgPasswordReset")
}
