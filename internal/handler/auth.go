package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/magline/magline/internal/config"
	"github.com/magline/magline/internal/model"
	"github.com/magline/magline/internal/repository"
	"github.com/magline/magline/internal/utils"
)

// UserStore is the slice of the user repository the auth flows need.
// Declared here so tests can swap in fakes.
type UserStore interface {
	Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsernameOrEmail(ctx context.Context, q string) (model.User, error)
	SetEnabled(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// RefreshTokenStore is the authoritative, revocable store holding at most
// one live refresh token per user.
type RefreshTokenStore interface {
	Replace(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteForUser(ctx context.Context, userID uint64) error
}

// Notifier hands a token link to the external delivery collaborator.
// Implementations must not block the request on delivery.
type Notifier interface {
	SendActivation(email, token string)
	SendPasswordReset(email, token string)
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens RefreshTokenStore
	Notify Notifier
}

func NewAuthHandler(cfg config.Config, u UserStore, t RefreshTokenStore, n Notifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Notify: n}
}

// Refresh tokens travel only in this HttpOnly cookie, scoped to the auth
// routes, so page scripts never see the value.
const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth"
)

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}
type emailReq struct {
	Email string `json:"email"`
}
type changePasswordReq struct {
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	Image    string   `json:"image,omitempty"`
}
type loginResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

func summarize(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Roles: []string{u.Role}, Image: u.ImageURL}
}

func (h *AuthHandler) refreshCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.Cfg.Env == "prod",
	}
}

func (h *AuthHandler) clearRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.Cfg.Env == "prod",
	}
}

// Register creates a disabled account and dispatches the activation link.
// The account cannot log in until the link is confirmed.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	h.sendActivation(req.Email)

	return c.JSON(http.StatusCreated, userPart{
		ID: uid, Username: req.Username, Email: req.Email, Roles: []string{model.RoleUser},
	})
}

// Login verifies credentials and, on success, mints an access token and
// rotates the refresh token. The access token goes back in the body; the
// refresh value travels only in the cookie. Unknown user, wrong password
// and disabled or unactivated accounts all produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UsernameOrEmail = strings.TrimSpace(req.UsernameOrEmail)
	if req.UsernameOrEmail == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "usernameOrEmail/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsernameOrEmail(ctx, req.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) || !u.IsActive || !u.Enabled {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, accessExp, err := utils.IssueToken(h.Cfg.JWTSecret,
		strconv.FormatUint(u.ID, 10), utils.PurposeAccess, u.Role,
		time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.Replace(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	c.SetCookie(h.refreshCookie(refresh.Raw, refresh.Exp))
	return c.JSON(http.StatusOK, loginResp{
		User:   summarize(u),
		Access: tokenPart{Token: access, Expires: accessExp},
	})
}

// Refresh exchanges a valid refresh cookie for a new access token. The
// refresh token itself is not rotated here; only login rotates it. An
// expired row is deleted on sight so the client must authenticate again.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token required"})
	}
	hash := utils.HashRefreshRaw(cookie.Value)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, err := h.Tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			c.SetCookie(h.clearRefreshCookie())
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !time.Now().UTC().Before(rt.ExpiresAt) {
		// Fail closed: drop the stale row before answering.
		_ = h.Tokens.DeleteByHash(ctx, hash)
		c.SetCookie(h.clearRefreshCookie())
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token expired"})
	}

	u, err := h.Users.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	access, accessExp, err := utils.IssueToken(h.Cfg.JWTSecret,
		strconv.FormatUint(u.ID, 10), utils.PurposeAccess, u.Role,
		time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access, Expires: accessExp}})
}

// Signout revokes the caller's refresh token server-side and clears the
// cookie. An anonymous signout succeeds without touching the store.
func (h *AuthHandler) Signout(c echo.Context) error {
	var uid uint64
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		raw := strings.TrimPrefix(header, "Bearer ")
		if claims, err := utils.VerifyToken(h.Cfg.JWTSecret, raw, utils.PurposeAccess); err == nil {
			uid, _ = strconv.ParseUint(claims.Subject, 10, 64)
		}
	}

	if uid != 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Tokens.DeleteForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signout failed"})
		}
	}
	c.SetCookie(h.clearRefreshCookie())
	return c.JSON(http.StatusOK, echo.Map{"message": "signed out"})
}

// ConfirmUser flips enabled=true for the account named by a valid
// activation token. Confirming an already-enabled account succeeds. All
// verification failures collapse into one generic response; the specific
// kind is only logged.
func (h *AuthHandler) ConfirmUser(c echo.Context) error {
	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, c.Param("token"), utils.PurposeActivation)
	if err != nil {
		log.Printf("auth: activation rejected: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not activate account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		log.Printf("auth: activation for unknown email: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not activate account"})
	}
	if u.Enabled {
		return c.JSON(http.StatusOK, echo.Map{"message": "account activated"})
	}
	if err := h.Users.SetEnabled(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not activate account"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account activated"})
}

// SendActivationRequest re-sends an activation link. The response shape
// does not depend on whether the address exists, so the endpoint cannot
// be used to enumerate accounts.
func (h *AuthHandler) SendActivationRequest(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if u, err := h.Users.GetByEmail(ctx, email); err == nil && !u.Enabled {
		h.sendActivation(email)
	} else if err != nil {
		log.Printf("auth: activation request for unknown email")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the address exists, an activation link has been sent"})
}

// ForgotPassword dispatches a reset link. Same enumeration hardening as
// SendActivationRequest.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, email); err == nil {
		token, _, err := utils.IssueToken(h.Cfg.JWTSecret, email, utils.PurposeReset, "",
			time.Duration(h.Cfg.VerifyTTLMin)*time.Minute)
		if err == nil {
			h.Notify.SendPasswordReset(email, token)
		} else {
			log.Printf("auth: issue reset token failed: %v", err)
		}
	} else {
		log.Printf("auth: reset request for unknown email")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the address exists, a reset link has been sent"})
}

// ChangePassword sets a new password for the account named by a valid
// reset token, then revokes the account's refresh token so open sessions
// cannot outlive the reset.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, c.Param("token"), utils.PurposeReset)
	if err != nil {
		log.Printf("auth: reset rejected: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not change password"})
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		log.Printf("auth: reset for unknown email: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not change password"})
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change password"})
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change password"})
	}
	if err := h.Tokens.DeleteForUser(ctx, u.ID); err != nil {
		log.Printf("auth: revoke sessions after reset failed: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// sendActivation mints an activation token for the address and hands it
// to the notifier. The token is the entire state of the request.
func (h *AuthHandler) sendActivation(email string) {
	token, _, err := utils.IssueToken(h.Cfg.JWTSecret, email, utils.PurposeActivation, "",
		time.Duration(h.Cfg.VerifyTTLMin)*time.Minute)
	if err != nil {
		log.Printf("auth: issue activation token failed: %v", err)
		return
	}
	h.Notify.SendActivation(email, token)
}
