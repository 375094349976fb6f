package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magline/magline/internal/config"
	"github.com/magline/magline/internal/model"
	"github.com/magline/magline/internal/repository"
	"github.com/magline/magline/internal/utils"
)

// ----- fakes -----

type fakeUserStore struct {
	users  map[uint64]model.User
	nextID uint64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]model.User{}, nextID: 1}
}

func (f *fakeUserStore) Create(_ context.Context, username, email, password, role string, cost int) (uint64, error) {
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
		if u.Username == username {
			return 0, repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	f.users[id] = model.User{
		ID: id, Username: username, Email: email, PasswordHash: hash,
		Role: role, IsActive: true, Enabled: false,
	}
	return id, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByUsernameOrEmail(_ context.Context, q string) (model.User, error) {
	for _, u := range f.users {
		if u.Username == q || u.Email == q {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) SetEnabled(_ context.Context, id uint64) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Enabled = true
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uint64, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	f.users[id] = u
	return nil
}

type fakeTokenStore struct {
	rows map[uint64]model.RefreshToken

	replaceCalls       int
	deleteByHashCalls  int
	deleteForUserCalls int
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{rows: map[uint64]model.RefreshToken{}}
}

func (f *fakeTokenStore) Replace(_ context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	f.replaceCalls++
	f.rows[userID] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokenStore) FindByHash(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	for _, rt := range f.rows {
		if rt.TokenHash == tokenHash {
			return rt, nil
		}
	}
	return model.RefreshToken{}, repository.ErrRefreshTokenNotFound
}

func (f *fakeTokenStore) DeleteByHash(_ context.Context, tokenHash string) error {
	f.deleteByHashCalls++
	for uid, rt := range f.rows {
		if rt.TokenHash == tokenHash {
			delete(f.rows, uid)
		}
	}
	return nil
}

func (f *fakeTokenStore) DeleteForUser(_ context.Context, userID uint64) error {
	f.deleteForUserCalls++
	delete(f.rows, userID)
	return nil
}

type fakeNotifier struct {
	activations map[string]string // email -> last activation token
	resets      map[string]string // email -> last reset token
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{activations: map[string]string{}, resets: map[string]string{}}
}

func (f *fakeNotifier) SendActivation(email, token string)    { f.activations[email] = token }
func (f *fakeNotifier) SendPasswordReset(email, token string) { f.resets[email] = token }

// ----- harness -----

const authTestSecret = "auth-test-secret"

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      authTestSecret,
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		VerifyTTLMin:   30,
		BcryptCost:     4,
	}
}

func newAuthFixture() (*AuthHandler, *fakeUserStore, *fakeTokenStore, *fakeNotifier) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	notify := newFakeNotifier()
	return NewAuthHandler(testConfig(), users, tokens, notify), users, tokens, notify
}

// seedUser inserts an account that can log in with the given password.
func seedUser(t *testing.T, users *fakeUserStore, username, email, password string) uint64 {
	t.Helper()
	id, err := users.Create(context.Background(), username, email, password, model.RoleUser, 4)
	require.NoError(t, err)
	require.NoError(t, users.SetEnabled(context.Background(), id))
	return id
}

func jsonRequest(method, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func doLogin(t *testing.T, h *AuthHandler, usernameOrEmail, password string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req, rec := jsonRequest(http.MethodPost,
		`{"usernameOrEmail":"`+usernameOrEmail+`","password":"`+password+`"}`)
	require.NoError(t, h.Login(e.NewContext(req, rec)))
	return rec
}

func doRefresh(t *testing.T, h *AuthHandler, refreshRaw string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "")
	if refreshRaw != "" {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshRaw})
	}
	require.NoError(t, h.Refresh(e.NewContext(req, rec)))
	return rec
}

// ----- register / activation -----

func TestRegister_CreatesDisabledAccountAndSendsActivation(t *testing.T) {
	t.Parallel()
	h, users, _, notify := newAuthFixture()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost,
		`{"username":"ada","email":"Ada@Example.com","password":"secret"}`)
	require.NoError(t, h.Register(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusCreated, rec.Code)

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.False(t, u.Enabled, "account must wait for the activation link")
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Contains(t, notify.activations, "ada@example.com")

	// The captured token actually carries the activation purpose.
	claims, err := utils.VerifyToken(authTestSecret, notify.activations["ada@example.com"], utils.PurposeActivation)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Subject)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	h, users, _, _ := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost,
		`{"username":"other","email":"ada@example.com","password":"secret"}`)
	require.NoError(t, h.Register(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmUser_EnablesAccount(t *testing.T) {
	t.Parallel()
	h, users, _, notify := newAuthFixture()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost,
		`{"username":"ada","email":"ada@example.com","password":"secret"}`)
	require.NoError(t, h.Register(e.NewContext(req, rec)))

	confirm := func(token string) *httptest.ResponseRecorder {
		req, rec := jsonRequest(http.MethodPost, "")
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, h.ConfirmUser(c))
		return rec
	}

	rec2 := confirm(notify.activations["ada@example.com"])
	assert.Equal(t, http.StatusOK, rec2.Code)

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, u.Enabled)

	// Confirming an already-enabled account is a success, not an error.
	again, _, err := utils.IssueToken(authTestSecret, "ada@example.com", utils.PurposeActivation, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, confirm(again).Code)
}

func TestConfirmUser_RejectsExpiredAndWrongPurpose(t *testing.T) {
	t.Parallel()
	h, users, _, _ := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	e := echo.New()
	confirm := func(token string) *httptest.ResponseRecorder {
		req, rec := jsonRequest(http.MethodPost, "")
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, h.ConfirmUser(c))
		return rec
	}

	expired, _, err := utils.IssueToken(authTestSecret, "ada@example.com", utils.PurposeActivation, "", -time.Minute)
	require.NoError(t, err)
	rec := confirm(expired)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A reset token must not activate an account.
	reset, _, err := utils.IssueToken(authTestSecret, "ada@example.com", utils.PurposeReset, "", time.Hour)
	require.NoError(t, err)
	rec = confirm(reset)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Both failures share one response body so the caller learns nothing
	// about which check tripped.
	assert.Contains(t, rec.Body.String(), "could not activate account")
}

func TestSendActivationRequest_SuccessShapedForUnknownEmail(t *testing.T) {
	t.Parallel()
	h, _, _, notify := newAuthFixture()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, `{"email":"ghost@example.com"}`)
	require.NoError(t, h.SendActivationRequest(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, notify.activations)
}

// ----- login / refresh -----

func TestLogin_Success(t *testing.T) {
	t.Parallel()
	h, users, tokens, _ := newAuthFixture()
	uid := seedUser(t, users, "ada", "ada@example.com", "secret")

	rec := doLogin(t, h, "ada", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	// Access token comes back in the body and verifies as an access token.
	assert.Contains(t, rec.Body.String(), `"access"`)
	assert.NotContains(t, rec.Body.String(), `"refresh_token"`)

	ck := findCookie(rec, "refresh_token")
	require.NotNil(t, ck, "refresh token travels only as a cookie")
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/api/auth", ck.Path)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)

	// Exactly one live refresh row, matching the cookie value by hash.
	require.Len(t, tokens.rows, 1)
	assert.Equal(t, utils.HashRefreshRaw(ck.Value), tokens.rows[uid].TokenHash)
}

func TestLogin_UniformFailures(t *testing.T) {
	t.Parallel()
	h, users, _, _ := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	// Unactivated account.
	_, err := users.Create(context.Background(), "bob", "bob@example.com", "secret", model.RoleUser, 4)
	require.NoError(t, err)

	// Administratively deactivated account.
	cid := seedUser(t, users, "carol", "carol@example.com", "secret")
	cu := users.users[cid]
	cu.IsActive = false
	users.users[cid] = cu

	for _, tc := range []struct{ who, pass string }{
		{"nobody", "secret"},  // unknown principal
		{"ada", "wrongpass"},  // wrong password
		{"bob", "secret"},     // not activated
		{"carol", "secret"},   // deactivated
	} {
		rec := doLogin(t, h, tc.who, tc.pass)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.who)
		assert.Contains(t, rec.Body.String(), "invalid credentials", tc.who)
		assert.Nil(t, findCookie(rec, "refresh_token"), tc.who)
	}
}

func TestLogin_RotationInvalidatesPreviousRefreshToken(t *testing.T) {
	t.Parallel()
	h, users, tokens, _ := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	first := findCookie(doLogin(t, h, "ada", "secret"), "refresh_token")
	require.NotNil(t, first)
	second := findCookie(doLogin(t, h, "ada", "secret"), "refresh_token")
	require.NotNil(t, second)
	require.NotEqual(t, first.Value, second.Value)

	// Still only one live row after two logins.
	assert.Len(t, tokens.rows, 1)

	// The pre-rotation value is dead; the fresh one works.
	rec := doRefresh(t, h, first.Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRefresh(t, h, second.Value)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access"`)
}

func TestRefresh_DoesNotRotate(t *testing.T) {
	t.Parallel()
	h, users, tokens, _ := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	ck := findCookie(doLogin(t, h, "ada", "secret"), "refresh_token")
	require.NotNil(t, ck)
	replaceBefore := tokens.replaceCalls

	// The same cookie keeps working across several refreshes.
	for i := 0; i < 3; i++ {
		rec := doRefresh(t, h, ck.Value)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, findCookie(rec, "refresh_token"), "refresh must not reissue the cookie")
	}
	assert.Equal(t, replaceBefore, tokens.replaceCalls)
}

func TestRefresh_ExpiredTokenIsDeleted(t *testing.T) {
	t.Parallel()
	h, users, tokens, _ := newAuthFixture()
	uid := seedUser(t, users, "ada", "ada@example.com", "secret")

	raw := "stale-refresh-value"
	tokens.rows[uid] = model.RefreshToken{
		UserID:    uid,
		TokenHash: utils.HashRefreshRaw(raw),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	rec := doRefresh(t, h, raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, tokens.rows, "stale row is dropped on sight")

	ck := findCookie(rec, "refresh_token")
	require.NotNil(t, ck)
	assert.Equal(t, -1, ck.MaxAge)
}

func TestRefresh_MissingCookie(t *testing.T) {
	t.Parallel()
	h, _, _, _ := newAuthFixture()

	rec := doRefresh(t, h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_DeactivatedUserRejected(t *testing.T) {
	t.Parallel()
	h, users, _, _ := newAuthFixture()
	uid := seedUser(t, users, "ada", "ada@example.com", "secret")

	ck := findCookie(doLogin(t, h, "ada", "secret"), "refresh_token")
	require.NotNil(t, ck)

	u := users.users[uid]
	u.IsActive = false
	users.users[uid] = u

	rec := doRefresh(t, h, ck.Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ----- signout -----

func TestSignout_RevokesRefreshToken(t *testing.T) {
	t.Parallel()
	h, users, tokens, _ := newAuthFixture()
	uid := seedUser(t, users, "ada", "ada@example.com", "secret")

	ck := findCookie(doLogin(t, h, "ada", "secret"), "refresh_token")
	require.NotNil(t, ck)
	require.Len(t, tokens.rows, 1)

	access, _, err := utils.IssueToken(authTestSecret, strconv.FormatUint(uid, 10), utils.PurposeAccess, model.RoleUser, time.Hour)
	require.NoError(t, err)

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "")
	req.Header.Set("Authorization", "Bearer "+access)
	require.NoError(t, h.Signout(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, tokens.rows, uid)

	// The revoked value no longer refreshes.
	rec2 := doRefresh(t, h, ck.Value)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestSignout_AnonymousIsANoOp(t *testing.T) {
	t.Parallel()
	h, _, tokens, _ := newAuthFixture()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "")
	require.NoError(t, h.Signout(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, tokens.deleteForUserCalls)

	ck := findCookie(rec, "refresh_token")
	require.NotNil(t, ck, "cookie is cleared even without a bearer")
	assert.Equal(t, -1, ck.MaxAge)
}

// ----- password reset -----

func TestForgotPassword_SuccessShapedEitherWay(t *testing.T) {
	t.Parallel()
	h, users, _, notify := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	e := echo.New()
	ask := func(email string) *httptest.ResponseRecorder {
		req, rec := jsonRequest(http.MethodPost, `{"email":"`+email+`"}`)
		require.NoError(t, h.ForgotPassword(e.NewContext(req, rec)))
		return rec
	}

	known := ask("ada@example.com")
	unknown := ask("ghost@example.com")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String(),
		"response must not reveal whether the address exists")

	assert.Contains(t, notify.resets, "ada@example.com")
	assert.NotContains(t, notify.resets, "ghost@example.com")
}

func TestChangePassword_UpdatesHashAndRevokesSessions(t *testing.T) {
	t.Parallel()
	h, users, tokens, notify := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	// Establish a live session, then reset the password.
	require.Equal(t, http.StatusOK, doLogin(t, h, "ada", "secret").Code)
	require.Len(t, tokens.rows, 1)

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, `{"email":"ada@example.com"}`)
	require.NoError(t, h.ForgotPassword(e.NewContext(req, rec)))
	token := notify.resets["ada@example.com"]
	require.NotEmpty(t, token)

	req, rec = jsonRequest(http.MethodPost, `{"password":"brand-new"}`)
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues(token)
	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Open sessions do not outlive the reset.
	assert.Empty(t, tokens.rows)

	assert.Equal(t, http.StatusUnauthorized, doLogin(t, h, "ada", "secret").Code)
	assert.Equal(t, http.StatusOK, doLogin(t, h, "ada", "brand-new").Code)
}

func TestChangePassword_RejectsNonResetTokens(t *testing.T) {
	t.Parallel()
	h, users, _, _ := newAuthFixture()
	seedUser(t, users, "ada", "ada@example.com", "secret")

	e := echo.New()
	attempt := func(token string) *httptest.ResponseRecorder {
		req, rec := jsonRequest(http.MethodPost, `{"password":"brand-new"}`)
		c := e.NewContext(req, rec)
		c.SetParamNames("token")
		c.SetParamValues(token)
		require.NoError(t, h.ChangePassword(c))
		return rec
	}

	activation, _, err := utils.IssueToken(authTestSecret, "ada@example.com", utils.PurposeActivation, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, attempt(activation).Code)

	expired, _, err := utils.IssueToken(authTestSecret, "ada@example.com", utils.PurposeReset, "", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, attempt(expired).Code)

	// Password unchanged after both rejections.
	assert.Equal(t, http.StatusOK, doLogin(t, h, "ada", "secret").Code)
}
