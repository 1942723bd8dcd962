package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturas-api/internal/application/auth"
	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	apphttp "github.com/jhoicas/Facturas-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Facturas-api/pkg/jwt"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func buildAuthApp() *fiber.App {
	uc := auth.NewAuthUseCase(&memUserRepo{users: map[string]*entity.User{}}, auth.JWTConfig{
		Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
	})
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{AuthUC: uc, InvoiceUC: &stubService{}, PDFUC: &stubService{}, JWTSecret: testJWTSecret})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, path, body)
	return resp
}

func TestRegisterYLogin(t *testing.T) {
	app := buildAuthApp()

	resp := postJSON(t, app, "/api/auth/register", dto.RegisterRequest{
		Email: "Ana@Example.com", Password: "secreto123", FullName: "Ana Gómez", CompanyName: "Estudio AG",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user dto.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "ana@example.com", user.Email, "el email se normaliza")
	assert.Equal(t, "Estudio AG", user.CompanyName)

	login := postJSON(t, app, "/api/auth/login", dto.LoginRequest{Email: "ana@example.com", Password: "secreto123"})
	defer login.Body.Close()
	require.Equal(t, http.StatusOK, login.StatusCode)

	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(login.Body).Decode(&out))
	userID, email, err := pkgjwt.Parse(testJWTSecret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, "ana@example.com", email)
}

func TestRegister_EmailDuplicado(t *testing.T) {
	app := buildAuthApp()
	in := dto.RegisterRequest{Email: "ana@example.com", Password: "secreto123", FullName: "Ana"}

	first := postJSON(t, app, "/api/auth/register", in)
	first.Body.Close()
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second := postJSON(t, app, "/api/auth/register", in)
	defer second.Body.Close()
	assert.Equal(t, http.StatusConflict, second.StatusCode)
	assert.Equal(t, "EMAIL_EXISTS", decodeError(t, second).Code)
}

func TestRegister_PasswordCorto(t *testing.T) {
	resp := postJSON(t, buildAuthApp(), "/api/auth/register", dto.RegisterRequest{Email: "a@b.co", Password: "123", FullName: "A"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	app := buildAuthApp()
	reg := postJSON(t, app, "/api/auth/register", dto.RegisterRequest{Email: "ana@example.com", Password: "secreto123", FullName: "Ana"})
	reg.Body.Close()

	for _, in := range []dto.LoginRequest{
		{Email: "ana@example.com", Password: "incorrecto"},
		{Email: "nadie@example.com", Password: "secreto123"},
	} {
		resp := postJSON(t, app, "/api/auth/login", in)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Code)
		resp.Body.Close()
	}
}
