package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/service"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

// AuthHandler exposes login, registration, verification and logout.
type AuthHandler struct {
	auth   *service.AuthService
	cookie auth.SessionCookie
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie auth.SessionCookie) *AuthHandler {
	return &AuthHandler{auth: authService, cookie: cookie}
}

// Register handles POST /auth/register. Role ADMIN is rejected with 400
// unless AUTH_ALLOW_ADMIN_SIGNUP is enabled; admins are otherwise seeded
// from ADMIN_EMAIL at startup.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Mobile:   req.Mobile,
	})
	if err != nil {
		return err
	}

	h.cookie.Set(c, res.Token, res.ExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(authResponse(res))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		RemoteIP: c.IP(),
	})
	if err != nil {
		return err
	}

	h.cookie.Set(c, res.Token, res.ExpiresAt)
	return c.JSON(authResponse(res))
}

// Verify handles GET /auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewUnauthorized("No token provided")
	}

	user, err := h.auth.Verify(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(dto.VerifyResponse{User: user, Valid: true})
}

// Logout handles POST /auth/logout. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext()); err != nil {
		return err
	}
	h.cookie.Clear(c)
	return c.JSON(dto.MessageResponse{Success: true, Message: "Logged out successfully"})
}

func authResponse(res *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt}
}
