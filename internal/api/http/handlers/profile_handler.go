package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/service"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

// ImageFormField is the multipart field carrying the uploaded image.
const ImageFormField = "file"

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get handles GET /user/profile.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	user, err := h.profiles.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileResponse{User: user})
}

// Update handles PATCH /user/profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.profiles.Update(c.UserContext(), claims.UserID, service.UpdateProfileInput{
		Name:            req.Name,
		SetProfileImage: req.ProfileImageURL.Set,
		ProfileImageURL: req.ProfileImageURL.Value,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileMutationResponse{Success: true, User: user})
}

// UploadImage handles POST /user/profile/image.
func (h *ProfileHandler) UploadImage(c *fiber.Ctx) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	header, err := c.FormFile(ImageFormField)
	if err != nil {
		return apperrors.NewValidationError("No file provided", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	user, err := h.profiles.ReplaceImage(c.UserContext(), claims.UserID, file)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileMutationResponse{Success: true, User: user})
}

// RemoveImage handles DELETE /user/profile/image.
func (h *ProfileHandler) RemoveImage(c *fiber.Ctx) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	user, err := h.profiles.RemoveImage(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileMutationResponse{Success: true, User: user})
}

func currentClaims(c *fiber.Ctx) (*auth.Claims, error) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("Unauthorized")
	}
	return claims, nil
}
