package dto

import (
	"bytes"
	"encoding/json"

	"github.com/spec-kit/storefront/internal/domain"
)

// NullableString distinguishes an absent field from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the key is present.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// UpdateProfileRequest payload for PATCH /user/profile.
type UpdateProfileRequest struct {
	Name            *string        `json:"name"`
	ProfileImageURL NullableString `json:"profileImageUrl"`
}

// ProfileResponse wraps the current profile.
type ProfileResponse struct {
	User *domain.User `json:"user"`
}

// ProfileMutationResponse is returned after a profile change.
type ProfileMutationResponse struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}
