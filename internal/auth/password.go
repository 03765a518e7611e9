package auth

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password registration accepts.
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// PasswordHasher hashes and compares passwords with a fixed bcrypt cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher clamps cost into bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted bcrypt hash.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Compare reports whether password matches hashed.
func (h *PasswordHasher) Compare(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// PolicyViolation names one failed password rule.
type PolicyViolation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidatePasswordStrength returns every rule password fails, or nil.
func ValidatePasswordStrength(password string) []PolicyViolation {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r), unicode.IsSpace(r):
		default:
			special = true
		}
	}

	var violations []PolicyViolation
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations = append(violations, PolicyViolation{Rule: "min_length", Message: "Password must be at least 8 characters long"})
	}
	if len(password) > MaxPasswordBytes {
		violations = append(violations, PolicyViolation{Rule: "max_length", Message: "Password must be at most 72 bytes long"})
	}
	if !upper {
		violations = append(violations, PolicyViolation{Rule: "uppercase", Message: "Password must contain at least one uppercase letter"})
	}
	if !lower {
		violations = append(violations, PolicyViolation{Rule: "lowercase", Message: "Password must contain at least one lowercase letter"})
	}
	if !digit {
		violations = append(violations, PolicyViolation{Rule: "digit", Message: "Password must contain at least one number"})
	}
	if !special {
		violations = append(violations, PolicyViolation{Rule: "special", Message: "Password must contain at least one special character"})
	}
	return violations
}
