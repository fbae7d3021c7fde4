package application

import (
	"time"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
)

// UserSummary is the public part of a user shared by every view.
// Credential material has no field here, so it can never be serialized.
type UserSummary struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   string  `json:"role"`
	Avatar *string `json:"avatar"`
}

// SessionUser is returned alongside tokens on register and login.
type SessionUser struct {
	UserSummary
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// UserProfile is the full self view returned by /auth/me and profile edits.
type UserProfile struct {
	UserSummary
	Addresses     []AddressView `json:"addresses"`
	EmailVerified bool          `json:"emailVerified"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastLogin     *time.Time    `json:"lastLogin"`
}

type AddressView struct {
	ID        string `json:"id"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"isDefault"`
}

func NewUserSummary(u *entity.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role.String(), Avatar: u.Avatar}
}

func NewSessionUser(u *entity.User) SessionUser {
	return SessionUser{UserSummary: NewUserSummary(u), LastLogin: u.LastLoginAt}
}

func NewUserProfile(u *entity.User) UserProfile {
	return UserProfile{
		UserSummary:   NewUserSummary(u),
		Addresses:     NewAddressViews(u.Addresses),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLoginAt,
	}
}

func NewAddressViews(in []entity.Address) []AddressView {
	out := make([]AddressView, 0, len(in))
	for _, a := range in {
		out = append(out, AddressView{
			ID: a.ID, Street: a.Street, City: a.City, State: a.State,
			ZipCode: a.ZipCode, Country: a.Country, IsDefault: a.IsDefault,
		})
	}
	return out
}
