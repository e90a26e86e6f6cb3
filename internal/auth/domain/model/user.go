package model

import (
	backendmodel "restate/internal/backend/model"
)

// User is the signed-in account plus the avatar URL derived from its name.
type User struct {
	backendmodel.Account
	Avatar string `json:"avatar"`
}

// NewUser builds a User from an account and an avatar URL.
func NewUser(account backendmodel.Account, avatar string) *User {
	return &User{Account: account, Avatar: avatar}
}
