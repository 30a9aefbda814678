package model

type LoginRequest struct {
	Username string `json:"username"`
}
