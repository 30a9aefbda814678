package model

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

type LoginResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

// EmbedConfig is what the frontend feeds to the Databricks embedding SDK:
// dashboard coordinates, a scoped token, and the user context the token was
// minted for.
type EmbedConfig struct {
	WorkspaceURL   string `json:"workspace_url"`
	WorkspaceID    string `json:"workspace_id"`
	DashboardID    string `json:"dashboard_id"`
	WarehouseID    string `json:"warehouse_id"`
	EmbedToken     string `json:"embed_token"`
	TokenExpiresIn int64  `json:"token_expires_in"`
	UserContext    User   `json:"user_context"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
