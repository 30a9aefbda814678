package model

// TokenResult is a freshly minted scoped Databricks token. It is returned to
// the caller as-is and never cached or persisted; every embed-config request
// mints a new one.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	CreatedAt   int64  `json:"created_at"`
}
