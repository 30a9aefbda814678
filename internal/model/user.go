package model

// User is one entry of the demo user directory. The department is the
// attribute forwarded to Databricks as external_value to drive row-level
// security filtering.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}
