// Package directory provides the read-only demo user directory. In a real
// deployment this would be replaced by the customer's identity provider; here
// it stands in for the set of externally authenticated viewers whose identity
// attributes drive row-level security.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

// Directory is an immutable username -> user lookup loaded once at startup.
type Directory struct {
	byUsername map[string]model.User
}

// Load reads the users file, seeding it with the demo users when it is
// missing or empty.
func Load(usersFile string) (*Directory, error) {
	if strings.TrimSpace(usersFile) == "" {
		return nil, fmt.Errorf("users file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(usersFile), 0o755); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(usersFile)
	if os.IsNotExist(err) || (err == nil && len(strings.TrimSpace(string(data))) == 0) {
		if err := seedDemoUsers(usersFile); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(usersFile)
	}
	if err != nil {
		return nil, err
	}

	var entries map[string]model.User
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", usersFile, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("users file %s contains no users", usersFile)
	}

	byUsername := make(map[string]model.User, len(entries))
	for username, user := range entries {
		byUsername[normalize(username)] = user
	}

	return &Directory{byUsername: byUsername}, nil
}

// Lookup resolves a username to its directory entry. Usernames are matched
// case-insensitively after trimming.
func (d *Directory) Lookup(username string) (model.User, bool) {
	user, ok := d.byUsername[normalize(username)]
	return user, ok
}

// Usernames returns every known username, for diagnostics.
func (d *Directory) Usernames() []string {
	names := make([]string, 0, len(d.byUsername))
	for name := range d.byUsername {
		names = append(names, name)
	}
	return names
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func seedDemoUsers(usersFile string) error {
	demo := map[string]model.User{
		"alice": {
			ID:         "user_alice",
			Name:       "Alice Johnson",
			Email:      "alice@example.com",
			Department: "Sales",
		},
		"bob": {
			ID:         "user_bob",
			Name:       "Bob Smith",
			Email:      "bob@example.com",
			Department: "Engineering",
		},
	}

	data, err := json.MarshalIndent(demo, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(usersFile, data, 0o600)
}
