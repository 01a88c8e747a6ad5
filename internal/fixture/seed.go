package fixture

import (
	"context"
	"fmt"
	"strings"
)

// SeedUser is a fixture account. Passwords are stored hashed.
type SeedUser struct {
	Login    string
	Password string
	Role     string
}

const (
	RoleAllowEdit = "ROLE_ALLOW_EDIT"
	RoleUser      = "ROLE_USER"
)

var DefaultUsers = []SeedUser{
	{Login: "admin", Password: "admin", Role: RoleAllowEdit},
	{Login: "user", Password: "user", Role: RoleUser},
}

var defaultCityNames = []string{
	"Tokyo", "Jakarta", "Delhi", "Manila", "Shanghai", "Sao Paulo", "Seoul",
	"Mumbai", "Guangzhou", "Mexico City", "Beijing", "Cairo", "New York",
	"Dhaka", "Moscow", "Bangkok", "Buenos Aires", "Shenzhen", "Lagos",
	"Istanbul", "Paris", "Parma", "Osaka", "Karachi", "London", "Lima",
}

// Seed inserts the default users and cities into an empty database. It is a
// no-op for tables that already hold rows.
func (s *Store) Seed(ctx context.Context) error {
	var users int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users == 0 {
		for _, user := range DefaultUsers {
			if err := s.CreateUser(ctx, user.Login, user.Password, user.Role); err != nil {
				return err
			}
		}
	}

	var cities int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cities`).Scan(&cities); err != nil {
		return fmt.Errorf("count cities: %w", err)
	}
	if cities > 0 {
		return nil
	}
	for _, name := range defaultCityNames {
		if _, err := s.CreateCity(ctx, name, photoURLFor(name)); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return nil
}

func photoURLFor(name string) string {
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	return "https://images.example.com/cities/" + slug + ".jpg"
}
