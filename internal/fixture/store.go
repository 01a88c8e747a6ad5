package fixture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const maxCityNameLength = 100

// Fixture accounts are throwaway; the minimum cost keeps basic auth on every
// request fast.
const passwordCost = bcrypt.MinCost

var validate = validator.New()

var (
	ErrCityNotFound       = errors.New("city not found")
	ErrInvalidCity        = errors.New("invalid city")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Store struct {
	db *sql.DB
}

type User struct {
	Login string
	Role  string
}

type City struct {
	ID       int64
	Name     string
	PhotoURL string
}

type ListCitiesInput struct {
	Name  string
	Page  int
	Limit int
}

type CityPage struct {
	Cities []City
	Total  int
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			login TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE TABLE IF NOT EXISTS cities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			photo_url TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cities_name ON cities(name);`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, login, password, role string) error {
	login = strings.TrimSpace(login)
	role = strings.TrimSpace(role)
	if login == "" || password == "" || role == "" {
		return errors.New("login, password and role are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES (?, ?, ?)
		 ON CONFLICT(login) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role`,
		login, string(hash), role,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Authenticate returns ErrInvalidCredentials for unknown logins and wrong
// passwords alike.
func (s *Store) Authenticate(ctx context.Context, login, password string) (User, error) {
	var user User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT login, password_hash, role FROM users WHERE login = ?`,
		strings.TrimSpace(login),
	).Scan(&user.Login, &hash, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Store) CreateCity(ctx context.Context, name, photoURL string) (City, error) {
	city := City{Name: strings.TrimSpace(name), PhotoURL: strings.TrimSpace(photoURL)}
	if err := validateCity(city); err != nil {
		return City{}, err
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO cities (name, photo_url) VALUES (?, ?)`, city.Name, city.PhotoURL)
	if err != nil {
		return City{}, fmt.Errorf("insert city: %w", err)
	}
	city.ID, err = result.LastInsertId()
	if err != nil {
		return City{}, fmt.Errorf("read city id: %w", err)
	}
	return city, nil
}

// ListCities pages through cities whose name contains input.Name, ignoring
// case, in id order.
func (s *Store) ListCities(ctx context.Context, input ListCitiesInput) (CityPage, error) {
	if input.Page < 0 || input.Limit < 1 {
		return CityPage{}, fmt.Errorf("invalid page %d or limit %d", input.Page, input.Limit)
	}
	filter := strings.TrimSpace(input.Name)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cities WHERE instr(lower(name), lower(?)) > 0`,
		filter,
	).Scan(&total); err != nil {
		return CityPage{}, fmt.Errorf("count cities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, photo_url FROM cities
		 WHERE instr(lower(name), lower(?)) > 0
		 ORDER BY id
		 LIMIT ? OFFSET ?`,
		filter, input.Limit, input.Page*input.Limit,
	)
	if err != nil {
		return CityPage{}, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	page := CityPage{Cities: []City{}, Total: total}
	for rows.Next() {
		var city City
		if err := rows.Scan(&city.ID, &city.Name, &city.PhotoURL); err != nil {
			return CityPage{}, fmt.Errorf("scan city: %w", err)
		}
		page.Cities = append(page.Cities, city)
	}
	if err := rows.Err(); err != nil {
		return CityPage{}, fmt.Errorf("iterate cities: %w", err)
	}
	return page, nil
}

func (s *Store) UpdateCity(ctx context.Context, city City) (City, error) {
	city.Name = strings.TrimSpace(city.Name)
	city.PhotoURL = strings.TrimSpace(city.PhotoURL)
	if err := validateCity(city); err != nil {
		return City{}, err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE cities SET name = ?, photo_url = ?, updated_at = datetime('now') WHERE id = ?`,
		city.Name, city.PhotoURL, city.ID,
	)
	if err != nil {
		return City{}, fmt.Errorf("update city: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return City{}, fmt.Errorf("update city rows: %w", err)
	}
	if affected == 0 {
		return City{}, ErrCityNotFound
	}
	return city, nil
}

type cityFields struct {
	Name     string `validate:"required,max=100"`
	PhotoURL string `validate:"required,http_url"`
}

func validateCity(city City) error {
	err := validate.Struct(cityFields{Name: city.Name, PhotoURL: city.PhotoURL})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate city: %w", err)
	}
	switch first := fieldErrs[0]; {
	case first.Field() == "Name" && first.Tag() == "required":
		return fmt.Errorf("%w: name must not be blank", ErrInvalidCity)
	case first.Field() == "Name":
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidCity, maxCityNameLength)
	default:
		return fmt.Errorf("%w: url must be an absolute http(s) url", ErrInvalidCity)
	}
}
