package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/abhinaya/internal/config"
)

// Profile is a named set of tracking tunables.
type Profile struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Tracking  config.Tracking `json:"tracking"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, tracking, created_at, updated_at`

// Create inserts p. An empty ID is filled with a new UUID.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	data, err := json.Marshal(p.Tracking)
	if err != nil {
		return fmt.Errorf("encode tracking: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(data), p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile %q: %w", p.Name, ErrDuplicate)
	}
	return err
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
}

// GetByName retrieves a profile by name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name,
	))
}

// List returns all profiles, oldest first.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// Update replaces the name and tunables of an existing profile.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	data, err := json.Marshal(p.Tracking)
	if err != nil {
		return fmt.Errorf("encode tracking: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, tracking = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(data), p.UpdatedAt, p.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile %q: %w", p.Name, ErrDuplicate)
	}
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// Delete removes a profile by ID.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var data string

	err := row.Scan(&p.ID, &p.Name, &data, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Start from defaults so fields added later keep sane values.
	p.Tracking = config.DefaultTracking()
	if err := json.Unmarshal([]byte(data), &p.Tracking); err != nil {
		return nil, fmt.Errorf("decode tracking for profile %s: %w", p.ID, err)
	}
	return p, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
