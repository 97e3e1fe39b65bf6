package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
)

var errNotFound = errors.New("not found")

// ErrNotFound reports whether err is this repository's not-found error.
func ErrNotFound(err error) bool { return errors.Is(err, errNotFound) }

// UserRepository stores users in Postgres. The nested rider sub-objects
// (bike profile, emergency contact, address, preferences, profile) live in
// jsonb columns; the advisory statistics counters are plain columns so
// they can be incremented without a read-modify-write.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, name, email, password_hash, phone, role,
	bike_profile, emergency_contact, address, preferences, profile,
	events_participated, events_won, total_miles_ridden,
	is_active, email_verified, last_login, created_at, updated_at`

func (r *UserRepository) Create(u *entity.User) error {
	ctx := context.Background()
	bike, contact, addr, prefs, prof, err := marshalSubdocs(u)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, role,
			bike_profile, emergency_contact, address, preferences, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, is_active, created_at, updated_at
	`, u.Name, u.Email, u.Password, u.Phone, u.Role, bike, contact, addr, prefs, prof)

	return row.Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(id string) (*entity.User, error) {
	return r.getBy(`id = $1`, id)
}

func (r *UserRepository) GetByEmail(email string) (*entity.User, error) {
	return r.getBy(`lower(email) = lower($1)`, email)
}

func (r *UserRepository) getBy(where string, arg any) (*entity.User, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var bike, contact, addr, prefs, prof []byte
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Phone, &u.Role,
		&bike, &contact, &addr, &prefs, &prof,
		&u.Statistics.EventsParticipated, &u.Statistics.EventsWon, &u.Statistics.TotalMilesRidden,
		&u.IsActive, &u.EmailVerified, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, err
	}
	if err := unmarshalInto(bike, &u.BikeProfile); err != nil {
		return nil, err
	}
	if err := unmarshalInto(contact, &u.EmergencyContact); err != nil {
		return nil, err
	}
	if err := unmarshalInto(addr, &u.Address); err != nil {
		return nil, err
	}
	if err := unmarshalInto(prefs, &u.Preferences); err != nil {
		return nil, err
	}
	if err := unmarshalInto(prof, &u.Profile); err != nil {
		return nil, err
	}
	return u, nil
}

func unmarshalInto(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func (r *UserRepository) Update(u *entity.User) error {
	ctx := context.Background()
	u.UpdatedAt = time.Now()
	bike, contact, addr, prefs, prof, err := marshalSubdocs(u)
	if err != nil {
		return err
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, phone = $2, role = $3,
			bike_profile = $4, emergency_contact = $5, address = $6,
			preferences = $7, profile = $8, is_active = $9, updated_at = $10
		WHERE id = $11
	`, u.Name, u.Phone, u.Role, bike, contact, addr, prefs, prof, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(id, hash string) error {
	return r.exec(`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
}

func (r *UserRepository) TouchLastLogin(id string) error {
	return r.exec(`UPDATE users SET last_login = now() WHERE id = $1`, id)
}

func (r *UserRepository) SetVerified(id string) error {
	return r.exec(`UPDATE users SET email_verified = true, updated_at = now() WHERE id = $1`, id)
}

func (r *UserRepository) IsVerified(id string) (bool, error) {
	ctx := context.Background()
	var verified bool
	err := r.pool.QueryRow(ctx, `SELECT email_verified FROM users WHERE id = $1`, id).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, errNotFound
	}
	return verified, err
}

func (r *UserRepository) IncrementEventsParticipated(id string) error {
	return r.exec(`UPDATE users SET events_participated = events_participated + 1 WHERE id = $1`, id)
}

func (r *UserRepository) exec(sql string, args ...any) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func marshalSubdocs(u *entity.User) (bike, contact, addr, prefs, prof []byte, err error) {
	if bike, err = json.Marshal(u.BikeProfile); err != nil {
		return
	}
	if contact, err = json.Marshal(u.EmergencyContact); err != nil {
		return
	}
	if addr, err = json.Marshal(u.Address); err != nil {
		return
	}
	if prefs, err = json.Marshal(u.Preferences); err != nil {
		return
	}
	prof, err = json.Marshal(u.Profile)
	return
}

var _ repository.UserRepository = (*UserRepository)(nil)
