package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository handles user database operations and implements the
// account store the core services depend on.
type UserRepository struct {
	db *sql.DB
}

var _ stores.AccountStore = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, username, password_hash, location, phone, tokens, stars,
	success_rate, complaints_count, is_banned, profile_image, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.Location, &user.Phone, &user.Tokens, &user.Stars,
		&user.SuccessRate, &user.ComplaintsCount, &user.IsBanned,
		&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, stores.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Create creates a new user with a bcrypt-hashed password.
func (r *UserRepository) Create(ctx context.Context, user *models.User, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, location, phone, tokens, stars,
			success_rate, complaints_count, is_banned, profile_image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.Location, user.Phone,
		user.Tokens, user.Stars, user.SuccessRate, user.ComplaintsCount, user.IsBanned,
		user.ProfileImage, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmailOrUsername retrieves a user by email or username, for login.
func (r *UserRepository) GetByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $1`, identifier))
}

// UsernameTaken reports whether another user already holds the username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
		username, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// Exists reports whether a user with the email or username already exists.
func (r *UserRepository) Exists(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		email, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ValidatePassword checks a plaintext password against the stored hash.
func (r *UserRepository) ValidatePassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// UpdateTokens sets the user's balance. Only the ledger and penalty
// queue call this, under their per-user locks.
func (r *UserRepository) UpdateTokens(ctx context.Context, id uuid.UUID, balance int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET tokens = $1, updated_at = NOW() WHERE id = $2`,
		balance, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return requireRow(res)
}

// UpdateReputation sets the user's derived stars and success rate.
func (r *UserRepository) UpdateReputation(ctx context.Context, id uuid.UUID, stars, successRate float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET stars = $1, success_rate = $2, updated_at = NOW() WHERE id = $3`,
		stars, successRate, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reputation: %w", err)
	}
	return requireRow(res)
}

// UpdateComplaintState sets the complaint count and ban flag.
func (r *UserRepository) UpdateComplaintState(ctx context.Context, id uuid.UUID, count int, banned bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET complaints_count = $1, is_banned = $2, updated_at = NOW() WHERE id = $3`,
		count, banned, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update complaint state: %w", err)
	}
	return requireRow(res)
}

// UpdateProfile updates the user's editable fields; password is changed
// only when non-empty.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username, location, phone, password string) error {
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		res, err := r.db.ExecContext(ctx,
			`UPDATE users SET username = $1, location = $2, phone = $3, password_hash = $4, updated_at = NOW() WHERE id = $5`,
			username, location, phone, string(hashed), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return requireRow(res)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = $1, location = $2, phone = $3, updated_at = NOW() WHERE id = $4`,
		username, location, phone, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireRow(res)
}

// Anonymize bans the account and scrubs its identity while keeping the
// row so historical transactions stay resolvable. Used for voluntary
// account deletion.
func (r *UserRepository) Anonymize(ctx context.Context, id uuid.UUID) error {
	short := id.String()[:8]
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_banned = TRUE,
			username = 'deleted_user_' || $2,
			email = 'deleted_' || $3 || '@deleted.com',
			updated_at = NOW()
		 WHERE id = $1`,
		id, short, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to anonymize user: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return stores.ErrNotFound
	}
	return nil
}
