package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// ItemRepository handles item database operations.
type ItemRepository struct {
	db *sql.DB
}

var _ stores.ItemStore = (*ItemRepository)(nil)

// NewItemRepository creates a new item repository.
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, title, description, category, value, token_per_day, owner_id,
	images, availability_start, availability_end, is_available, created_at`

// Create inserts a new item.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, title, description, category, value, token_per_day, owner_id,
			images, availability_start, availability_end, is_available, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.Title, item.Description, item.Category, item.Value, item.TokenPerDay,
		item.OwnerID, pq.Array(item.Images), item.AvailabilityStart, item.AvailabilityEnd,
		item.IsAvailable, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetItem retrieves an item by ID.
func (r *ItemRepository) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id,
	).Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.Value,
		&item.TokenPerDay, &item.OwnerID, pq.Array(&item.Images),
		&item.AvailabilityStart, &item.AvailabilityEnd, &item.IsAvailable, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, stores.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListFilter narrows the item listing.
type ListFilter struct {
	Category string
	Search   string
	Location string
}

// List returns available items matching the filter. Location filters on
// the owner's declared location, search on title and description.
func (r *ItemRepository) List(ctx context.Context, filter ListFilter) ([]models.Item, error) {
	query := `SELECT i.id, i.title, i.description, i.category, i.value, i.token_per_day,
		i.owner_id, i.images, i.availability_start, i.availability_end, i.is_available, i.created_at
		FROM items i JOIN users u ON u.id = i.owner_id
		WHERE i.is_available = TRUE`
	var args []interface{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND i.category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(i.title) LIKE $%d OR LOWER(i.description) LIKE $%d)", len(args), len(args))
	}
	if filter.Location != "" {
		args = append(args, "%"+strings.ToLower(filter.Location)+"%")
		query += fmt.Sprintf(" AND LOWER(u.location) LIKE $%d", len(args))
	}
	query += " ORDER BY i.created_at DESC"

	return r.queryItems(ctx, query, args...)
}

// ListByOwner returns all items listed by the user.
func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	return r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.Value,
			&item.TokenPerDay, &item.OwnerID, pq.Array(&item.Images),
			&item.AvailabilityStart, &item.AvailabilityEnd, &item.IsAvailable, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update replaces the item's editable fields.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET title = $1, description = $2, category = $3, value = $4,
			token_per_day = $5, availability_start = $6, availability_end = $7
		 WHERE id = $8`,
		item.Title, item.Description, item.Category, item.Value, item.TokenPerDay,
		item.AvailabilityStart, item.AvailabilityEnd, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireRow(res)
}

// SetAvailability flips the availability flag.
func (r *ItemRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET is_available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("failed to set availability: %w", err)
	}
	return requireRow(res)
}

// Delete removes the item.
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireRow(res)
}

// DeleteByOwner removes all items of a user, for account deletion.
func (r *ItemRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	return nil
}
