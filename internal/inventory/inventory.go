package inventory

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockbook/internal/core"

	"github.com/mattn/go-sqlite3"
)

// Category groups items. Names are unique.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Item is a tracked inventory entry. CategoryName is joined in on reads and
// nil for uncategorized items.
type Item struct {
	ID           string
	Name         string
	SKU          string
	CategoryID   *string
	CategoryName *string
	Quantity     int64
	UnitPrice    float64
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository provides the item/category data access used by the UI layer.
type Repository struct {
	db     *sql.DB
	clock  core.Clock
	idgen  core.IDGenerator
	logger core.Logger
}

// NewRepository creates an inventory repository.
func NewRepository(db *sql.DB, clock core.Clock, idgen core.IDGenerator, logger core.Logger) *Repository {
	return &Repository{db: db, clock: clock, idgen: idgen, logger: logger}
}

// Category operations

func (r *Repository) ListCategories() ([]*Category, error) {
	rows, err := r.db.Query("SELECT id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return out, nil
}

// CreateCategory inserts a category. A name collision (case-sensitive,
// enforced by the unique index) reports core.ErrDuplicateName.
func (r *Repository) CreateCategory(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name must not be empty")
	}

	c := &Category{ID: r.idgen.New(), Name: name, CreatedAt: r.clock.Now()}
	_, err := r.db.Exec(
		"INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)",
		c.ID, c.Name, c.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	r.logger.Debug("category created", "name", name)
	return c, nil
}

// DeleteCategory removes a category. Items keep existing; their category
// link is cleared by the schema's ON DELETE SET NULL.
func (r *Repository) DeleteCategory(id string) error {
	res, err := r.db.Exec("DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}
	return nil
}

// Item operations

const itemColumns = `i.id, i.name, i.sku, i.category_id, c.name, i.quantity, i.unit_price, i.notes, i.created_at, i.updated_at`

func (r *Repository) ListItems() ([]*Item, error) {
	rows, err := r.db.Query(
		"SELECT " + itemColumns + " FROM items i LEFT JOIN categories c ON c.id = i.category_id ORDER BY i.name",
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return out, nil
}

func (r *Repository) GetItem(id string) (*Item, error) {
	row := r.db.QueryRow(
		"SELECT "+itemColumns+" FROM items i LEFT JOIN categories c ON c.id = i.category_id WHERE i.id = ?",
		id,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItem inserts a new item and returns it with the joined category name.
func (r *Repository) CreateItem(name, sku string, categoryID *string, quantity int64, unitPrice float64, notes string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("item name must not be empty")
	}

	now := r.clock.Now()
	id := r.idgen.New()
	_, err := r.db.Exec(
		`INSERT INTO items (id, name, sku, category_id, quantity, unit_price, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, sku, categoryID, quantity, unitPrice, notes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	r.logger.Debug("item created", "name", name)
	return r.GetItem(id)
}

// UpdateItem applies the patch to the item. An empty patch is a no-op that
// still verifies the item exists.
func (r *Repository) UpdateItem(id string, patch ItemPatch) (*Item, error) {
	assignments := patch.Assignments()
	if len(assignments) == 0 {
		return r.GetItem(id)
	}

	set := make([]string, 0, len(assignments)+1)
	args := make([]any, 0, len(assignments)+2)
	for _, a := range assignments {
		set = append(set, a.Column+" = ?")
		args = append(args, a.Value)
	}
	set = append(set, "updated_at = ?")
	args = append(args, r.clock.Now(), id)

	res, err := r.db.Exec("UPDATE items SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: item %s", core.ErrNotFound, id)
	}

	return r.GetItem(id)
}

func (r *Repository) DeleteItem(id string) error {
	res, err := r.db.Exec("DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: item %s", core.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item         Item
		categoryID   sql.NullString
		categoryName sql.NullString
	)
	err := row.Scan(&item.ID, &item.Name, &item.SKU, &categoryID, &categoryName,
		&item.Quantity, &item.UnitPrice, &item.Notes, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	if categoryID.Valid {
		item.CategoryID = &categoryID.String
	}
	if categoryName.Valid {
		item.CategoryName = &categoryName.String
	}
	return &item, nil
}
