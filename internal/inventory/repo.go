package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ErrInsufficientStock is returned by Debit when the guarded update matched
// no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository performs locked reads and guarded stock writes on products.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LockProduct reads one product row FOR UPDATE.
func (r *Repository) LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockProducts reads the given rows FOR UPDATE in ascending id order so that
// concurrent callers always lock in the same sequence. Missing ids are absent
// from the result.
func (r *Repository) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sorted := uniqueSorted(ids)
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Debit removes qty units. The update only matches while enough stock
// remains, so two writers can never push the value below zero. Reaching zero
// flips the product to inactive in the same statement.
func (r *Repository) Debit(ctx context.Context, productID uuid.UUID, qty int) (StockChange, error) {
	if qty <= 0 {
		return StockChange{}, errors.New("debit quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products
		SET stock_quantity = stock_quantity - ?,
			status = CASE WHEN stock_quantity - ? <= 0 THEN ? ELSE status END,
			updated_at = ?
		WHERE id = ? AND stock_quantity >= ?`,
		qty, qty, string(enums.ProductStatusInactive), time.Now().UTC(), productID, qty,
	)
	if res.Error != nil {
		return StockChange{}, res.Error
	}
	if res.RowsAffected == 0 {
		return StockChange{}, ErrInsufficientStock
	}
	after, err := r.reload(ctx, productID)
	if err != nil {
		return StockChange{}, err
	}
	return StockChange{
		ProductID: after.ID,
		Name:      after.Name,
		CreatorID: after.CreatedBy,
		Before:    after.StockQuantity + qty,
		After:     after.StockQuantity,
	}, nil
}

// Credit adds qty units back. found is false when the product no longer
// exists, which callers treat as a skip.
func (r *Repository) Credit(ctx context.Context, productID uuid.UUID, qty int) (change StockChange, found bool, err error) {
	if qty <= 0 {
		return StockChange{}, false, errors.New("credit quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(
		`UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?`,
		qty, time.Now().UTC(), productID,
	)
	if res.Error != nil {
		return StockChange{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return StockChange{}, false, nil
	}
	after, err := r.reload(ctx, productID)
	if err != nil {
		return StockChange{}, false, err
	}
	return StockChange{
		ProductID: after.ID,
		Name:      after.Name,
		CreatorID: after.CreatedBy,
		Before:    after.StockQuantity - qty,
		After:     after.StockQuantity,
	}, true, nil
}

// Line is a quantity of one product, as held by an order line.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreditLines restores every line in ascending product id order, the same
// order LockProducts takes row locks in. Lines for the same product are
// merged and missing products are skipped. restored counts units actually
// put back.
func (r *Repository) CreditLines(ctx context.Context, lines []Line) (changes []StockChange, restored int, err error) {
	for _, line := range mergeLines(lines) {
		change, found, err := r.Credit(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			continue
		}
		changes = append(changes, change)
		restored += line.Quantity
	}
	return changes, restored, nil
}

func mergeLines(lines []Line) []Line {
	byProduct := make(map[uuid.UUID]int, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		byProduct[line.ProductID] += line.Quantity
		ids = append(ids, line.ProductID)
	}
	out := make([]Line, 0, len(byProduct))
	for _, id := range uniqueSorted(ids) {
		out = append(out, Line{ProductID: id, Quantity: byProduct[id]})
	}
	return out
}

func (r *Repository) reload(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
