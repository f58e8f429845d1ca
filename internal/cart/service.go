package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MsgExceedsStock is shown when a line would hold more units than exist.
const MsgExceedsStock = "Requested quantity exceeds available stock."

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations for the acting customer.
type Service interface {
	GetOrCreateCart(ctx context.Context, actor auth.Actor) (*models.Cart, error)
	AddItem(ctx context.Context, actor auth.Actor, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, actor auth.Actor, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo  CartRepository
	stock *inventory.Repository
	tx    txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, stock *inventory.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:  repo,
		stock: stock,
		tx:    tx,
	}, nil
}

// GetOrCreateCart lazily creates the actor's cart. Two concurrent first calls
// race on the unique user index; the loser re-reads the winner's row.
func (s *service) GetOrCreateCart(ctx context.Context, actor auth.Actor) (*models.Cart, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if _, err := s.ensureCart(ctx, actor.UserID); err != nil {
		return nil, err
	}
	return s.load(ctx, s.repo, actor.UserID)
}

// AddItem adds quantity to the product's line, creating it when absent. The
// product row is locked so the stock check holds until commit. Each add
// re-snapshots the current price.
func (s *service) AddItem(ctx context.Context, actor auth.Actor, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	cart, err := s.ensureCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	var out *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := s.stock.WithTx(tx).LockProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}

		existing, err := repo.FindItemByProduct(ctx, cart.ID, product.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		newQuantity := quantity
		if existing != nil {
			newQuantity += existing.Quantity
		}
		if newQuantity > product.StockQuantity {
			return exceedsStock(product, newQuantity)
		}

		if existing != nil {
			existing.Quantity = newQuantity
			existing.UnitPrice = product.Price
			if err := repo.UpdateItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		} else {
			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  newQuantity,
				UnitPrice: product.Price,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
			}
		}

		out, err = s.load(ctx, repo, actor.UserID)
		return err
	})
	if err != nil {
		return nil, asServiceError(err, "add cart item")
	}
	return out, nil
}

// UpdateItemQuantity replaces a line's quantity. Zero or less removes the
// line. The price snapshot is left alone.
func (s *service) UpdateItemQuantity(ctx context.Context, actor auth.Actor, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	cart, err := s.ensureCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	var out *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItemByID(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if quantity < 1 {
			if _, err := repo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
			}
		} else {
			product, err := s.stock.WithTx(tx).LockProduct(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found.")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
			}
			if quantity > product.StockQuantity {
				return exceedsStock(product, quantity)
			}
			item.Quantity = quantity
			if err := repo.UpdateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		}

		out, err = s.load(ctx, repo, actor.UserID)
		return err
	})
	if err != nil {
		return nil, asServiceError(err, "update cart item")
	}
	return out, nil
}

// RemoveItem deletes the line if it is in the actor's cart. A missing or
// foreign line is a no-op.
func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, itemID uuid.UUID) (*models.Cart, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	cart, err := s.ensureCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	var out *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		out, err = s.load(ctx, repo, actor.UserID)
		return err
	})
	if err != nil {
		return nil, asServiceError(err, "remove cart item")
	}
	return out, nil
}

func (s *service) ensureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if err := s.repo.Create(ctx, cart); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		cart, err = s.repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
		}
	}
	return cart, nil
}

func (s *service) load(ctx context.Context, repo CartRepository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserWithItems(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func requireUser(actor auth.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func exceedsStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, MsgExceedsStock).WithDetails(map[string]any{
		"product_id": product.ID.String(),
		"requested":  requested,
		"available":  product.StockQuantity,
	})
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
