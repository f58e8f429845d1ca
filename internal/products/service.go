package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxNameLength = 255

// Service exposes catalog reads and admin product management.
type Service interface {
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListActive(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	ListAll(ctx context.Context, actor auth.Actor) ([]ProductDTO, error)
	Create(ctx context.Context, actor auth.Actor, input ProductInput) (*ProductDTO, error)
	Update(ctx context.Context, actor auth.Actor, productID uuid.UUID, input ProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, actor auth.Actor, productID uuid.UUID) error
}

// ProductInput is the full editable field set. Update replaces every field.
type ProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	Status        enums.ProductStatus
	ImagePath     *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockAlerter interface {
	LowStock(ctx context.Context, changes []inventory.StockChange)
}

type service struct {
	repo      *Repository
	inventory *inventory.Repository
	tx        txRunner
	alerts    stockAlerter
	policy    inventory.Policy
}

// NewService constructs a product service instance.
func NewService(repo *Repository, stock *inventory.Repository, tx txRunner, alerts stockAlerter, policy inventory.Policy) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product repository required")
	}
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if alerts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stock alerter required")
	}
	return &service{repo: repo, inventory: stock, tx: tx, alerts: alerts, policy: policy}, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product, s.policy), nil
}

func (s *service) ListActive(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	input = input.normalized()
	rows, total, err := s.repo.ListActive(ctx, input.Query, input.PerPage, input.offset())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductListResult{
		Products: s.toDTOs(rows),
		Total:    total,
		Page:     input.Page,
		PerPage:  input.PerPage,
	}, nil
}

func (s *service) ListAll(ctx context.Context, actor auth.Actor) ([]ProductDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return s.toDTOs(rows), nil
}

// Create lists a new product owned by the acting admin. Creation never fires
// a low stock alert; only later stock edits do.
func (s *service) Create(ctx context.Context, actor auth.Actor, input ProductInput) (*ProductDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	input, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	creator := actor.UserID
	product := &models.Product{CreatedBy: &creator}
	applyInput(product, input)
	inventory.ApplyStockInvariant(product)

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(product, s.policy), nil
}

// Update replaces the product fields under a row lock and reports the stock
// transition to the alerter once the write is committed.
func (s *service) Update(ctx context.Context, actor auth.Actor, productID uuid.UUID, input ProductInput) (*ProductDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	input, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	var (
		updated *models.Product
		change  inventory.StockChange
	)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.inventory.WithTx(tx).LockProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found.")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}

		before := product.StockQuantity
		applyInput(product, input)
		inventory.ApplyStockInvariant(product)

		if err := s.repo.WithTx(tx).Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		change = inventory.StockChange{
			ProductID: product.ID,
			Name:      product.Name,
			CreatorID: product.CreatedBy,
			Before:    before,
			After:     product.StockQuantity,
		}
		updated = product
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	s.alerts.LowStock(ctx, []inventory.StockChange{change})
	return NewProductDTO(updated, s.policy), nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, productID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	var found bool
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		found, err = s.repo.WithTx(tx).Delete(ctx, productID)
		return err
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found.")
	}
	return nil
}

func (s *service) toDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i], s.policy))
	}
	return out
}

func requireAdmin(actor auth.Actor) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Only administrators can manage products.")
	}
	return nil
}

func validateInput(input ProductInput) (ProductInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	switch {
	case input.Name == "":
		return input, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case len(input.Name) > maxNameLength:
		return input, pkgerrors.New(pkgerrors.CodeValidation, "name must be at most 255 characters")
	case input.Price.IsNegative():
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
	case input.StockQuantity < 0:
		return input, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity must be zero or greater")
	}
	if input.Status == "" {
		input.Status = enums.ProductStatusActive
	}
	if !input.Status.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}
	input.Price = input.Price.Round(2)
	return input, nil
}

func applyInput(product *models.Product, input ProductInput) {
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.StockQuantity = input.StockQuantity
	product.Status = input.Status
	product.ImagePath = input.ImagePath
}
