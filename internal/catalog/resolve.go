package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewhouse/cafe-backend/pkg/db/models"
	"github.com/brewhouse/cafe-backend/pkg/enums"
	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
	"github.com/brewhouse/cafe-backend/pkg/types"
)

// ProductRequest is a client's configuration of one product.
type ProductRequest struct {
	ProductID  uuid.UUID
	Size       string
	SugarLevel string
	ToppingIDs []uuid.UUID
}

// ResolveProduct loads the product behind req and snapshots the selection.
// Toppings that are unknown, inactive or outside the product's allow-list are dropped.
func ResolveProduct(ctx context.Context, r Reader, req ProductRequest) (*models.Product, types.ProductSelection, error) {
	size, sugar, err := parseModifiers(req.Size, req.SugarLevel)
	if err != nil {
		return nil, types.ProductSelection{}, err
	}

	product, err := LoadActiveProduct(ctx, r, req.ProductID)
	if err != nil {
		return nil, types.ProductSelection{}, err
	}
	if !product.AllowsSize(size) {
		return nil, types.ProductSelection{}, pkgerrors.Validation(pkgerrors.ReasonInvalidModifier, "size not offered for this product").
			WithDetails(map[string]any{"productId": product.ID, "size": size, "allowed": []string(product.Sizes)})
	}
	if !product.AllowsSugarLevel(sugar) {
		return nil, types.ProductSelection{}, pkgerrors.Validation(pkgerrors.ReasonInvalidModifier, "sugar level not offered for this product").
			WithDetails(map[string]any{"productId": product.ID, "sugarLevel": sugar, "allowed": []string(product.SugarLevels)})
	}

	allowed := make([]uuid.UUID, 0, len(req.ToppingIDs))
	for _, id := range req.ToppingIDs {
		if product.AllowsTopping(id) {
			allowed = append(allowed, id)
		}
	}
	toppings, err := r.FindToppings(ctx, allowed)
	if err != nil {
		return nil, types.ProductSelection{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load toppings")
	}

	selection := types.ProductSelection{
		ProductID:  product.ID,
		Size:       size,
		SugarLevel: sugar,
		Toppings:   make([]types.ToppingSnapshot, 0, len(toppings)),
	}
	for _, t := range toppings {
		selection.Toppings = append(selection.Toppings, types.ToppingSnapshot{ToppingID: t.ID, Name: t.Name, Price: t.Price})
	}
	return product, selection, nil
}

func parseModifiers(rawSize, rawSugar string) (enums.Size, enums.SugarLevel, error) {
	rawSize, rawSugar = strings.TrimSpace(rawSize), strings.TrimSpace(rawSugar)
	if rawSize == "" || rawSugar == "" {
		return "", "", pkgerrors.Validation(pkgerrors.ReasonMissingModifiers, "size and sugarLevel are required")
	}
	size, err := enums.ParseSize(rawSize)
	if err != nil {
		return "", "", pkgerrors.Validation(pkgerrors.ReasonInvalidModifier, err.Error())
	}
	sugar, err := enums.ParseSugarLevel(rawSugar)
	if err != nil {
		return "", "", pkgerrors.Validation(pkgerrors.ReasonInvalidModifier, err.Error())
	}
	return size, sugar, nil
}

// LoadActiveProduct treats inactive products as missing.
func LoadActiveProduct(ctx context.Context, r Reader, id uuid.UUID) (*models.Product, error) {
	product, err := r.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, productNotFound(id)
	}
	return product, nil
}

func productNotFound(id uuid.UUID) error {
	return pkgerrors.NotFound(pkgerrors.ReasonProductNotFound, "product not found").
		WithDetails(map[string]any{"productId": id})
}

// LoadCombo fails ComboNotFound for unknown ids and ComboNotActive for retired combos.
func LoadCombo(ctx context.Context, r Reader, id uuid.UUID) (*models.Combo, error) {
	combo, err := r.FindCombo(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(pkgerrors.ReasonComboNotFound, "combo not found").
				WithDetails(map[string]any{"comboId": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load combo")
	}
	if !combo.IsActive {
		return nil, pkgerrors.Conflict(pkgerrors.ReasonComboNotActive, "combo is not active").
			WithDetails(map[string]any{"comboId": id})
	}
	return combo, nil
}

// CheckProductStock fails InsufficientStock when required exceeds the product's stock.
func CheckProductStock(product *models.Product, required int) error {
	if required <= product.Stock {
		return nil
	}
	return pkgerrors.Conflict(pkgerrors.ReasonInsufficientStock, "not enough stock for "+product.Name).
		WithDetails(map[string]any{
			"productId":   product.ID,
			"productName": product.Name,
			"required":    required,
			"available":   product.Stock,
		})
}

// CheckComboStock verifies every constituent can cover quantityInCombo * comboQuantity,
// summed across entries that list the same product, and returns the constituents keyed by id.
func CheckComboStock(ctx context.Context, r Reader, combo *models.Combo, comboQuantity int) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(combo.Products))
	perUnit := make(map[uuid.UUID]int, len(combo.Products))
	for _, cp := range combo.Products {
		if _, seen := perUnit[cp.ProductID]; !seen {
			ids = append(ids, cp.ProductID)
		}
		perUnit[cp.ProductID] += cp.Quantity
	}
	products, err := r.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load combo products")
	}
	for _, id := range ids {
		required := perUnit[id] * comboQuantity
		product, ok := products[id]
		available := 0
		name := ""
		if ok {
			name = product.Name
			if product.IsActive {
				available = product.Stock
			}
		}
		if ok && product.IsActive && required <= available {
			continue
		}
		return nil, pkgerrors.Conflict(pkgerrors.ReasonComboProductOutOfStock, "combo product out of stock").
			WithDetails(map[string]any{
				"comboId":     combo.ID,
				"productId":   id,
				"productName": name,
				"required":    required,
				"available":   available,
			})
	}
	return products, nil
}
