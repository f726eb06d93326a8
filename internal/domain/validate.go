package domain

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateArticle checks an article master record before it enters the engine.
func ValidateArticle(a ArticleMaster) error {
	return validateRecord(a)
}

// ValidateSnapshot rejects snapshots with a negative or non-finite quantity.
func ValidateSnapshot(s InventorySnapshot) error {
	if math.IsNaN(s.Quantity) || math.IsInf(s.Quantity, 0) {
		return fmt.Errorf("inventory %s/%s: %w", s.WarehouseID, s.ArticleID, ErrInvalidQuantity)
	}
	return validateRecord(s)
}

// ValidateSale rejects sale events with a negative or non-finite quantity.
func ValidateSale(e SaleEvent) error {
	if math.IsNaN(e.Quantity) || math.IsInf(e.Quantity, 0) {
		return fmt.Errorf("sale %s: %w", e.SaleID, ErrInvalidQuantity)
	}
	return validateRecord(e)
}

func validateRecord(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Quantity" {
				return fmt.Errorf("%s: %w", fe.Namespace(), ErrInvalidQuantity)
			}
		}
	}
	return err
}
