package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"gorm.io/gorm"
)

const defaultPrimaryKeyName = "primary"

// PrimaryKey carries the merchant credentials used when no primary key exists.
type PrimaryKey struct {
	Name      string
	Identity  string
	SecretKey string
}

// EnsurePrimaryPaymentKey inserts the primary payment key on first boot.
// Existing primary keys are never overwritten. Missing credentials are a no-op.
func EnsurePrimaryPaymentKey(db *gorm.DB, node *snowflake.Node, key PrimaryKey) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	identity := strings.TrimSpace(key.Identity)
	secret := strings.TrimSpace(key.SecretKey)
	if identity == "" || secret == "" {
		return nil
	}
	name := strings.TrimSpace(key.Name)
	if name == "" {
		name = defaultPrimaryKeyName
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing paymentkeydomain.PaymentKey
		err := tx.WithContext(ctx).Where("is_primary = ?", true).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		created := paymentkeydomain.PaymentKey{
			ID:        node.Generate(),
			Name:      name,
			Identity:  identity,
			SecretKey: secret,
			Primary:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&created).Error
	})
}
