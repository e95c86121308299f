package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/medisys/clinicore/internal/catalog/domain"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@clinicore.local"
	defaultAdminPassword = "admin"
)

// EnsureAdmin seeds the bootstrap admin account for fresh installs. The
// default password is only for first login and must be rotated.
func EnsureAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userdomain.User
		err := tx.WithContext(ctx).
			Where("email = ?", defaultAdminEmail).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user = userdomain.User{
			ID:           node.Generate(),
			Role:         userdomain.RoleAdmin,
			Email:        defaultAdminEmail,
			PasswordHash: string(hash),
			FirstName:    "Clinicore",
			LastName:     "Admin",
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureStarterCatalog seeds a handful of common tests so a fresh install
// can place orders immediately.
func EnsureStarterCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	starters := []catalogdomain.CatalogTest{
		{Code: "CBC", Name: "Complete Blood Count", Category: "hematology", UnitPriceCents: 2500, TurnaroundHrs: 24},
		{Code: "BMP", Name: "Basic Metabolic Panel", Category: "chemistry", UnitPriceCents: 3200, TurnaroundHrs: 24},
		{Code: "LIPID", Name: "Lipid Panel", Category: "chemistry", UnitPriceCents: 4000, TurnaroundHrs: 48},
		{Code: "TSH", Name: "Thyroid Stimulating Hormone", Category: "endocrinology", UnitPriceCents: 5500, TurnaroundHrs: 48},
		{Code: "UA", Name: "Urinalysis", Category: "urinalysis", UnitPriceCents: 1500, TurnaroundHrs: 12},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, starter := range starters {
			var existing catalogdomain.CatalogTest
			err := tx.WithContext(ctx).
				Where("code = ?", starter.Code).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			starter.ID = node.Generate()
			starter.Active = true
			starter.CreatedAt = now
			starter.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&starter).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
