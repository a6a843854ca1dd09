package database

import (
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"septic-booking-server/models"
	"septic-booking-server/utils"
)

var defaultServiceTypes = []models.ServiceType{
	{
		Name:        "Septic Tank Pumping",
		Description: "Full pump-out of residential septic tanks up to 1,500 gallons",
		Price:       500,
		Duration:    2,
		Status:      models.ServiceTypeActive,
	},
	{
		Name:        "Septic Tank Inspection",
		Description: "Visual and camera inspection of tank, baffles and drain field",
		Price:       250,
		Duration:    1,
		Status:      models.ServiceTypeActive,
	},
	{
		Name:        "Drain Field Cleaning",
		Description: "High-pressure jetting of drain field lines",
		Price:       800,
		Duration:    3,
		Status:      models.ServiceTypeActive,
	},
	{
		Name:        "Grease Trap Cleaning",
		Description: "Commercial grease trap pump-out and disposal",
		Price:       650,
		Duration:    2,
		Status:      models.ServiceTypeActive,
	},
}

var defaultPages = []models.Page{
	{Slug: "about", Title: "About Us"},
	{Slug: "contact", Title: "Contact Us"},
	{Slug: "faq", Title: "Frequently Asked Questions"},
}

// Seed inserts the default catalog, content pages and the bootstrap admin
// when they are missing. It is safe to run on every start.
func Seed(db *gorm.DB, adminEmail, adminPassword string, log zerolog.Logger) error {
	var count int64
	if err := db.Model(&models.ServiceType{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		seed := make([]models.ServiceType, len(defaultServiceTypes))
		copy(seed, defaultServiceTypes)
		if err := db.Create(&seed).Error; err != nil {
			return err
		}
		log.Info().Int("count", len(defaultServiceTypes)).Msg("seeded service types")
	}

	for _, page := range defaultPages {
		page := page
		if err := db.Where(models.Page{Slug: page.Slug}).FirstOrCreate(&page).Error; err != nil {
			return err
		}
	}

	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	var admin models.User
	err := db.Where("email = ?", adminEmail).First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	admin = models.User{
		FullName:     "Administrator",
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Info().Str("email", adminEmail).Msg("seeded admin user")
	return nil
}
