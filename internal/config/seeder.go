package config

import (
	"log"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedStaffAccounts(); err != nil {
		log.Printf("⚠️ Staff seeder skipped: %v", err)
	}
	if err := s.seedCatalog(); err != nil {
		log.Printf("⚠️ Catalog seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedStaffAccounts seeds default admin and librarian accounts.
// Development/testing only; production staff should be created through a
// secure process.
func (s *Seeder) seedStaffAccounts() error {
	var count int64
	s.db.Model(&models.User{}).
		Where("role IN ?", []string{string(domain.RoleAdmin), string(domain.RoleLibrarian)}).
		Count(&count)
	if count > 0 {
		return nil // Staff already exists
	}

	staff := []struct {
		username string
		email    string
		role     domain.Role
		pass     string
	}{
		{"admin", "admin@shelfdesk.local", domain.RoleAdmin, "admin123456"},
		{"librarian", "librarian@shelfdesk.local", domain.RoleLibrarian, "library12345"},
	}

	for _, m := range staff {
		hashed, err := password.Hash(m.pass)
		if err != nil {
			return err
		}
		user := &models.User{
			Username: m.username,
			Email:    m.email,
			Password: hashed,
			Role:     string(m.role),
			IsActive: true,
		}
		if err := s.db.Create(user).Error; err != nil {
			return err
		}
		log.Printf("   Created %s account: %s", m.role, m.username)
	}
	return nil
}

// seedCatalog seeds a starter catalog for development
func (s *Seeder) seedCatalog() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil // Catalog already has titles
	}

	books := []models.Book{
		{Title: "The Go Programming Language", Author: "Alan A. A. Donovan", Quantity: 3},
		{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Quantity: 2},
		{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", Quantity: 4},
		{Title: "Clean Architecture", Author: "Robert C. Martin", Quantity: 2},
		{Title: "Database Internals", Author: "Alex Petrov", Quantity: 1},
	}

	for _, b := range books {
		if err := s.db.Create(&b).Error; err != nil {
			return err
		}
		log.Printf("   Created book: %s", b.Title)
	}
	return nil
}
