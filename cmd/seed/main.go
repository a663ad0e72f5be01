package main

import (
	"fmt"
	"log"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/payments"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/venues"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db *gorm.DB

	managerID   uuid.UUID
	organizerID uuid.UUID
	customerID  uuid.UUID
}

func main() {
	_ = godotenv.Load()
	fmt.Println("🌱 Starting seat inventory seeder...")

	cfg := config.Load()
	if cfg.StorageDriver != "" && cfg.StorageDriver != "postgres" {
		log.Fatalf("Seeder needs STORAGE_DRIVER=postgres, got %q", cfg.StorageDriver)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:          db.PostgreSQL,
		managerID:   uuid.New(),
		organizerID: uuid.New(),
		customerID:  uuid.New(),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.db.Transaction(func(tx *gorm.DB) error {
		return seeder.SeedAll(tx)
	}); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🔑 Identities for signing test tokens:")
	fmt.Printf("  venue_manager: %s\n", seeder.managerID)
	fmt.Printf("  organizer:     %s\n", seeder.organizerID)
	fmt.Printf("  customer:      %s\n", seeder.customerID)
}

// CleanDatabase truncates all tables, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"hold_seats",
		"holds",
		"payments",
		"seats",
		"pricing_tiers",
		"events",
		"venues",
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := s.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// SeedAll creates two venues with tier catalogs, three events and their seats
func (s *Seeder) SeedAll(tx *gorm.DB) error {
	theater, err := s.seedVenue(tx, "Small Theater", []pricing.PricingTier{
		{Name: "Premium", Price: 120, Color: "#8B5CF6", Section: "Orchestra"},
		{Name: "Standard", Price: 60, Color: "#3B82F6", Section: "Balcony"},
	})
	if err != nil {
		return err
	}

	hall, err := s.seedVenue(tx, "Conference Hall", []pricing.PricingTier{
		{Name: "VIP", Price: 250, Color: "#F59E0B", Section: "Front"},
		{Name: "General", Price: 90, Color: "#10B981", Section: "Main"},
	})
	if err != nil {
		return err
	}

	eventsData := []struct {
		name        string
		venue       *venues.Venue
		currency    string
		daysFromNow int
		// event tiers override the venue catalog when present
		eventTiers []pricing.PricingTier
		layout     map[string]int
	}{
		{
			name:        "Evening Recital",
			venue:       theater,
			currency:    "USD",
			daysFromNow: 25,
			layout:      map[string]int{"Orchestra": 2, "Balcony": 2},
		},
		{
			name:        "Opening Night Gala",
			venue:       theater,
			currency:    "USD",
			daysFromNow: 40,
			eventTiers: []pricing.PricingTier{
				{Name: "Gala Premium", Price: 300, Color: "#EF4444", Section: "Orchestra"},
				{Name: "Gala Standard", Price: 150, Color: "#EC4899", Section: "Balcony"},
			},
			layout: map[string]int{"Orchestra": 2, "Balcony": 2},
		},
		{
			name:        "Data Platforms Summit",
			venue:       hall,
			currency:    "EUR",
			daysFromNow: 90,
			layout:      map[string]int{"Front": 1, "Main": 3},
		},
	}

	for _, eventData := range eventsData {
		event := events.Event{
			ID:          uuid.New(),
			Name:        eventData.name,
			VenueID:     eventData.venue.ID,
			OrganizerID: s.organizerID,
			HasSeating:  true,
			Currency:    eventData.currency,
			DateTime:    time.Now().AddDate(0, 0, eventData.daysFromNow),
			Status:      events.StatusPublished,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create event %s: %w", event.Name, err)
		}
		fmt.Printf("    ✅ Created event: %s (%s)\n", event.Name, event.ID)

		tiers, err := s.seedEventTiers(tx, event.ID, eventData.eventTiers)
		if err != nil {
			return fmt.Errorf("failed to create tiers for event %s: %w", event.Name, err)
		}
		if len(tiers) == 0 {
			if err := tx.Where("venue_id = ? AND is_venue_tier = ?", eventData.venue.ID, true).Find(&tiers).Error; err != nil {
				return fmt.Errorf("failed to load venue tiers: %w", err)
			}
		}

		if err := s.seedSeats(tx, event.ID, tiers, eventData.layout); err != nil {
			return fmt.Errorf("failed to create seats for event %s: %w", event.Name, err)
		}
	}

	return s.seedPayment(tx)
}

func (s *Seeder) seedVenue(tx *gorm.DB, name string, tiers []pricing.PricingTier) (*venues.Venue, error) {
	fmt.Printf("  🏟️ Seeding venue %s...\n", name)

	venue := venues.Venue{ID: uuid.New(), Name: name, ManagerID: &s.managerID}
	if err := tx.Create(&venue).Error; err != nil {
		return nil, fmt.Errorf("failed to create venue %s: %w", name, err)
	}

	for i := range tiers {
		tiers[i].VenueID = &venue.ID
		tiers[i].IsVenueTier = true
	}
	if err := tx.Create(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to create tiers for venue %s: %w", name, err)
	}
	fmt.Printf("    ✅ Created venue: %s with %d tiers\n", name, len(tiers))
	return &venue, nil
}

func (s *Seeder) seedEventTiers(tx *gorm.DB, eventID uuid.UUID, tiers []pricing.PricingTier) ([]pricing.PricingTier, error) {
	if len(tiers) == 0 {
		return nil, nil
	}
	for i := range tiers {
		tiers[i].EventID = &eventID
	}
	if err := tx.Create(&tiers).Error; err != nil {
		return nil, err
	}
	fmt.Printf("      ✅ Created %d event tiers\n", len(tiers))
	return tiers, nil
}

// seedSeats lays out rows of ten seats per section, priced through the tier
// whose section matches
func (s *Seeder) seedSeats(tx *gorm.DB, eventID uuid.UUID, tiers []pricing.PricingTier, layout map[string]int) error {
	const seatsPerRow = 10

	bySection := make(map[string]uuid.UUID, len(tiers))
	for _, tier := range tiers {
		bySection[tier.Section] = tier.ID
	}

	var batch []seats.Seat
	for section, rows := range layout {
		tierID, ok := bySection[section]
		if !ok {
			return fmt.Errorf("no tier covers section %s", section)
		}
		for row := 0; row < rows; row++ {
			for n := 1; n <= seatsPerRow; n++ {
				tier := tierID
				batch = append(batch, seats.Seat{
					EventID:      eventID,
					Section:      section,
					Row:          string(rune('A' + row)),
					Label:        fmt.Sprintf("%d", n),
					TierID:       &tier,
					IsAccessible: n == 1,
					Status:       seats.StatusAvailable,
				})
			}
		}
	}

	if err := tx.CreateInBatches(&batch, 100).Error; err != nil {
		return err
	}
	fmt.Printf("      ✅ Created %d seats\n", len(batch))
	return nil
}

// seedPayment records one settled payment so the confirm flow can be tried by
// hand without a payment provider
func (s *Seeder) seedPayment(tx *gorm.DB) error {
	now := time.Now()
	payment := payments.Payment{
		ID:          "pay-demo-1",
		UserID:      s.customerID,
		Amount:      120,
		Currency:    "USD",
		Status:      payments.PaymentStatusCompleted,
		CompletedAt: &now,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	fmt.Printf("  💳 Created completed payment %s for the customer\n", payment.ID)
	return nil
}
