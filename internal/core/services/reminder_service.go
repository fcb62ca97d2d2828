package services

import (
	"log"
	"time"

	"shelfdesk/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ReminderService runs the daily overdue scan. It only surfaces defaulters
// in the logs; actual notification delivery is out of scope.
type ReminderService struct {
	circRepo *repositories.CirculationRepository
	cron     *cron.Cron
}

// NewReminderService creates a new reminder service
func NewReminderService(db *gorm.DB) *ReminderService {
	return &ReminderService{
		circRepo: repositories.NewCirculationRepository(db),
		cron:     cron.New(),
	}
}

// Start schedules the overdue scan (08:30 daily)
func (s *ReminderService) Start() {
	s.cron.AddFunc("30 8 * * *", s.scanOverdue)
	s.cron.Start()
	log.Println("🚀 ReminderService started (overdue scan at 08:30 daily)")
}

// Stop stops the scheduler
func (s *ReminderService) Stop() {
	s.cron.Stop()
	log.Println("🛑 ReminderService stopped")
}

func (s *ReminderService) scanOverdue() {
	now := time.Now()
	loans, err := s.circRepo.ListOverdueLoans(now)
	if err != nil {
		log.Printf("❌ Overdue scan failed: %v", err)
		return
	}
	if len(loans) == 0 {
		log.Println("✅ Overdue scan: no defaulters")
		return
	}

	log.Printf("⚠️ Overdue scan: %d loan(s) past due", len(loans))
	for _, loan := range loans {
		days := overdueDaysFloor(now, loan.ExpectedReturn)
		title := ""
		if loan.Book != nil {
			title = loan.Book.Title
		}
		username := ""
		if loan.User != nil {
			username = loan.User.Username
		}
		log.Printf("   book %q held by %s is %d day(s) overdue (rate %.2f/day)",
			title, username, days, loan.FinePerDay)
	}
}
