package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"clinic-booking/config"
	"clinic-booking/internal/availability"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/infrastructure/database"
	"clinic-booking/internal/repository"
	"clinic-booking/internal/service"
	"clinic-booking/internal/usecase"
	"clinic-booking/pkg/jwt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var workingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

var dayRanges = [][2]string{{"09:00", "12:00"}, {"14:00", "17:00"}}

var insurances = []string{"OSDE", "Swiss Medical", "Galeno", "Medife", entity.PrivatePracticeInsurance}

const (
	seedPatients     = 60
	seedAppointments = 120
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	log := logrus.StandardLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := database.EnsureSchema(db, false, log); err != nil {
		log.Fatalf("Run cmd/migrate first: %v", err)
	}

	email := envOr("SEED_PROVIDER_EMAIL", "demo@consultorio.example.com")
	password := envOr("SEED_PROVIDER_PASSWORD", "demo12345")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := &seeder{
		db:        db,
		log:       log,
		loc:       cfg.App.Location(),
		authority: service.NewCancellationAuthority(jwt.NewJWTService(cfg.JWT), cfg.App.Location(), time.Now),
	}
	if err := s.run(ctx, email, password); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

type seeder struct {
	db        *gorm.DB
	log       *logrus.Logger
	loc       *time.Location
	authority *service.CancellationAuthority
}

func (s *seeder) run(ctx context.Context, email, password string) error {
	providerRepo := repository.NewProviderRepository()
	existing, err := providerRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return err
	}
	if existing != nil {
		s.log.WithField("email", email).Info("Demo provider already seeded, nothing to do")
		return nil
	}

	hashed, err := usecase.HashPassword(password)
	if err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	provider := &entity.Provider{
		Username:    "demo",
		Email:       email,
		Password:    hashed,
		FirstName:   gofakeit.FirstName(),
		LastName:    gofakeit.LastName(),
		PhoneNumber: "549" + gofakeit.Numerify("11########"),
	}
	if err := providerRepo.Create(ctx, tx, provider); err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	if err := s.seedSchedule(ctx, tx, provider); err != nil {
		return err
	}

	patients, err := s.seedPatients(ctx, tx)
	if err != nil {
		return err
	}

	booked, err := s.seedAppointments(ctx, tx, provider, patients)
	if err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"provider":     provider.Username,
		"patients":     len(patients),
		"appointments": booked,
	}).Info("Seed complete")
	return nil
}

func (s *seeder) seedSchedule(ctx context.Context, tx *gorm.DB, provider *entity.Provider) error {
	repo := repository.NewWorkScheduleRepository()
	for _, day := range workingDays {
		ws := &entity.WorkSchedule{ProviderID: provider.ID, DayOfWeek: day, IsWorkingDay: true}
		if err := repo.UpsertDay(ctx, tx, ws); err != nil {
			return fmt.Errorf("schedule %s: %w", day, err)
		}
		for _, r := range dayRanges {
			tr := &entity.AvailableTimeRange{
				WorkScheduleID: ws.ID,
				ProviderID:     provider.ID,
				StartTime:      r[0],
				EndTime:        r[1],
				IsAvailable:    true,
			}
			if err := repo.CreateRange(ctx, tx, tr); err != nil {
				return fmt.Errorf("range %s %s-%s: %w", day, r[0], r[1], err)
			}
		}
	}
	return nil
}

func (s *seeder) seedPatients(ctx context.Context, tx *gorm.DB) ([]entity.Patient, error) {
	repo := repository.NewPatientRepository()
	patients := make([]entity.Patient, 0, seedPatients)
	for i := 0; i < seedPatients; i++ {
		p := entity.Patient{
			FirstName:   gofakeit.FirstName(),
			LastName:    gofakeit.LastName(),
			PhoneNumber: "549" + gofakeit.Numerify("11########"),
		}
		if err := repo.Upsert(ctx, tx, &p); err != nil {
			return nil, fmt.Errorf("patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, nil
}

// seedAppointments spreads bookings over the next two weeks of working days.
// Slots are tracked locally since a unique violation would abort the transaction.
func (s *seeder) seedAppointments(ctx context.Context, tx *gorm.DB, provider *entity.Provider, patients []entity.Patient) (int, error) {
	repo := repository.NewAppointmentRepository()

	var grid []availability.Clock
	for _, r := range dayRanges {
		rng, err := availability.NewRange(r[0], r[1])
		if err != nil {
			return 0, err
		}
		grid = append(grid, rng.Slots()...)
	}

	today := availability.Today(time.Now(), s.loc)
	var dates []time.Time
	for d := 1; d <= 14; d++ {
		date := today.AddDate(0, 0, d)
		if wd := date.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return 0, errors.New("no working dates in range")
	}

	taken := make(map[string]bool)
	booked := 0
	for i := 0; i < seedAppointments; i++ {
		date := dates[gofakeit.Number(0, len(dates)-1)]
		clock := grid[gofakeit.Number(0, len(grid)-1)].String()
		key := availability.CivilDate(date) + " " + clock
		if taken[key] {
			continue
		}
		taken[key] = true

		patient := patients[gofakeit.Number(0, len(patients)-1)]
		appt := &entity.Appointment{
			ProviderID:      provider.ID,
			PatientID:       patient.ID,
			AppointmentDate: date,
			AppointmentTime: clock,
			HealthInsurance: insurances[gofakeit.Number(0, len(insurances)-1)],
			Notes:           gofakeit.Sentence(8),
			Status:          entity.AppointmentStatusScheduled,
		}
		if gofakeit.Bool() {
			consult := gofakeit.Number(1, 2)
			appt.VisitTypeID, appt.ConsultTypeID = entity.VisitTypeConsult, &consult
		} else {
			practice := gofakeit.Number(1, 3)
			appt.VisitTypeID, appt.PracticeTypeID = entity.VisitTypePractice, &practice
		}

		if err := repo.InsertScheduled(ctx, tx, appt); err != nil {
			return booked, fmt.Errorf("appointment %s: %w", key, err)
		}
		token, err := s.authority.Issue(appt, &patient)
		if err != nil {
			return booked, err
		}
		if err := repo.SetCancellationToken(ctx, tx, appt.ID, token); err != nil {
			return booked, err
		}
		booked++
	}
	return booked, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
