package usecase

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic-booking/config"
	"clinic-booking/internal/availability"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/infrastructure/cache"
	"clinic-booking/internal/infrastructure/metrics"
	"clinic-booking/internal/infrastructure/notify"
	"clinic-booking/internal/service"
	"clinic-booking/pkg/jwt"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// store is an in-memory stand-in for the database. Every fake repository
// shares one store and ignores the *gorm.DB it is handed, so writes are not
// rolled back with the transaction.
type store struct {
	mu sync.Mutex

	providers    map[uuid.UUID]*entity.Provider
	patients     map[string]*entity.Patient
	appointments map[uuid.UUID]*entity.Appointment
	schedules    map[string]*entity.WorkSchedule
	unavailable  map[string]*entity.UnavailableDay
	frames       []entity.UnavailableTimeFrame
	audits       []entity.AuditLog
	insurances   []entity.HealthInsurance
	nextID       int
}

func newStore() *store {
	return &store{
		providers:    make(map[uuid.UUID]*entity.Provider),
		patients:     make(map[string]*entity.Patient),
		appointments: make(map[uuid.UUID]*entity.Appointment),
		schedules:    make(map[string]*entity.WorkSchedule),
		unavailable:  make(map[string]*entity.UnavailableDay),
	}
}

func (s *store) id() int {
	s.nextID++
	return s.nextID
}

func scheduleKey(providerID uuid.UUID, day string) string {
	return providerID.String() + "|" + day
}

func dateKey(providerID uuid.UUID, date time.Time) string {
	return providerID.String() + "|" + availability.CivilDate(date)
}

// ----------------------------------------------------------------------------
// Providers
// ----------------------------------------------------------------------------

type fakeProviderRepo struct{ s *store }

func (r *fakeProviderRepo) Create(ctx context.Context, db *gorm.DB, provider *entity.Provider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.providers {
		if p.Username == provider.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "providers_username_key"}
		}
		if strings.EqualFold(p.Email, provider.Email) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "providers_email_key"}
		}
	}
	if provider.ID == uuid.Nil {
		provider.ID = uuid.New()
	}
	cp := *provider
	r.s.providers[provider.ID] = &cp
	return nil
}

func (r *fakeProviderRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.providers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeProviderRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.Provider, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.providers {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeProviderRepo) FindByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*entity.Provider, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return r.FindByID(ctx, db, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.providers {
		if p.Username == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// ----------------------------------------------------------------------------
// Patients
// ----------------------------------------------------------------------------

type fakePatientRepo struct{ s *store }

func (r *fakePatientRepo) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.patients[phone]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakePatientRepo) Upsert(ctx context.Context, db *gorm.DB, patient *entity.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.patients[patient.PhoneNumber]; ok {
		existing.FirstName = patient.FirstName
		existing.LastName = patient.LastName
		patient.ID = existing.ID
		return nil
	}
	patient.ID = uuid.New()
	cp := *patient
	r.s.patients[patient.PhoneNumber] = &cp
	return nil
}

// ----------------------------------------------------------------------------
// Appointments
// ----------------------------------------------------------------------------

type fakeAppointmentRepo struct{ s *store }

func (r *fakeAppointmentRepo) InsertScheduled(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.IsScheduled() && a.ProviderID == appointment.ProviderID &&
			availability.CivilDate(a.AppointmentDate) == availability.CivilDate(appointment.AppointmentDate) &&
			a.AppointmentTime == appointment.AppointmentTime {
			return &pgconn.PgError{Code: "23505", ConstraintName: "unique_appointment_scheduled"}
		}
	}
	appointment.ID = uuid.New()
	cp := *appointment
	r.s.appointments[appointment.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) withRelations(a *entity.Appointment) *entity.Appointment {
	cp := *a
	if p, ok := r.s.providers[a.ProviderID]; ok {
		cp.Provider = *p
	}
	for _, p := range r.s.patients {
		if p.ID == a.PatientID {
			cp.Patient = *p
		}
	}
	return &cp
}

func (r *fakeAppointmentRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.appointments[id]; ok {
		return r.withRelations(a), nil
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) FindScheduledForPatientSlot(ctx context.Context, db *gorm.DB, phone string, providerID uuid.UUID, date time.Time, at string) (*entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	patient, ok := r.s.patients[phone]
	if !ok {
		return nil, nil
	}
	for _, a := range r.s.appointments {
		if a.IsScheduled() && a.PatientID == patient.ID && a.ProviderID == providerID &&
			availability.CivilDate(a.AppointmentDate) == availability.CivilDate(date) && a.AppointmentTime == at {
			return r.withRelations(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAppointmentRepo) ListBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, a := range r.s.appointments {
		if a.IsScheduled() && a.ProviderID == providerID && availability.CivilDate(a.AppointmentDate) == availability.CivilDate(date) {
			out = append(out, a.AppointmentTime+":00")
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeAppointmentRepo) ListByFilter(ctx context.Context, db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if a.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.From != nil && availability.IsBefore(a.AppointmentDate, *filter.From) {
			continue
		}
		if filter.To != nil && availability.IsBefore(*filter.To, a.AppointmentDate) {
			continue
		}
		out = append(out, *r.withRelations(a))
	}
	sort.Slice(out, func(i, j int) bool {
		ki := availability.CivilDate(out[i].AppointmentDate) + out[i].AppointmentTime
		kj := availability.CivilDate(out[j].AppointmentDate) + out[j].AppointmentTime
		return ki < kj
	})
	return out, int64(len(out)), nil
}

func (r *fakeAppointmentRepo) ListScheduledFrom(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from time.Time) ([]entity.Appointment, error) {
	list, _, err := r.ListByFilter(ctx, db, &entity.AppointmentFilter{ProviderID: providerID, Status: entity.AppointmentStatusScheduled, From: &from})
	return list, err
}

func (r *fakeAppointmentRepo) ListDueForReminder(ctx context.Context, db *gorm.DB, from, to time.Time) ([]entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if !a.IsScheduled() || a.ReminderSentAt != nil {
			continue
		}
		if availability.IsBefore(a.AppointmentDate, from) || availability.IsBefore(to, a.AppointmentDate) {
			continue
		}
		out = append(out, *r.withRelations(a))
	}
	return out, nil
}

func (r *fakeAppointmentRepo) MarkCancelled(ctx context.Context, db *gorm.DB, id uuid.UUID, by string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || !a.IsScheduled() {
		return 0, nil
	}
	a.Cancel(by, at)
	return 1, nil
}

func (r *fakeAppointmentRepo) SetCancellationToken(ctx context.Context, db *gorm.DB, id uuid.UUID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.appointments[id]; ok {
		a.CancellationToken = token
	}
	return nil
}

func (r *fakeAppointmentRepo) MarkNotificationSent(ctx context.Context, db *gorm.DB, id uuid.UUID, messageID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.appointments[id]; ok {
		a.WhatsAppSent = true
		a.WhatsAppMessageID = messageID
		a.WhatsAppSentAt = &at
	}
	return nil
}

func (r *fakeAppointmentRepo) ClaimReminder(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || !a.IsScheduled() || a.ReminderSentAt != nil {
		return false, nil
	}
	a.ReminderSentAt = &at
	return true, nil
}

func (r *fakeAppointmentRepo) ReleaseReminder(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.appointments[id]; ok && a.ReminderSentAt != nil && a.ReminderSentAt.Equal(at) {
		a.ReminderSentAt = nil
	}
	return nil
}

// ----------------------------------------------------------------------------
// Work schedule
// ----------------------------------------------------------------------------

type fakeWorkScheduleRepo struct{ s *store }

func (r *fakeWorkScheduleRepo) snapshot(ws *entity.WorkSchedule) *entity.WorkSchedule {
	cp := *ws
	cp.Ranges = append([]entity.AvailableTimeRange(nil), ws.Ranges...)
	return &cp
}

func (r *fakeWorkScheduleRepo) FindByProvider(ctx context.Context, db *gorm.DB, providerID uuid.UUID) ([]entity.WorkSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.WorkSchedule
	for _, ws := range r.s.schedules {
		if ws.ProviderID == providerID {
			out = append(out, *r.snapshot(ws))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeWorkScheduleRepo) FindByProviderAndDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, day string) (*entity.WorkSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ws, ok := r.s.schedules[scheduleKey(providerID, day)]; ok {
		return r.snapshot(ws), nil
	}
	return nil, nil
}

func (r *fakeWorkScheduleRepo) LockByProviderAndDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, day string) (*entity.WorkSchedule, error) {
	return r.FindByProviderAndDay(ctx, db, providerID, day)
}

func (r *fakeWorkScheduleRepo) UpsertDay(ctx context.Context, db *gorm.DB, schedule *entity.WorkSchedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := scheduleKey(schedule.ProviderID, schedule.DayOfWeek)
	if existing, ok := r.s.schedules[key]; ok {
		existing.IsWorkingDay = schedule.IsWorkingDay
		schedule.ID = existing.ID
		return nil
	}
	schedule.ID = r.s.id()
	cp := *schedule
	r.s.schedules[key] = &cp
	return nil
}

func (r *fakeWorkScheduleRepo) CreateRange(ctx context.Context, db *gorm.DB, tr *entity.AvailableTimeRange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ws := range r.s.schedules {
		if ws.ID == tr.WorkScheduleID {
			tr.ID = r.s.id()
			ws.Ranges = append(ws.Ranges, *tr)
			return nil
		}
	}
	return &pgconn.PgError{Code: "23503", ConstraintName: "available_time_ranges_work_schedule_id_fkey"}
}

func (r *fakeWorkScheduleRepo) FindRangeByID(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (*entity.AvailableTimeRange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ws := range r.s.schedules {
		if ws.ProviderID != providerID {
			continue
		}
		for _, tr := range ws.Ranges {
			if tr.ID == id {
				cp := tr
				cp.WorkSchedule = &entity.WorkSchedule{ID: ws.ID, ProviderID: ws.ProviderID, DayOfWeek: ws.DayOfWeek, IsWorkingDay: ws.IsWorkingDay}
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeWorkScheduleRepo) DeleteRange(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ws := range r.s.schedules {
		if ws.ProviderID != providerID {
			continue
		}
		for i, tr := range ws.Ranges {
			if tr.ID == id {
				ws.Ranges = append(ws.Ranges[:i], ws.Ranges[i+1:]...)
				return 1, nil
			}
		}
	}
	return 0, nil
}

// ----------------------------------------------------------------------------
// Unavailability
// ----------------------------------------------------------------------------

type fakeUnavailabilityRepo struct{ s *store }

func (r *fakeUnavailabilityRepo) IsDayUnavailable(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.unavailable[dateKey(providerID, date)]
	return ok, nil
}

func (r *fakeUnavailabilityRepo) ListDays(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from, to *time.Time) ([]entity.UnavailableDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.UnavailableDay
	for _, d := range r.s.unavailable {
		if d.ProviderID != providerID {
			continue
		}
		if from != nil && availability.IsBefore(d.UnavailableDate, *from) {
			continue
		}
		if to != nil && availability.IsBefore(*to, d.UnavailableDate) {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *fakeUnavailabilityRepo) UpsertDay(ctx context.Context, db *gorm.DB, day *entity.UnavailableDay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := dateKey(day.ProviderID, day.UnavailableDate)
	if existing, ok := r.s.unavailable[key]; ok {
		existing.Reason = day.Reason
		day.ID = existing.ID
		return nil
	}
	day.ID = r.s.id()
	cp := *day
	r.s.unavailable[key] = &cp
	return nil
}

func (r *fakeUnavailabilityRepo) DeleteDay(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := dateKey(providerID, date)
	if _, ok := r.s.unavailable[key]; !ok {
		return 0, nil
	}
	delete(r.s.unavailable, key)
	return 1, nil
}

func (r *fakeUnavailabilityRepo) ListFrames(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]entity.UnavailableTimeFrame, error) {
	return r.ListFramesBetween(ctx, db, providerID, &date, &date)
}

func (r *fakeUnavailabilityRepo) ListFramesBetween(ctx context.Context, db *gorm.DB, providerID uuid.UUID, from, to *time.Time) ([]entity.UnavailableTimeFrame, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.UnavailableTimeFrame
	for _, f := range r.s.frames {
		if f.ProviderID != providerID {
			continue
		}
		if from != nil && availability.IsBefore(f.WorkdayDate, *from) {
			continue
		}
		if to != nil && availability.IsBefore(*to, f.WorkdayDate) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *fakeUnavailabilityRepo) CreateFrame(ctx context.Context, db *gorm.DB, frame *entity.UnavailableTimeFrame) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	frame.ID = r.s.id()
	r.s.frames = append(r.s.frames, *frame)
	return nil
}

func (r *fakeUnavailabilityRepo) DeleteFrame(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, f := range r.s.frames {
		if f.ID == id && f.ProviderID == providerID {
			r.s.frames = append(r.s.frames[:i], r.s.frames[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// ----------------------------------------------------------------------------
// Catalog and audit
// ----------------------------------------------------------------------------

type fakeCatalogRepo struct{ s *store }

func (r *fakeCatalogRepo) ListVisitTypes(ctx context.Context, db *gorm.DB) ([]entity.VisitType, error) {
	return []entity.VisitType{{ID: 1, Name: "Consulta"}, {ID: 2, Name: "Practica"}}, nil
}

func (r *fakeCatalogRepo) ListConsultTypes(ctx context.Context, db *gorm.DB) ([]entity.ConsultType, error) {
	return []entity.ConsultType{
		{ID: 1, Name: "Primera vez", DepositAmount: decimal.NewNullDecimal(decimal.RequireFromString("5000"))},
		{ID: 2, Name: "Control"},
	}, nil
}

func (r *fakeCatalogRepo) ListPracticeTypes(ctx context.Context, db *gorm.DB) ([]entity.PracticeType, error) {
	return []entity.PracticeType{{ID: 1, Name: "Criocirugia"}}, nil
}

func (r *fakeCatalogRepo) FindVisitType(ctx context.Context, db *gorm.DB, id int) (*entity.VisitType, error) {
	list, _ := r.ListVisitTypes(ctx, db)
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (r *fakeCatalogRepo) FindConsultType(ctx context.Context, db *gorm.DB, id int) (*entity.ConsultType, error) {
	list, _ := r.ListConsultTypes(ctx, db)
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (r *fakeCatalogRepo) FindPracticeType(ctx context.Context, db *gorm.DB, id int) (*entity.PracticeType, error) {
	list, _ := r.ListPracticeTypes(ctx, db)
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (r *fakeCatalogRepo) ListHealthInsurances(ctx context.Context, db *gorm.DB) ([]entity.HealthInsurance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]entity.HealthInsurance(nil), r.s.insurances...), nil
}

func (r *fakeCatalogRepo) FindHealthInsuranceByName(ctx context.Context, db *gorm.DB, name string) (*entity.HealthInsurance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.insurances {
		if strings.EqualFold(r.s.insurances[i].Name, name) {
			cp := r.s.insurances[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCatalogRepo) ReplaceHealthInsurances(ctx context.Context, db *gorm.DB, items []entity.HealthInsurance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.insurances = nil
	for i := range items {
		items[i].ID = r.s.id()
		r.s.insurances = append(r.s.insurances, items[i])
	}
	return nil
}

type fakeAuditRepo struct{ s *store }

func (r *fakeAuditRepo) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = int64(r.s.id())
	log.CreatedAt = time.Now()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

func (r *fakeAuditRepo) FindByProvider(ctx context.Context, db *gorm.DB, providerID uuid.UUID, limit, offset int) ([]entity.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []entity.AuditLog
	for _, l := range r.s.audits {
		if l.ProviderID != nil && *l.ProviderID == providerID {
			all = append(all, l)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []entity.AuditLog{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeAuditRepo) FindByID(ctx context.Context, db *gorm.DB, providerID uuid.UUID, id int64) (*entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.audits {
		if l.ID == id && l.ProviderID != nil && *l.ProviderID == providerID {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *store) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audits))
	for _, l := range s.audits {
		out = append(out, l.Action)
	}
	return out
}

// ----------------------------------------------------------------------------
// Notification senders
// ----------------------------------------------------------------------------

type recordingWhatsApp struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingWhatsApp) Send(ctx context.Context, to, body string) (*notify.SendResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, to)
	return &notify.SendResult{MessageID: "wamid-" + to}, nil
}

func (r *recordingWhatsApp) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type recordingEmail struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingEmail) Send(ctx context.Context, msg notify.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, msg.Subject)
	return nil
}

func (r *recordingEmail) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

// ----------------------------------------------------------------------------
// Harness
// ----------------------------------------------------------------------------

type harness struct {
	store    *store
	mock     sqlmock.Sqlmock
	sqlDB    *sql.DB
	db       *gorm.DB
	now      time.Time
	policy   BookingPolicy
	jwt      *jwt.JWTService
	auth     *service.CancellationAuthority
	cache    *service.AvailabilityCacheService
	whatsapp *recordingWhatsApp
	email    *recordingEmail
	notifier *service.NotificationService
	metrics  *metrics.BookingMetrics
	registry *prometheus.Registry
	audit    service.AuditService
	log      *logrus.Logger
	provider *entity.Provider

	providerRepo       *fakeProviderRepo
	patientRepo        *fakePatientRepo
	appointmentRepo    *fakeAppointmentRepo
	workScheduleRepo   *fakeWorkScheduleRepo
	unavailabilityRepo *fakeUnavailabilityRepo
	catalogRepo        *fakeCatalogRepo
	auditRepo          *fakeAuditRepo
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func clinicLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	return loc
}

// newHarness wires every usecase dependency against the in-memory store.
// now is 2025-05-30 09:00 in the clinic (a Friday).
func newHarness(t *testing.T) *harness {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	// One connection serializes transactions the way row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	h := &harness{
		store:    newStore(),
		mock:     mock,
		sqlDB:    sqlDB,
		db:       db,
		now:      time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC),
		whatsapp: &recordingWhatsApp{},
		email:    &recordingEmail{},
		registry: prometheus.NewRegistry(),
		log:      quietLogger(),
	}
	h.metrics = metrics.NewBookingMetrics(h.registry)
	clock := func() time.Time { return h.now }

	h.policy = NewBookingPolicy(clinicLocation(t), 30, clock)
	h.jwt = jwt.NewJWTService(config.JWTConfig{
		Secret:             "session-secret",
		CancellationSecret: "cancellation-secret",
		AccessExpiry:       15 * time.Minute,
		RefreshExpiry:      time.Hour,
	}, jwt.WithClock(clock))
	h.auth = service.NewCancellationAuthority(h.jwt, h.policy.Location, clock)

	local, err := cache.NewLocalCache(128)
	require.NoError(t, err)
	h.cache = service.NewAvailabilityCacheService(local, time.Minute, h.log, h.metrics)
	h.notifier = service.NewNotificationService(h.whatsapp, h.email, "https://turnos.example.com", h.log, h.metrics)

	h.providerRepo = &fakeProviderRepo{s: h.store}
	h.patientRepo = &fakePatientRepo{s: h.store}
	h.appointmentRepo = &fakeAppointmentRepo{s: h.store}
	h.workScheduleRepo = &fakeWorkScheduleRepo{s: h.store}
	h.unavailabilityRepo = &fakeUnavailabilityRepo{s: h.store}
	h.catalogRepo = &fakeCatalogRepo{s: h.store}
	h.auditRepo = &fakeAuditRepo{s: h.store}
	h.audit = service.NewAuditService(h.log, h.auditRepo)

	h.provider = &entity.Provider{
		ID:        uuid.New(),
		Username:  "draperez",
		Email:     "perez@example.com",
		FirstName: "Ana",
		LastName:  "Perez",
	}
	require.NoError(t, h.providerRepo.Create(context.Background(), nil, h.provider))

	return h
}

// openDay declares a working weekday with the given HH:MM ranges.
func (h *harness) openDay(t *testing.T, day string, ranges ...[2]string) {
	t.Helper()
	ws := &entity.WorkSchedule{ProviderID: h.provider.ID, DayOfWeek: day, IsWorkingDay: true}
	require.NoError(t, h.workScheduleRepo.UpsertDay(context.Background(), nil, ws))
	for _, r := range ranges {
		require.NoError(t, h.workScheduleRepo.CreateRange(context.Background(), nil, &entity.AvailableTimeRange{
			WorkScheduleID: ws.ID,
			ProviderID:     h.provider.ID,
			StartTime:      r[0] + ":00",
			EndTime:        r[1] + ":00",
			IsAvailable:    true,
		}))
	}
}

func (h *harness) providerCtx() context.Context {
	return middleware.WithProvider(context.Background(), h.provider.ID, h.provider.Email, "tid")
}

func (h *harness) appointments() AppointmentUsecase {
	return NewAppointmentUsecase(h.db, h.log, h.policy, h.providerRepo, h.patientRepo, h.appointmentRepo, h.catalogRepo,
		h.workScheduleRepo, h.unavailabilityRepo, h.auth, h.audit, h.cache, h.notifier, h.metrics)
}

func (h *harness) cancellations() CancellationUsecase {
	return NewCancellationUsecase(h.db, h.log, h.policy, h.appointmentRepo, h.auth, h.audit, h.cache, h.notifier, h.metrics)
}

func (h *harness) availableTimes() AvailabilityUsecase {
	return NewAvailabilityUsecase(h.db, h.log, h.policy, h.providerRepo, h.workScheduleRepo, h.unavailabilityRepo, h.appointmentRepo, h.cache)
}

func (h *harness) schedules() WorkScheduleUsecase {
	return NewWorkScheduleUsecase(h.db, h.log, h.policy, h.workScheduleRepo, h.appointmentRepo, h.audit, h.cache)
}

func (h *harness) unavailability() UnavailabilityUsecase {
	return NewUnavailabilityUsecase(h.db, h.log, h.policy, h.unavailabilityRepo, h.audit, h.cache)
}

func (h *harness) expectCommit() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) expectRollback() {
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
}

func (h *harness) verify(t *testing.T) {
	t.Helper()
	h.notifier.Wait()
	require.NoError(t, h.mock.ExpectationsWereMet())
}

// counter reads one labelled counter value from the harness registry.
func (h *harness) counter(name, label, value string) float64 {
	families, err := h.registry.Gather()
	if err != nil {
		return 0
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := availability.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// blindBookings hides booked times from slot derivation so the insert is
// the only guard left.
type blindBookings struct {
	*fakeAppointmentRepo
}

func (blindBookings) ListBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error) {
	return nil, nil
}
