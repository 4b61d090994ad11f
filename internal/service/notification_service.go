package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinic-booking/internal/availability"
	"clinic-booking/internal/domain/entity"
	"clinic-booking/internal/infrastructure/metrics"
	"clinic-booking/internal/infrastructure/notify"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// Delivery runs after the request has returned
	notificationTimeout = 15 * time.Second

	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"

	KindConfirmation         = "confirmation"
	KindReminder             = "reminder"
	KindProviderCancellation = "provider_cancellation"
	KindNewBooking           = "new_booking"
	KindPatientCancellation  = "patient_cancellation"
)

// =============================================================================
// Types
// =============================================================================

// AppointmentMessage is everything a notification needs about one appointment.
type AppointmentMessage struct {
	AppointmentID   string
	PatientName     string
	PatientPhone    string
	ProviderName    string
	ProviderEmail   string
	Date            string
	Time            string
	VisitType       string
	SubType         string
	HealthInsurance string
	Deposit         decimal.Decimal
	DetailsURL      string
}

// NotificationService renders and delivers patient WhatsApp messages and
// provider emails. Senders are optional; a nil sender reports ErrNotConfigured.
type NotificationService struct {
	whatsapp notify.MessageSender
	email    notify.EmailSender
	baseURL  string
	log      *logrus.Logger
	metrics  *metrics.BookingMetrics

	wg conc.WaitGroup
}

// =============================================================================
// Constructor
// =============================================================================

func NewNotificationService(whatsapp notify.MessageSender, email notify.EmailSender, baseURL string, log *logrus.Logger, m *metrics.BookingMetrics) *NotificationService {
	return &NotificationService{
		whatsapp: whatsapp,
		email:    email,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
		metrics:  m,
	}
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Go runs fn detached from the request with its own deadline. Panics are
// recovered and logged so a broken template never takes the server down.
func (s *NotificationService) Go(fn func(ctx context.Context)) {
	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorf("Notification task panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		fn(ctx)
	})
}

// Wait blocks until every dispatched notification has finished. Called on shutdown.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// =============================================================================
// Public Methods
// =============================================================================

// BuildMessage gathers the appointment view used by every template.
func (s *NotificationService) BuildMessage(a *entity.Appointment, p *entity.Patient, provider *entity.Provider, deposit decimal.Decimal, token string) AppointmentMessage {
	msg := AppointmentMessage{
		AppointmentID:   a.ID.String(),
		PatientPhone:    p.PhoneNumber,
		PatientName:     p.FullName(),
		Date:            availability.CivilDate(a.AppointmentDate),
		Time:            a.AppointmentTime,
		HealthInsurance: a.HealthInsurance,
		Deposit:         deposit,
		VisitType:       a.VisitType.Name,
	}
	if t, err := availability.NormalizeClock(a.AppointmentTime); err == nil {
		msg.Time = t
	}
	if a.ConsultType != nil {
		msg.SubType = a.ConsultType.Name
	}
	if a.PracticeType != nil {
		msg.SubType = a.PracticeType.Name
	}
	if provider != nil {
		msg.ProviderName = provider.DisplayName()
		msg.ProviderEmail = provider.Email
		msg.DetailsURL = fmt.Sprintf("%s/%s/cita/%s", s.baseURL, provider.Username, a.ID)
		if token != "" {
			msg.DetailsURL += "?token=" + token
		}
	}
	return msg
}

// SendConfirmation sends the booking confirmation to the patient.
func (s *NotificationService) SendConfirmation(ctx context.Context, msg AppointmentMessage) (*notify.SendResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s, tu turno con %s quedó confirmado para el %s a las %s.\n", msg.PatientName, msg.ProviderName, msg.Date, msg.Time)
	fmt.Fprintf(&b, "Tipo de visita: %s", msg.VisitType)
	if msg.SubType != "" {
		fmt.Fprintf(&b, " (%s)", msg.SubType)
	}
	fmt.Fprintf(&b, "\nCobertura: %s\n", msg.HealthInsurance)
	if msg.Deposit.IsPositive() {
		fmt.Fprintf(&b, "Para confirmar el turno se requiere una seña de $%s.\n", msg.Deposit.StringFixed(2))
	}
	if msg.DetailsURL != "" {
		fmt.Fprintf(&b, "Ver o cancelar el turno: %s", msg.DetailsURL)
	}
	return s.sendWhatsApp(ctx, KindConfirmation, msg.PatientPhone, b.String())
}

// SendReminder sends the day-before reminder to the patient.
func (s *NotificationService) SendReminder(ctx context.Context, msg AppointmentMessage) (*notify.SendResult, error) {
	body := fmt.Sprintf("Hola %s, te recordamos tu turno con %s mañana %s a las %s.", msg.PatientName, msg.ProviderName, msg.Date, msg.Time)
	if msg.DetailsURL != "" {
		body += "\nDetalles: " + msg.DetailsURL
	}
	return s.sendWhatsApp(ctx, KindReminder, msg.PatientPhone, body)
}

// SendProviderCancellation tells the patient the provider cancelled the visit.
func (s *NotificationService) SendProviderCancellation(ctx context.Context, msg AppointmentMessage) (*notify.SendResult, error) {
	body := fmt.Sprintf("Hola %s, tu turno del %s a las %s con %s fue cancelado por el consultorio. Podés reservar un nuevo turno cuando quieras.",
		msg.PatientName, msg.Date, msg.Time, msg.ProviderName)
	return s.sendWhatsApp(ctx, KindProviderCancellation, msg.PatientPhone, body)
}

// NotifyProviderNewBooking emails the provider about a new appointment.
func (s *NotificationService) NotifyProviderNewBooking(ctx context.Context, msg AppointmentMessage) error {
	return s.sendEmail(ctx, KindNewBooking, notify.EmailMessage{
		To:      msg.ProviderEmail,
		ToName:  msg.ProviderName,
		Subject: fmt.Sprintf("Nuevo turno: %s %s", msg.Date, msg.Time),
		Body: fmt.Sprintf("Paciente: %s\nTeléfono: %s\nFecha: %s %s\nVisita: %s %s\nCobertura: %s",
			msg.PatientName, msg.PatientPhone, msg.Date, msg.Time, msg.VisitType, msg.SubType, msg.HealthInsurance),
	})
}

// NotifyProviderPatientCancelled emails the provider when a patient cancels.
func (s *NotificationService) NotifyProviderPatientCancelled(ctx context.Context, msg AppointmentMessage) error {
	return s.sendEmail(ctx, KindPatientCancellation, notify.EmailMessage{
		To:      msg.ProviderEmail,
		ToName:  msg.ProviderName,
		Subject: fmt.Sprintf("Turno cancelado: %s %s", msg.Date, msg.Time),
		Body:    fmt.Sprintf("%s (%s) canceló su turno del %s a las %s.", msg.PatientName, msg.PatientPhone, msg.Date, msg.Time),
	})
}

// =============================================================================
// Private Methods
// =============================================================================

func (s *NotificationService) sendWhatsApp(ctx context.Context, kind, to, body string) (*notify.SendResult, error) {
	if s.whatsapp == nil {
		s.metrics.ObserveNotification(ChannelWhatsApp, kind, notify.ErrNotConfigured)
		return nil, notify.ErrNotConfigured
	}
	res, err := s.whatsapp.Send(ctx, to, body)
	s.metrics.ObserveNotification(ChannelWhatsApp, kind, err)
	return res, err
}

func (s *NotificationService) sendEmail(ctx context.Context, kind string, msg notify.EmailMessage) error {
	if s.email == nil || msg.To == "" {
		s.metrics.ObserveNotification(ChannelEmail, kind, notify.ErrNotConfigured)
		return notify.ErrNotConfigured
	}
	err := s.email.Send(ctx, msg)
	s.metrics.ObserveNotification(ChannelEmail, kind, err)
	return err
}
