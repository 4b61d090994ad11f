package usecase

import (
	"context"
	"sync"
	"testing"

	"clinic-booking/internal/delivery/dto"
	"clinic-booking/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func bookingRequest(h *harness, phone, date, at string) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		ProviderID:      h.provider.Username,
		FirstName:       "Juan",
		LastName:        "Gomez",
		PhoneNumber:     phone,
		AppointmentDate: date,
		AppointmentTime: at,
		VisitTypeID:     entity.VisitTypeConsult,
		ConsultTypeID:   intPtr(1),
		HealthInsurance: "OSDE",
	}
}

// ----------------------------------------------------------------------------
// Available times
// ----------------------------------------------------------------------------

func TestGetAvailableTimes_OpenMonday(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})

	resp, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", resp.Date)
	assert.Equal(t, []string{"09:00", "09:20", "09:40"}, resp.Times)
}

func TestGetAvailableTimes_ExcludesScheduledAppointment(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()

	_, err := h.appointments().Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:20"))
	require.NoError(t, err)

	resp, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.ID.String(), "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:40"}, resp.Times)
	h.verify(t)
}

func TestGetAvailableTimes_BlockedFrame(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()

	_, err := h.unavailability().AddTimeFrame(h.providerCtx(), &dto.CreateTimeFrameRequest{
		Date: "2025-06-02", StartTime: "09:15", EndTime: "09:45",
	})
	require.NoError(t, err)

	resp, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, resp.Times)
	h.verify(t)
}

func TestGetAvailableTimes_UnavailableDayOverridesSchedule(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()

	// Warm the cache first so the override must invalidate it.
	before, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, before.Times, 3)

	_, err = h.unavailability().AddDay(h.providerCtx(), &dto.CreateUnavailableDayRequest{Date: "2025-06-02", Reason: "Congreso"})
	require.NoError(t, err)

	resp, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, resp.Times)
	assert.NotNil(t, resp.Times)
	h.verify(t)
}

func TestGetAvailableTimes_TodayHidesElapsedSlots(t *testing.T) {
	h := newHarness(t)
	// The harness clock sits at Friday 09:00 in the clinic.
	h.openDay(t, "Friday", [2]string{"08:00", "10:00"})

	resp, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-05-30")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:20", "09:40"}, resp.Times)

	// Every listed slot is accepted by the booking path.
	h.expectCommit()
	_, err = h.appointments().Create(context.Background(), bookingRequest(h, "5491155550001", "2025-05-30", resp.Times[0]))
	require.NoError(t, err)

	_, err = h.appointments().Create(context.Background(), bookingRequest(h, "5491155550002", "2025-05-30", "09:00"))
	assert.ErrorIs(t, err, ErrPastDate)
	h.verify(t)
}

func TestGetAvailableTimes_DateBounds(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	uc := h.availableTimes()

	past, err := uc.GetAvailableTimes(context.Background(), h.provider.Username, "2025-05-26")
	require.NoError(t, err)
	assert.Empty(t, past.Times)

	_, err = uc.GetAvailableTimes(context.Background(), h.provider.Username, "2025-07-07")
	assert.ErrorIs(t, err, ErrBeyondHorizon)

	_, err = uc.GetAvailableTimes(context.Background(), h.provider.Username, "02/06/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = uc.GetAvailableTimes(context.Background(), "nobody", "2025-06-02")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestGetAvailableTimes_ClosedWeekday(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})

	// 2025-06-03 is a Tuesday with no schedule row.
	resp, err := h.availableTimes().GetAvailableTimes(context.Background(), h.provider.Username, "2025-06-03")
	require.NoError(t, err)
	assert.Empty(t, resp.Times)
}

func TestGetWorkSchedule_ListsWorkingDaysOnly(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	require.NoError(t, h.workScheduleRepo.UpsertDay(context.Background(), nil, &entity.WorkSchedule{
		ProviderID: h.provider.ID, DayOfWeek: "Sunday", IsWorkingDay: false,
	}))

	resp, err := h.availableTimes().GetWorkSchedule(context.Background(), h.provider.Username)
	require.NoError(t, err)
	require.Len(t, resp.Days, 1)
	assert.Equal(t, "Monday", resp.Days[0].DayOfWeek)
	require.Len(t, resp.Days[0].Ranges, 1)
	assert.Equal(t, "09:00", resp.Days[0].Ranges[0].StartTime)
}

// ----------------------------------------------------------------------------
// Create
// ----------------------------------------------------------------------------

func TestCreate_BooksSlotAndNotifies(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()

	resp, err := h.appointments().Create(context.Background(), bookingRequest(h, "+54 9 11 5555-0001", "2025-06-02", "09:00"))
	require.NoError(t, err)
	h.verify(t)

	assert.NotEmpty(t, resp.CancellationToken)
	assert.False(t, resp.IsExistingPatient)
	require.NotNil(t, resp.Deposit)
	assert.Equal(t, "5000.00", resp.Deposit.StringFixed(2))
	assert.Equal(t, "scheduled", resp.Appointment.Status)
	assert.Equal(t, "09:00", resp.Appointment.AppointmentTime)

	claims, err := h.auth.Verify(resp.CancellationToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Appointment.ID, claims.AppointmentID)

	assert.Equal(t, []string{"5491155550001"}, h.whatsapp.recipients())
	assert.Equal(t, 1, h.email.count())
	assert.Contains(t, h.store.auditActions(), entity.AuditActionAppointmentCreate)

	stored, err := h.appointmentRepo.FindByID(context.Background(), nil, resp.Appointment.ID)
	require.NoError(t, err)
	assert.True(t, stored.WhatsAppSent)
	assert.Equal(t, resp.CancellationToken, stored.CancellationToken)
	assert.Equal(t, 1.0, h.counter("clinic_booking_appointments_total", "outcome", "created"))
}

func TestCreate_SamePhoneUpdatesOnePatient(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()
	h.expectCommit()
	uc := h.appointments()

	first, err := uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	require.NoError(t, err)
	assert.False(t, first.IsExistingPatient)

	req := bookingRequest(h, "+54 9 11 5555 0001", "2025-06-02", "09:40")
	req.FirstName, req.LastName = "Juana", "Gómez"
	second, err := uc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.IsExistingPatient)

	assert.Len(t, h.store.patients, 1)
	assert.Equal(t, first.Appointment.Patient.ID, second.Appointment.Patient.ID)
	assert.Equal(t, "Juana", h.store.patients["5491155550001"].FirstName)
	h.verify(t)
}

func TestCreate_SamePatientSameSlotIsDuplicate(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()
	uc := h.appointments()

	_, err := uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	require.NoError(t, err)

	// Rejected before any transaction is opened.
	_, err = uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	assert.ErrorIs(t, err, ErrDuplicateBooking)
	h.verify(t)
}

func TestCreate_ConcurrentRequestsForOneSlot(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()
	h.expectRollback()
	uc := h.appointments()

	phones := []string{"5491155550001", "5491155550002"}
	results := make([]*dto.CreateAppointmentResponse, len(phones))
	errs := make([]error, len(phones))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, phone := range phones {
		wg.Add(1)
		go func(i int, phone string) {
			defer wg.Done()
			<-start
			results[i], errs[i] = uc.Create(context.Background(), bookingRequest(h, phone, "2025-06-02", "09:00"))
		}(i, phone)
	}
	close(start)
	wg.Wait()

	var won, lost int
	for i := range phones {
		if errs[i] == nil {
			won++
			assert.NotEmpty(t, results[i].Appointment.ID)
			continue
		}
		lost++
		assert.ErrorIs(t, errs[i], ErrDuplicateBooking)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	scheduled := 0
	for _, a := range h.store.appointments {
		if a.IsScheduled() {
			scheduled++
		}
	}
	assert.Equal(t, 1, scheduled)
	h.verify(t)
}

func TestCreate_InsertConflictMapsToSlotTaken(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectRollback()

	// A row that the live derivation cannot see yet, as if committed by a
	// concurrent transaction after our read.
	err := h.appointmentRepo.InsertScheduled(context.Background(), nil, &entity.Appointment{
		ProviderID:      h.provider.ID,
		AppointmentDate: mustDate(t, "2025-06-02"),
		AppointmentTime: "09:00",
		Status:          entity.AppointmentStatusScheduled,
	})
	require.NoError(t, err)
	uc := h.appointments().(*appointmentUsecase)
	uc.loader = newSlotLoader(h.workScheduleRepo, h.unavailabilityRepo, blindBookings{h.appointmentRepo})

	_, err = uc.Create(context.Background(), bookingRequest(h, "5491155550009", "2025-06-02", "09:00"))
	assert.ErrorIs(t, err, ErrSlotNoLongerAvailable)
	h.verify(t)
}

func TestCreate_RejectsSlotsNotOnTheGrid(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectRollback()
	h.expectRollback()
	uc := h.appointments()

	_, err := uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:10"))
	assert.ErrorIs(t, err, ErrSlotNotOffered)

	// 2025-06-03 is a closed Tuesday.
	_, err = uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-03", "09:00"))
	assert.ErrorIs(t, err, ErrSlotNotOffered)
	h.verify(t)
}

func TestCreate_ValidatesBeforeTouchingStorage(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	uc := h.appointments()

	tests := []struct {
		name   string
		mutate func(*dto.CreateAppointmentRequest)
		want   error
	}{
		{"past date", func(r *dto.CreateAppointmentRequest) { r.AppointmentDate = "2025-05-26" }, ErrPastDate},
		{"earlier today", func(r *dto.CreateAppointmentRequest) { r.AppointmentDate, r.AppointmentTime = "2025-05-30", "08:00" }, ErrPastDate},
		{"beyond horizon", func(r *dto.CreateAppointmentRequest) { r.AppointmentDate = "2025-07-07" }, ErrBeyondHorizon},
		{"bad clock", func(r *dto.CreateAppointmentRequest) { r.AppointmentTime = "9:00" }, ErrInvalidClock},
		{"consult without subtype", func(r *dto.CreateAppointmentRequest) { r.ConsultTypeID = nil }, ErrInvalidVisitType},
		{"consult with practice", func(r *dto.CreateAppointmentRequest) { r.PracticeTypeID = intPtr(1) }, ErrInvalidVisitType},
		{"practice without subtype", func(r *dto.CreateAppointmentRequest) {
			r.VisitTypeID, r.ConsultTypeID = entity.VisitTypePractice, nil
		}, ErrInvalidVisitType},
		{"unknown consult type", func(r *dto.CreateAppointmentRequest) { r.ConsultTypeID = intPtr(99) }, ErrConsultTypeNotFound},
		{"unknown provider", func(r *dto.CreateAppointmentRequest) { r.ProviderID = "ghost" }, ErrProviderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := bookingRequest(h, "5491155550001", "2025-06-02", "09:00")
			tt.mutate(req)
			_, err := uc.Create(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	h.verify(t)
}

func TestCreate_PracticeDepositComesFromInsurance(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.store.insurances = []entity.HealthInsurance{{ID: 1, Name: entity.PrivatePracticeInsurance}}
	h.store.insurances[0].PracticeDeposit.Valid = true
	h.store.insurances[0].PracticeDeposit.Decimal = mustDecimal(t, "12000")
	h.expectCommit()

	req := bookingRequest(h, "5491155550001", "2025-06-02", "09:00")
	req.VisitTypeID, req.ConsultTypeID, req.PracticeTypeID = entity.VisitTypePractice, nil, intPtr(1)
	req.HealthInsurance = entity.PrivatePracticeInsurance

	resp, err := h.appointments().Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Deposit)
	assert.Equal(t, "12000.00", resp.Deposit.StringFixed(2))
	h.verify(t)
}

func TestCreate_NotificationFailureDoesNotFailBooking(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.whatsapp.err = assert.AnError
	h.expectCommit()

	resp, err := h.appointments().Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	require.NoError(t, err)
	h.verify(t)

	stored, err := h.appointmentRepo.FindByID(context.Background(), nil, resp.Appointment.ID)
	require.NoError(t, err)
	assert.False(t, stored.WhatsAppSent)
}

// ----------------------------------------------------------------------------
// Read views
// ----------------------------------------------------------------------------

func TestGetDetail_RequiresMatchingToken(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()
	h.expectCommit()
	uc := h.appointments()

	a, err := uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	require.NoError(t, err)
	b, err := uc.Create(context.Background(), bookingRequest(h, "5491155550002", "2025-06-02", "09:20"))
	require.NoError(t, err)

	detail, err := uc.GetDetail(context.Background(), a.Appointment.ID, a.CancellationToken)
	require.NoError(t, err)
	assert.True(t, detail.CanCancel)
	assert.Equal(t, a.Appointment.ID, detail.Appointment.ID)

	_, err = uc.GetDetail(context.Background(), a.Appointment.ID, "")
	assert.ErrorIs(t, err, ErrTokenRequired)

	_, err = uc.GetDetail(context.Background(), a.Appointment.ID, b.CancellationToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = uc.GetDetail(context.Background(), a.Appointment.ID, "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	h.verify(t)
}

func TestListForProvider_FiltersByDate(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()
	h.expectCommit()
	uc := h.appointments()

	_, err := uc.Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	require.NoError(t, err)
	_, err = uc.Create(context.Background(), bookingRequest(h, "5491155550002", "2025-06-09", "09:00"))
	require.NoError(t, err)

	_, err = uc.ListForProvider(context.Background(), &dto.AppointmentListQuery{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	all, err := uc.ListForProvider(h.providerCtx(), &dto.AppointmentListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	one, err := uc.ListForProvider(h.providerCtx(), &dto.AppointmentListQuery{Date: "2025-06-09", From: "2025-06-01"})
	require.NoError(t, err)
	require.Len(t, one.Appointments, 1)
	assert.Equal(t, "2025-06-09", one.Appointments[0].AppointmentDate)
	h.verify(t)
}

func TestGetCalendar_MonthView(t *testing.T) {
	h := newHarness(t)
	h.openDay(t, "Monday", [2]string{"09:00", "10:00"})
	h.expectCommit()
	h.expectCommit()

	_, err := h.appointments().Create(context.Background(), bookingRequest(h, "5491155550001", "2025-06-02", "09:00"))
	require.NoError(t, err)
	_, err = h.unavailability().AddDay(h.providerCtx(), &dto.CreateUnavailableDayRequest{Date: "2025-06-16"})
	require.NoError(t, err)

	cal, err := h.appointments().GetCalendar(h.providerCtx(), 2025, 6)
	require.NoError(t, err)
	require.Len(t, cal.Days, 30)

	byDate := make(map[string]dto.CalendarDay, len(cal.Days))
	for _, d := range cal.Days {
		byDate[d.Date] = d
	}
	assert.Len(t, byDate["2025-06-02"].Appointments, 1)
	assert.True(t, byDate["2025-06-02"].WorkingDay)
	assert.True(t, byDate["2025-06-16"].Unavailable)
	assert.False(t, byDate["2025-06-03"].WorkingDay)

	_, err = h.appointments().GetCalendar(h.providerCtx(), 2025, 13)
	assert.ErrorIs(t, err, ErrInvalidDate)
	h.verify(t)
}
