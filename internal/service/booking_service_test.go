package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_SingleSlotMonday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.doctors.Upsert(ctx, &doctor.Doctor{
		ID:           "d3",
		FirstName:    "Lena",
		LastName:     "Shah",
		WorkingHours: doctor.WorkingHours{domain.Monday: {Start: clockPtr("09:00"), End: clockPtr("09:30")}},
		SlotDuration: 30,
	}))

	first, second := patient("first@example.com"), patient("second@example.com")
	date := mustDate(t, monday)
	nine := domain.MustParseClock("09:00")

	a := f.book(t, first, "d3", monday, "09:00")
	assert.Equal(t, appointment.StatusPending, a.Status)
	assert.Equal(t, "first@example.com", a.PatientID)
	assert.Equal(t, "Lena Shah", a.DoctorName)
	assert.Equal(t, appointment.DefaultType, a.Type)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	free, err := f.bookings.IsSlotFree(ctx, "d3", date, nine)
	require.NoError(t, err)
	assert.False(t, free)

	_, err = f.bookings.Book(ctx, bookCmd(second, "d3", monday, "09:00"), second)
	require.ErrorIs(t, err, appointment.ErrAppointmentConflict)

	_, err = f.bookings.Update(ctx, a.ID, first, &appointment.UpdateCommand{Action: "cancel"})
	require.NoError(t, err)

	free, err = f.bookings.IsSlotFree(ctx, "d3", date, nine)
	require.NoError(t, err)
	assert.True(t, free)

	b := f.book(t, second, "d3", monday, "09:00")
	assert.Equal(t, appointment.StatusPending, b.Status)

	all, err := f.appointments.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Equal(t, []events.Type{
		events.AppointmentBooked,
		events.AppointmentCancelled,
		events.AppointmentBooked,
	}, f.publisher.types())
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := patient("maya@example.com")

	t.Run("every missing field is reported", func(t *testing.T) {
		_, err := f.bookings.Book(ctx, &appointment.BookCommand{}, p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 4)
	})

	t.Run("malformed date and time", func(t *testing.T) {
		_, err := f.bookings.Book(ctx, bookCmd(p, "d1", "15/01/2024", "9am"), p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 2)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := f.bookings.Book(ctx, bookCmd(p, "nobody", monday, "09:00"), p)
		assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)
	})

	t.Run("time between slots", func(t *testing.T) {
		_, err := f.bookings.Book(ctx, bookCmd(p, "d1", monday, "09:15"), p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, doctor.ErrNotBookable)
	})

	t.Run("doctor not working that day", func(t *testing.T) {
		_, err := f.bookings.Book(ctx, bookCmd(p, "d1", "2024-01-16", "09:00"), p)
		assert.ErrorIs(t, err, doctor.ErrNotBookable)
	})

	t.Run("only patients book", func(t *testing.T) {
		_, err := f.bookings.Book(ctx, bookCmd(p, "d1", monday, "09:00"), doctorActor("d1"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	all, err := f.appointments.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBook_ConcurrentRequestsForOneSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		booked    int
		conflicts int
		other     []error
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := patient(fmt.Sprintf("p%d@example.com", i))
			_, err := f.bookings.Book(ctx, bookCmd(p, "d1", monday, "09:30"), p)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, appointment.ErrAppointmentConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, booked)
	assert.Equal(t, n-1, conflicts)

	all, err := f.appointments.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBook_SameTimeDifferentDoctorOrDay(t *testing.T) {
	f := newFixture(t)
	p := patient("maya@example.com")

	f.book(t, p, "d1", monday, "09:00")
	f.book(t, p, "d2", monday, "09:00")
	f.book(t, p, "d1", "2024-01-22", "09:00")
}

func TestUpdate_Reschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the appointment and frees the old slot", func(t *testing.T) {
		f := newFixture(t)
		p := patient("maya@example.com")
		a := f.book(t, p, "d1", monday, "09:00")

		got, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{
			Action: " Reschedule ", NewDate: "2024-01-17", NewTime: "15:30",
		})
		require.NoError(t, err)
		assert.Equal(t, "2024-01-17", got.Date.String())
		assert.Equal(t, "15:30", got.Time.String())
		assert.True(t, got.UpdatedAt.After(a.UpdatedAt) || got.UpdatedAt.Equal(a.UpdatedAt))

		free, err := f.bookings.IsSlotFree(ctx, "d1", mustDate(t, monday), domain.MustParseClock("09:00"))
		require.NoError(t, err)
		assert.True(t, free)
	})

	t.Run("onto another live appointment", func(t *testing.T) {
		f := newFixture(t)
		p, other := patient("maya@example.com"), patient("omar@example.com")
		a := f.book(t, p, "d1", monday, "09:00")
		f.book(t, other, "d1", monday, "09:30")

		_, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{
			Action: "reschedule", NewDate: monday, NewTime: "09:30",
		})
		require.ErrorIs(t, err, appointment.ErrAppointmentConflict)

		stored, err := f.appointments.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "09:00", stored.Time.String())
		assert.Equal(t, a.UpdatedAt, stored.UpdatedAt)
	})

	t.Run("onto its own slot", func(t *testing.T) {
		f := newFixture(t)
		p := patient("maya@example.com")
		a := f.book(t, p, "d1", monday, "09:00")

		got, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{
			Action: "reschedule", NewDate: monday, NewTime: "09:00",
		})
		require.NoError(t, err)
		assert.Equal(t, "09:00", got.Time.String())
	})

	t.Run("onto a cancelled appointment's slot", func(t *testing.T) {
		f := newFixture(t)
		p, other := patient("maya@example.com"), patient("omar@example.com")
		a := f.book(t, p, "d1", monday, "09:00")
		b := f.book(t, other, "d1", monday, "09:30")
		_, err := f.bookings.Update(ctx, b.ID, other, &appointment.UpdateCommand{Action: "cancel"})
		require.NoError(t, err)

		_, err = f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{
			Action: "reschedule", NewDate: monday, NewTime: "09:30",
		})
		assert.NoError(t, err)
	})

	t.Run("target required", func(t *testing.T) {
		f := newFixture(t)
		p := patient("maya@example.com")
		a := f.book(t, p, "d1", monday, "09:00")

		_, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{Action: "reschedule", NewDate: monday})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, appointment.ErrRescheduleTarget)
	})

	t.Run("target outside working hours", func(t *testing.T) {
		f := newFixture(t)
		p := patient("maya@example.com")
		a := f.book(t, p, "d1", monday, "09:00")

		_, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{
			Action: "reschedule", NewDate: monday, NewTime: "18:00",
		})
		assert.ErrorIs(t, err, doctor.ErrNotBookable)
	})
}

func TestUpdate_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")
	a := f.book(t, p, "d1", monday, "09:00")

	unchanged := func(t *testing.T) {
		t.Helper()
		stored, err := f.appointments.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Status, stored.Status)
		assert.Equal(t, a.Time, stored.Time)
		assert.Equal(t, a.UpdatedAt, stored.UpdatedAt)
	}

	t.Run("unknown action", func(t *testing.T) {
		_, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{Action: "archive"})
		require.ErrorIs(t, err, appointment.ErrInvalidAction)
		unchanged(t)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.bookings.Update(ctx, uuid.New(), p, &appointment.UpdateCommand{Action: "cancel"})
		assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	})

	t.Run("another patient", func(t *testing.T) {
		other := patient("omar@example.com")
		_, err := f.bookings.Update(ctx, a.ID, other, &appointment.UpdateCommand{Action: "cancel"})
		require.ErrorIs(t, err, ErrForbidden)
		unchanged(t)
	})

	t.Run("owner email is case-insensitive", func(t *testing.T) {
		shouting := patient("MAYA@Example.com")
		notes := "bring reports"
		got, err := f.bookings.Update(ctx, a.ID, shouting, &appointment.UpdateCommand{Action: "update", Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, got.Notes)
		a = got
	})
}

func TestUpdate_NotesOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")
	a := f.book(t, p, "d1", monday, "09:00")

	notes := "fasting"
	got, err := f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{Action: "UPDATE", Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "fasting", got.Notes)
	assert.Equal(t, a.Time, got.Time)
	assert.Equal(t, appointment.StatusPending, got.Status)

	got, err = f.bookings.Update(ctx, a.ID, p, &appointment.UpdateCommand{Action: "update"})
	require.NoError(t, err)
	assert.Equal(t, "fasting", got.Notes)
}

func TestUpdate_TerminalAppointment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")

	cancelled := f.book(t, p, "d1", monday, "09:00")
	_, err := f.bookings.Update(ctx, cancelled.ID, p, &appointment.UpdateCommand{Action: "cancel"})
	require.NoError(t, err)

	completed := f.book(t, p, "d1", monday, "09:30")
	f.complete(t, completed)

	for _, id := range []uuid.UUID{cancelled.ID, completed.ID} {
		for _, action := range []string{"cancel", "update", "archive"} {
			_, err := f.bookings.Update(ctx, id, p, &appointment.UpdateCommand{
				Action: action, NewDate: monday, NewTime: "09:00",
			})
			assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition, action)
		}
		_, err := f.bookings.Update(ctx, id, p, &appointment.UpdateCommand{
			Action: "reschedule", NewDate: monday, NewTime: "09:00",
		})
		assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)
	}
}

func TestConfirmAndComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")
	a := f.book(t, p, "d1", monday, "09:00")

	_, err := f.bookings.Confirm(ctx, a.ID, doctorActor("d2"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.Confirm(ctx, a.ID, p)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.Complete(ctx, a.ID, doctorActor("d1"))
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)

	got, err := f.bookings.Confirm(ctx, a.ID, doctorActor("d1"))
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, got.Status)

	// Confirmed still holds the slot.
	free, err := f.bookings.IsSlotFree(ctx, "d1", a.Date, a.Time)
	require.NoError(t, err)
	assert.False(t, free)

	got, err = f.bookings.Complete(ctx, a.ID, admin())
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, got.Status)

	free, err = f.bookings.IsSlotFree(ctx, "d1", a.Date, a.Time)
	require.NoError(t, err)
	assert.True(t, free)

	assert.Equal(t, []events.Type{
		events.AppointmentBooked,
		events.AppointmentConfirmed,
		events.AppointmentCompleted,
	}, f.publisher.types())
}

func TestGet_Access(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")
	a := f.book(t, p, "d1", monday, "09:00")

	for name, actor := range map[string]Actor{
		"owner":         p,
		"owning doctor": doctorActor("d1"),
		"administrator": admin(),
	} {
		got, err := f.bookings.Get(ctx, a.ID, actor)
		require.NoError(t, err, name)
		assert.Equal(t, a.ID, got.ID, name)
	}

	for name, actor := range map[string]Actor{
		"another patient": patient("omar@example.com"),
		"another doctor":  doctorActor("d2"),
	} {
		_, err := f.bookings.Get(ctx, a.ID, actor)
		assert.ErrorIs(t, err, ErrForbidden, name)
	}
}

func TestListForPatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.bookings.now = func() time.Time { return time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC) }

	p := patient("maya@example.com")
	pastLive := f.book(t, p, "d1", monday, "09:00")
	futureLive := f.book(t, p, "d1", "2024-01-22", "09:30")
	futureCancelled := f.book(t, p, "d1", "2024-01-22", "09:00")
	_, err := f.bookings.Update(ctx, futureCancelled.ID, p, &appointment.UpdateCommand{Action: "cancel"})
	require.NoError(t, err)
	f.book(t, patient("omar@example.com"), "d2", monday, "10:00")

	ids := func(page *appointment.PagedAppointments) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(page.Appointments))
		for _, a := range page.Appointments {
			out = append(out, a.ID)
		}
		return out
	}

	all, err := f.bookings.ListForPatient(ctx, p, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pastLive.ID, futureCancelled.ID, futureLive.ID}, ids(all))
	assert.Equal(t, 3, all.TotalCount)
	assert.Equal(t, 1, all.TotalPages)

	upcoming, err := f.bookings.ListForPatient(ctx, p, "Upcoming", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{futureLive.ID}, ids(upcoming))

	past, err := f.bookings.ListForPatient(ctx, p, "past", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pastLive.ID, futureCancelled.ID}, ids(past))

	paged, err := f.bookings.ListForPatient(ctx, p, "all", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{futureLive.ID}, ids(paged))
	assert.Equal(t, 2, paged.TotalPages)

	_, err = f.bookings.ListForPatient(ctx, p, "someday", 1, 20)
	assert.ErrorIs(t, err, appointment.ErrInvalidScope)
}

func TestListForPatient_PageBeyondEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")
	f.book(t, p, "d1", monday, "09:00")
	f.book(t, p, "d1", monday, "09:30")

	for _, page := range []int{3, math.MaxInt64 / 10, math.MaxInt} {
		var got *appointment.PagedAppointments
		require.NotPanics(t, func() {
			var err error
			got, err = f.bookings.ListForPatient(ctx, p, "all", page, 1)
			require.NoError(t, err)
		}, "page %d", page)
		assert.Empty(t, got.Appointments)
		assert.Equal(t, 2, got.TotalCount)
		assert.Equal(t, 2, got.TotalPages)
	}
}

func TestPaginate_EmptyList(t *testing.T) {
	got := paginate(nil, 1, 20)
	assert.Empty(t, got.Appointments)
	assert.Zero(t, got.TotalPages)

	got = paginate(nil, math.MaxInt, maxPageSize)
	assert.Empty(t, got.Appointments)
}

func TestListForDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.bookings.now = func() time.Time { return time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC) }

	f.book(t, patient("a@example.com"), "d1", monday, "09:30")
	f.book(t, patient("b@example.com"), "d1", monday, "09:00")
	f.book(t, patient("c@example.com"), "d1", "2024-01-22", "09:00")

	today, err := f.bookings.ListForDoctor(ctx, doctorActor("d1"), "d1", "")
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "09:00", today[0].Time.String())
	assert.Equal(t, "09:30", today[1].Time.String())

	next, err := f.bookings.ListForDoctor(ctx, admin(), "d1", "2024-01-22")
	require.NoError(t, err)
	assert.Len(t, next, 1)

	_, err = f.bookings.ListForDoctor(ctx, doctorActor("d2"), "d1", "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.ListForDoctor(ctx, admin(), "d1", "next monday")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBook_AuditTrail(t *testing.T) {
	f := newFixture(t)
	p := patient("maya@example.com")
	a := f.book(t, p, "d1", monday, "09:00")

	f.auditSvc.Shutdown(time.Second)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreate, entries[0].Action)
	assert.Equal(t, "appointment", entries[0].ResourceType)
	assert.Equal(t, a.ID.String(), entries[0].ResourceID)
}
