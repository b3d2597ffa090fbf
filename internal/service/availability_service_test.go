package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaySlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := patient("maya@example.com")

	f.book(t, p, "d1", monday, "09:30")
	cancelled := f.book(t, p, "d1", monday, "09:00")
	_, err := f.bookings.Update(ctx, cancelled.ID, p, &appointment.UpdateCommand{Action: "cancel"})
	require.NoError(t, err)

	day, err := f.availability.DaySlots(ctx, "d1", monday)
	require.NoError(t, err)
	assert.Equal(t, "Asha Menon", day.DoctorName)
	assert.Equal(t, domain.Monday, day.Weekday)
	require.NotNil(t, day.WorkingHours)
	assert.Equal(t, []SlotView{
		{Time: domain.MustParseClock("09:00"), DurationMinutes: 30, Available: true},
		{Time: domain.MustParseClock("09:30"), DurationMinutes: 30, Available: false},
	}, day.Slots)
}

func TestDaySlots_NotWorking(t *testing.T) {
	f := newFixture(t)

	day, err := f.availability.DaySlots(context.Background(), "d1", "2024-01-16")
	require.NoError(t, err)
	assert.Nil(t, day.WorkingHours)
	assert.NotNil(t, day.Slots)
	assert.Empty(t, day.Slots)
}

func TestDaySlots_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.availability.DaySlots(ctx, "", "2024-13-01")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	_, err = f.availability.DaySlots(ctx, "nobody", monday)
	assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.doctors.Upsert(ctx, &doctor.Doctor{ID: "d4", Department: "Cardiology", Specialty: "Electrophysiology"}))

	depts, err := f.directory.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []doctor.Department{
		{Name: "Cardiology", Specialties: []string{"Electrophysiology", "Interventional"}},
		{Name: "Neurology", Specialties: []string{"Epilepsy"}},
	}, depts)

	found, err := f.directory.Search(ctx, "cardiology", "all")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.directory.Search(ctx, "", "epilepsy")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "d2", found[0].ID)

	_, err = f.directory.Doctor(ctx, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.directory.Doctor(ctx, "nobody")
	assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)
}

func TestCachedDoctors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cached := NewCachedDoctors(f.doctors, 10, time.Minute, f.collector)

	d, err := cached.GetByID(ctx, "d1")
	require.NoError(t, err)
	d.FirstName = "mutated"

	again, err := cached.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", again.FirstName)

	renamed := cardiologist()
	renamed.FirstName = "Anita"
	require.NoError(t, cached.Upsert(ctx, renamed))

	again, err = cached.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Anita", again.FirstName)

	_, err = cached.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, doctor.ErrDoctorNotFound)

	disabled := NewCachedDoctors(f.doctors, 0, time.Minute, f.collector)
	_, err = disabled.GetByID(ctx, "d2")
	assert.NoError(t, err)
}
