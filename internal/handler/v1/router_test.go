package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/storage/memory"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/lock"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func clockPtr(s string) *domain.Clock {
	c := domain.MustParseClock(s)
	return &c
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg)

	doctors := memory.NewDoctorRepository(&doctor.Doctor{
		ID:           "d1",
		FirstName:    "Asha",
		LastName:     "Menon",
		Department:   "Cardiology",
		Specialty:    "Interventional",
		WorkingHours: doctor.WorkingHours{domain.Monday: {Start: clockPtr("09:00"), End: clockPtr("10:00")}},
		SlotDuration: 30,
	})
	appointments := memory.NewAppointmentRepository()

	auditSvc := service.NewAuditService(memory.NewAuditRepository(), collector, log)
	t.Cleanup(func() { auditSvc.Shutdown(time.Second) })

	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-that-is-long-enough-for-hs256",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medicare-test",
	})

	bookings := service.NewBookingService(appointments, doctors, lock.NewLocal(), events.Noop{}, auditSvc, collector,
		service.BookingConfig{LockTimeout: time.Second, PublishTimeout: time.Second}, log)

	router := NewRouter(Services{
		Auth:         service.NewAuthService(memory.NewUserRepository(), doctors, jwtManager, auditSvc, log),
		Directory:    service.NewDirectoryService(doctors, log),
		Availability: service.NewAvailabilityService(doctors, appointments, collector, log),
		Bookings:     bookings,
		Feedback:     service.NewFeedbackService(memory.NewFeedbackRepository(), bookings, auditSvc, log),
	}, RouterConfig{
		JWT:       jwtManager,
		Collector: collector,
		Gatherer:  reg,
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000, AuthRequestsPerMinute: 1000},
		Log:       log,
	})

	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Data
}

// signIn registers an account and returns its access token.
func (s *testServer) signIn(role, email, doctorID string) string {
	s.t.Helper()

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"role":       role,
		"first_name": "Test",
		"last_name":  "User",
		"email":      email,
		"password":   "correct horse",
		"doctor_id":  doctorID,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"role":     role,
		"email":    email,
		"password": "correct horse",
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[domain.TokenPair](s.t, w).AccessToken
}

type appointmentBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

func TestAppointmentLifecycle(t *testing.T) {
	s := newTestServer(t)
	maya := s.signIn("patient", "maya@example.com", "")
	omar := s.signIn("patient", "omar@example.com", "")
	doc := s.signIn("doctor", "asha@clinic.test", "d1")

	w := s.do(http.MethodGet, "/api/v1/doctors/d1/slots?date=2024-01-15", maya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	day := decode[service.DaySlots](t, w)
	require.Len(t, day.Slots, 2)
	assert.True(t, day.Slots[0].Available)

	booking := map[string]string{"doctor_id": "d1", "date": "2024-01-15", "time": "09:00"}
	w = s.do(http.MethodPost, "/api/v1/appointments", maya, booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booked := decode[appointmentBody](t, w)
	assert.Equal(t, "pending", booked.Status)

	w = s.do(http.MethodPost, "/api/v1/appointments", omar, booking)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/v1/doctors/d1/slots?date=2024-01-15", maya, nil)
	day = decode[service.DaySlots](t, w)
	assert.False(t, day.Slots[0].Available)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID, omar, map[string]string{"action": "cancel"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID, maya, map[string]string{"action": "archive"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/appointments/"+booked.ID+"/confirm", maya, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/appointments/"+booked.ID+"/confirm", doc, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode[appointmentBody](t, w).Status)

	w = s.do(http.MethodGet, "/api/v1/doctors/d1/schedule?date=2024-01-15", doc, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]appointmentBody](t, w), 1)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID, maya, map[string]string{"action": "cancel"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[appointmentBody](t, w).Status)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID, maya, map[string]string{"action": "cancel"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/v1/appointments", omar, booking)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAppointmentErrors(t *testing.T) {
	s := newTestServer(t)
	maya := s.signIn("patient", "maya@example.com", "")

	w := s.do(http.MethodPost, "/api/v1/appointments", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/appointments", maya, map[string]string{"doctor_id": "d1", "date": "15-01-2024", "time": "nine"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var verr ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verr))
	assert.Len(t, verr.Fields, 2)

	w = s.do(http.MethodPost, "/api/v1/appointments", maya, map[string]string{"doctor_id": "nobody", "date": "2024-01-15", "time": "09:00"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/appointments/not-a-uuid", maya, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/appointments?scope=someday", maya, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectoryAndHealth(t *testing.T) {
	s := newTestServer(t)
	maya := s.signIn("patient", "maya@example.com", "")

	w := s.do(http.MethodGet, "/api/v1/departments", maya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []doctor.Department{{Name: "Cardiology", Specialties: []string{"Interventional"}}},
		decode[[]doctor.Department](t, w))

	w = s.do(http.MethodGet, "/api/v1/doctors?department=all&specialty=interventional", maya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]doctor.Doctor](t, w), 1)

	w = s.do(http.MethodGet, "/api/v1/doctors/nobody", maya, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	maya := s.signIn("patient", "maya@example.com", "")

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"role": "patient", "first_name": "M", "last_name": "R", "email": "maya@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"role": "doctor", "email": "maya@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/me", maya, map[string]string{"mobile": "12345"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/me", maya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.Equal(t, "12345", profile["mobile"])
	assert.NotContains(t, profile, "password_hash")
}
