package holds_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type errorDetail struct {
	Kind      string   `json:"kind"`
	Offenders []string `json:"offenders"`
}

func (e envelope) detail(t *testing.T) errorDetail {
	t.Helper()
	var d errorDetail
	require.NoError(t, json.Unmarshal(e.Errors, &d))
	return d
}

func newTestRouter(f *fixture, sweeper holds.StatsSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	engine := gin.New()
	group := engine.Group("/api/v1/seats")
	holds.SetupHoldRoutes(group, holds.NewController(f.service, sweeper), middleware.JWTAuthWithConfig(cfg))
	return engine
}

func bearer(t *testing.T, actor users.Actor) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": actor.UserID.String(),
		"role":    string(actor.Role),
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, actor *users.Actor, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", bearer(t, *actor))
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestController_RequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	engine := newTestRouter(f, nil)

	w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/seats/reserve", nil, gin.H{
		"eventId": f.event.ID,
		"seatIds": f.seatIDs(0),
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestController_ReserveReleaseFlow(t *testing.T) {
	f := newFixture(t)
	engine := newTestRouter(f, nil)
	actor := customer()

	w, env := doJSON(t, engine, http.MethodPost, "/api/v1/seats/reserve", &actor, gin.H{
		"eventId": f.event.ID,
		"seatIds": f.seatIDs(0, 1),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reserved holds.ReserveResponse
	require.NoError(t, json.Unmarshal(env.Data, &reserved))
	assert.Len(t, reserved.Seats, 2)

	other := customer()
	w, env = doJSON(t, engine, http.MethodPost, "/api/v1/seats/reserve", &other, gin.H{
		"eventId": f.event.ID,
		"seatIds": f.seatIDs(1, 2),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	detail := env.detail(t)
	assert.Equal(t, "conflict", detail.Kind)
	assert.Equal(t, []string{f.seats[1].ID.String()}, detail.Offenders)

	w, _ = doJSON(t, engine, http.MethodPost, "/api/v1/seats/release", &other, gin.H{
		"reservationId": reserved.ReservationID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = doJSON(t, engine, http.MethodPost, "/api/v1/seats/release", &actor, gin.H{
		"reservationId": reserved.ReservationID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var released holds.ReleaseResponse
	require.NoError(t, json.Unmarshal(env.Data, &released))
	assert.Equal(t, 2, released.ReleasedSeatsCount)
}

func TestController_ConfirmNeedsCompletedPayment(t *testing.T) {
	f := newFixture(t)
	engine := newTestRouter(f, nil)
	actor := customer()
	resp := f.reserve(t, actor, 0)

	w, env := doJSON(t, engine, http.MethodPost, "/api/v1/seats/confirm", &actor, gin.H{
		"reservationId": resp.ReservationID,
		"paymentId":     "pay-1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "payment not completed", env.Message)

	w, _ = doJSON(t, engine, http.MethodPost, "/api/v1/seats/confirm", &actor, gin.H{
		"reservationId": resp.ReservationID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_ReservationLookup(t *testing.T) {
	f := newFixture(t)
	engine := newTestRouter(f, nil)
	actor := customer()
	resp := f.reserve(t, actor, 0)

	w, env := doJSON(t, engine, http.MethodGet, "/api/v1/seats/reservations/"+resp.ReservationID.String(), &actor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view holds.ReservationView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, holds.StatePending, view.State)

	w, _ = doJSON(t, engine, http.MethodGet, "/api/v1/seats/reservations/not-a-uuid", &actor, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, engine, http.MethodGet, "/api/v1/seats/reservations/"+uuid.New().String(), &actor, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, engine, http.MethodGet, "/api/v1/seats/reservations?status=lost", &actor, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doJSON(t, engine, http.MethodGet, "/api/v1/seats/reservations?status=pending", &actor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list holds.ListReservationsResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Reservations, 1)
}

func TestController_AttachPayment(t *testing.T) {
	f := newFixture(t)
	engine := newTestRouter(f, nil)
	actor := customer()
	resp := f.reserve(t, actor, 0)
	path := "/api/v1/seats/reservations/" + resp.ReservationID.String() + "/payment"

	w, env := doJSON(t, engine, http.MethodPost, path, &actor, gin.H{"paymentId": "pay-1"})
	require.Equal(t, http.StatusOK, w.Code)
	var view holds.ReservationView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.PaymentID)
	assert.Equal(t, "pay-1", *view.PaymentID)

	w, _ = doJSON(t, engine, http.MethodPost, path, &actor, gin.H{"paymentId": "pay-2"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestController_SweeperStatsAdminOnly(t *testing.T) {
	f := newFixture(t)
	sweeper := f.sweeper(nil, 10)
	engine := newTestRouter(f, sweeper)

	actor := customer()
	w, _ := doJSON(t, engine, http.MethodGet, "/api/v1/seats/admin/sweeper", &actor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := users.Actor{UserID: uuid.New(), Role: users.RoleAdmin}
	w, env := doJSON(t, engine, http.MethodGet, "/api/v1/seats/admin/sweeper", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats holds.SweeperStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 10, stats.BatchSize)
}
