package reservations

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expofloor/internal/booths"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newCallbackServer(t *testing.T, f *coordinatorFixture, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	SetupReservationRoutes(engine.Group("/api/v1"), NewController(f.coordinator), secret)
	return engine
}

func postCallback(engine *gin.Engine, secret, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	engine.ServeHTTP(rec, req)
	return rec
}

func TestPaymentCallback(t *testing.T) {
	ctx := context.Background()
	const secret = "provider-secret"

	pendingReservation := func(t *testing.T, f *coordinatorFixture) uuid.UUID {
		t.Helper()
		f.gateway.SetDelay(2 * time.Second)
		resp, err := f.coordinator.ReserveBundle(ctx, "exh-1", f.eventID, f.boothIDs(1), "card", "")
		if err != nil {
			t.Fatalf("reserve bundle: %v", err)
		}
		return uuid.MustParse(resp.ID)
	}

	t.Run("callback without secret is rejected", func(t *testing.T) {
		f := newCoordinatorFixture(t, CoordinatorConfig{}, nil, 1)
		engine := newCallbackServer(t, f, secret)
		reservationID := pendingReservation(t, f)

		body := fmt.Sprintf(`{"reservation_id":%q,"succeeded":false,"reason":"forged"}`, reservationID)
		rec := postCallback(engine, "", body)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if got := f.resRepo.status(t, reservationID); got != StatusPending {
			t.Fatalf("reservation status = %s, want PENDING after rejected callback", got)
		}
		b, _ := f.store.Booth(f.booths[0].ID)
		if b.Status != booths.StatusReserved {
			t.Fatalf("booth status = %s, want RESERVED after rejected callback", b.Status)
		}
	})

	t.Run("callback with wrong secret is rejected", func(t *testing.T) {
		f := newCoordinatorFixture(t, CoordinatorConfig{}, nil, 1)
		engine := newCallbackServer(t, f, secret)
		reservationID := pendingReservation(t, f)

		body := fmt.Sprintf(`{"reservation_id":%q,"succeeded":true,"transaction_id":"TXN_forged"}`, reservationID)
		rec := postCallback(engine, "not-the-secret", body)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if got := f.resRepo.status(t, reservationID); got != StatusPending {
			t.Fatalf("reservation status = %s, want PENDING after rejected callback", got)
		}
	})

	t.Run("unconfigured secret rejects everything", func(t *testing.T) {
		f := newCoordinatorFixture(t, CoordinatorConfig{}, nil, 1)
		engine := newCallbackServer(t, f, "")
		reservationID := pendingReservation(t, f)

		body := fmt.Sprintf(`{"reservation_id":%q,"succeeded":true}`, reservationID)
		rec := postCallback(engine, "", body)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("authenticated callback settles the reservation", func(t *testing.T) {
		f := newCoordinatorFixture(t, CoordinatorConfig{}, nil, 1)
		engine := newCallbackServer(t, f, secret)
		reservationID := pendingReservation(t, f)

		body := fmt.Sprintf(`{"reservation_id":%q,"succeeded":true,"transaction_id":"TXN_provider"}`, reservationID)
		rec := postCallback(engine, secret, body)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if got := f.resRepo.status(t, reservationID); got != StatusConfirmed {
			t.Fatalf("reservation status = %s, want CONFIRMED", got)
		}
		b, _ := f.store.Booth(f.booths[0].ID)
		if b.Status != booths.StatusBooked {
			t.Fatalf("booth status = %s, want BOOKED", b.Status)
		}
	})
}
