package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"expofloor/internal/booths"
	"expofloor/internal/broadcast"
	"expofloor/internal/notifications"
	"expofloor/internal/payments"
	"expofloor/internal/shared/clock"
	"expofloor/pkg/cache"
	"expofloor/pkg/logger"

	"github.com/google/uuid"
)

// PaymentOutcome is the gateway's answer for one reservation's charge.
type PaymentOutcome struct {
	Succeeded     bool
	TransactionID string
	Reason        string
}

// CoordinatorConfig bounds the reservation flow.
type CoordinatorConfig struct {
	HoldDuration   time.Duration
	MaxBundleSize  int
	IdempotencyTTL time.Duration
	ChargeTimeout  time.Duration
}

// Coordinator drives the reservation lifecycle: bundle acquisition,
// payment settlement, cancellation, and expiry. It is the only caller of
// the state store's reservation operations, so every transition also gets
// its row update, its broadcast, and its audit event here.
type Coordinator struct {
	store     *booths.StateStore
	repo      Repository
	scheduler *HoldExpiryScheduler
	hub       *broadcast.Hub
	gateway   payments.Gateway
	producer  notifications.EventProducer
	cache     cache.Service
	clk       clock.Clock
	log       *logger.Logger
	cfg       CoordinatorConfig
}

func NewCoordinator(
	store *booths.StateStore,
	repo Repository,
	hub *broadcast.Hub,
	gateway payments.Gateway,
	producer notifications.EventProducer,
	cacheService cache.Service,
	clk clock.Clock,
	log *logger.Logger,
	cfg CoordinatorConfig,
) *Coordinator {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 15 * time.Minute
	}
	if cfg.MaxBundleSize <= 0 {
		cfg.MaxBundleSize = 10
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = 30 * time.Second
	}

	c := &Coordinator{
		store:    store,
		repo:     repo,
		hub:      hub,
		gateway:  gateway,
		producer: producer,
		cache:    cacheService,
		clk:      clk,
		log:      log,
		cfg:      cfg,
	}
	c.scheduler = NewHoldExpiryScheduler(clk, log, c.expire)
	return c
}

// Scheduler exposes the coordinator's expiry scheduler for lifecycle
// management by the server bootstrap.
func (c *Coordinator) Scheduler() *HoldExpiryScheduler {
	return c.scheduler
}

// ReserveBundle atomically places a hold on a bundle of booths. Either
// every requested booth moves to RESERVED under one reservation with one
// deadline, or none does and the first conflicting booth is reported.
func (c *Coordinator) ReserveBundle(ctx context.Context, exhibitorID string, eventID uuid.UUID, boothIDs []uuid.UUID, paymentMethod, idempotencyKey string) (*ReservationResponse, error) {
	if idempotencyKey != "" {
		if replay, err := c.replayIdempotent(ctx, exhibitorID, idempotencyKey); err != nil {
			return nil, err
		} else if replay != nil {
			return replay, nil
		}
	}

	resp, err := c.reserveBundle(ctx, exhibitorID, eventID, boothIDs, paymentMethod)
	if err != nil {
		if idempotencyKey != "" {
			c.releaseIdempotencyClaim(ctx, exhibitorID, idempotencyKey)
		}
		return nil, err
	}

	if idempotencyKey != "" {
		c.storeIdempotentResponse(ctx, exhibitorID, idempotencyKey, resp)
	}
	return resp, nil
}

func (c *Coordinator) reserveBundle(ctx context.Context, exhibitorID string, eventID uuid.UUID, boothIDs []uuid.UUID, paymentMethod string) (*ReservationResponse, error) {
	if len(boothIDs) == 0 {
		return nil, fmt.Errorf("bundle is empty: %w", booths.ErrValidation)
	}
	if len(boothIDs) > c.cfg.MaxBundleSize {
		return nil, fmt.Errorf("bundle of %d exceeds limit of %d booths: %w", len(boothIDs), c.cfg.MaxBundleSize, booths.ErrValidation)
	}

	seen := make(map[uuid.UUID]struct{}, len(boothIDs))
	var totalPrice float64
	var members []ReservationBooth
	for _, boothID := range boothIDs {
		if _, dup := seen[boothID]; dup {
			return nil, fmt.Errorf("booth %s appears twice in bundle: %w", boothID, booths.ErrValidation)
		}
		seen[boothID] = struct{}{}

		booth, ok := c.store.Booth(boothID)
		if !ok {
			return nil, fmt.Errorf("booth %s: %w", boothID, booths.ErrNotFound)
		}
		if booth.EventID != eventID {
			return nil, fmt.Errorf("booth %s belongs to another event: %w", booth.Number, booths.ErrValidation)
		}
		totalPrice += booth.Price
		members = append(members, ReservationBooth{BoothID: boothID, Price: booth.Price})
	}

	reservationID := uuid.New()
	now := c.clk.Now()
	expiresAt := now.Add(c.cfg.HoldDuration)

	// Fixed acquisition order keeps competing bundles deadlock free and
	// makes the winner of overlapping bundles deterministic per booth.
	ordered := append([]uuid.UUID(nil), boothIDs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	for _, boothID := range ordered {
		if err := c.store.TryReserve(ctx, boothID, reservationID, expiresAt); err != nil {
			// All or nothing: give back the prefix acquired so far.
			if released, rerr := c.store.ReleaseReservation(ctx, reservationID, booths.ReleaseCancelled); rerr != nil {
				c.log.ErrorWithContext(ctx, "bundle rollback failed", rerr,
					map[string]interface{}{"reservation_id": reservationID})
			} else {
				c.broadcastStatus(eventID, released, booths.StatusAvailable, nil)
			}
			return nil, err
		}
	}

	reservation := &Reservation{
		ID:          reservationID,
		EventID:     eventID,
		ExhibitorID: exhibitorID,
		Status:      StatusPending,
		TotalPrice:  totalPrice,
		ReservedAt:  now,
		ExpiresAt:   expiresAt,
		Booths:      members,
	}
	if err := c.repo.CreateReservation(ctx, reservation); err != nil {
		if released, rerr := c.store.ReleaseReservation(ctx, reservationID, booths.ReleaseCancelled); rerr == nil {
			c.broadcastStatus(eventID, released, booths.StatusAvailable, nil)
		}
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	c.scheduler.Schedule(reservationID, expiresAt)
	c.broadcastStatus(eventID, ordered, booths.StatusReserved, &reservationID)
	c.publishEvent(ctx, notifications.NewReservationEvent(
		notifications.EventReservationCreated, reservationID, eventID, exhibitorID, ordered,
	).WithTotalPrice(totalPrice))
	c.log.LogBundleReserved(ctx, reservationID.String(), eventID.String(), exhibitorID, len(ordered))

	go c.chargeAsync(reservationID, totalPrice, paymentMethod)

	return reservation.ToResponse(), nil
}

// chargeAsync settles the bundle price with the gateway off the request
// goroutine and feeds the outcome back through OnPaymentResult.
func (c *Coordinator) chargeAsync(reservationID uuid.UUID, amount float64, method string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ChargeTimeout)
	defer cancel()

	result, err := c.gateway.Charge(ctx, reservationID, amount, method)
	outcome := PaymentOutcome{}
	if err != nil {
		outcome.Reason = err.Error()
	} else {
		outcome.Succeeded = result.Approved
		outcome.TransactionID = result.TransactionID
		outcome.Reason = result.Declined
	}

	if err := c.OnPaymentResult(ctx, reservationID, outcome); err != nil {
		c.log.ErrorWithContext(ctx, "payment settlement failed", err,
			map[string]interface{}{"reservation_id": reservationID})
	}
}

// OnPaymentResult settles a pending reservation with its charge outcome.
// A success confirms the bundle unless the hold expired first, in which
// case the charge is compensated with a refund. A failure cancels the
// hold. Settling an already-terminal reservation is a no-op.
func (c *Coordinator) OnPaymentResult(ctx context.Context, reservationID uuid.UUID, outcome PaymentOutcome) error {
	reservation, err := c.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	if !outcome.Succeeded {
		return c.settleFailure(ctx, reservation, outcome)
	}

	if reservation.Status.IsTerminal() {
		return nil
	}

	booked, err := c.store.ConfirmReservation(ctx, reservationID)
	if err != nil {
		switch {
		case errors.Is(err, booths.ErrHoldExpired), errors.Is(err, booths.ErrNotFound):
			// The hold died while the charge was in flight. The money
			// must follow it back.
			if outcome.TransactionID != "" {
				if rerr := c.gateway.Refund(ctx, outcome.TransactionID, reservation.TotalPrice); rerr != nil {
					c.log.ErrorWithContext(ctx, "compensating refund failed", rerr,
						map[string]interface{}{"reservation_id": reservationID, "transaction_id": outcome.TransactionID})
				}
			}
			return fmt.Errorf("reservation %s settled after hold ended: %w", reservationID, booths.ErrHoldExpired)
		default:
			return err
		}
	}

	c.scheduler.Cancel(reservationID)
	if err := c.repo.UpdateReservationStatus(ctx, reservationID, StatusConfirmed, c.clk.Now()); err != nil {
		c.log.ErrorWithContext(ctx, "confirm row update failed", err,
			map[string]interface{}{"reservation_id": reservationID})
	}
	c.broadcastStatus(reservation.EventID, booked, booths.StatusBooked, &reservationID)
	c.publishEvent(ctx, notifications.NewReservationEvent(
		notifications.EventReservationConfirmed, reservationID, reservation.EventID, reservation.ExhibitorID, booked,
	).WithTotalPrice(reservation.TotalPrice))
	c.log.LogReservationConfirmed(ctx, reservationID.String(), reservation.EventID.String())
	return nil
}

func (c *Coordinator) settleFailure(ctx context.Context, reservation *Reservation, outcome PaymentOutcome) error {
	if reservation.Status.IsTerminal() {
		return nil
	}

	c.scheduler.Cancel(reservation.ID)
	released, err := c.store.ReleaseReservation(ctx, reservation.ID, booths.ReleaseCancelled)
	if err != nil {
		return err
	}
	if released == nil {
		// Expiry or cancel got there first.
		return nil
	}

	if err := c.repo.UpdateReservationStatus(ctx, reservation.ID, StatusCancelled, c.clk.Now()); err != nil {
		c.log.ErrorWithContext(ctx, "cancel row update failed", err,
			map[string]interface{}{"reservation_id": reservation.ID})
	}
	c.broadcastStatus(reservation.EventID, released, booths.StatusAvailable, nil)
	c.publishEvent(ctx, notifications.NewReservationEvent(
		notifications.EventPaymentFailed, reservation.ID, reservation.EventID, reservation.ExhibitorID, released,
	).WithReason(outcome.Reason))
	return fmt.Errorf("charge declined for reservation %s: %w", reservation.ID, booths.ErrPaymentFailed)
}

// CancelReservation voluntarily releases a pending hold. Only the owning
// exhibitor or an admin may cancel; confirmed bundles are past the point
// of cancellation here.
func (c *Coordinator) CancelReservation(ctx context.Context, reservationID uuid.UUID, actorID string, isAdmin bool) error {
	reservation, err := c.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if !isAdmin && reservation.ExhibitorID != actorID {
		return fmt.Errorf("reservation %s: %w", reservationID, booths.ErrNotFound)
	}
	if !reservation.Status.CanBeCancelled() {
		return fmt.Errorf("reservation is %s: %w", reservation.Status, booths.ErrValidation)
	}

	// Disarm the timer before touching the booths so the sweeper cannot
	// race this release. If the deadline already fired, the release below
	// collapses into a no-op.
	c.scheduler.Cancel(reservationID)

	released, err := c.store.ReleaseReservation(ctx, reservationID, booths.ReleaseCancelled)
	if err != nil {
		return err
	}
	if released == nil {
		return nil
	}

	if err := c.repo.UpdateReservationStatus(ctx, reservationID, StatusCancelled, c.clk.Now()); err != nil {
		c.log.ErrorWithContext(ctx, "cancel row update failed", err,
			map[string]interface{}{"reservation_id": reservationID})
	}
	c.broadcastStatus(reservation.EventID, released, booths.StatusAvailable, nil)
	c.publishEvent(ctx, notifications.NewReservationEvent(
		notifications.EventReservationCancelled, reservationID, reservation.EventID, reservation.ExhibitorID, released,
	).WithReason(string(booths.ReleaseCancelled)))
	return nil
}

// GetReservation returns one reservation with its booth members.
func (c *Coordinator) GetReservation(ctx context.Context, reservationID uuid.UUID) (*Reservation, error) {
	return c.repo.GetReservationByID(ctx, reservationID)
}

// ListExhibitorReservations pages one exhibitor's reservations.
func (c *Coordinator) ListExhibitorReservations(ctx context.Context, exhibitorID string, limit, offset int) ([]Reservation, int64, error) {
	return c.repo.GetExhibitorReservations(ctx, exhibitorID, limit, offset)
}

// Reconcile settles reservation rows orphaned by a restart. The state
// store resets RESERVED booths at load, so a row still PENDING here has
// no live hold behind it and is closed out as EXPIRED.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	pending, err := c.repo.GetPendingReservations(ctx)
	if err != nil {
		return fmt.Errorf("load pending reservations: %w", err)
	}

	for i := range pending {
		reservation := &pending[i]
		if err := c.repo.UpdateReservationStatus(ctx, reservation.ID, StatusExpired, c.clk.Now()); err != nil {
			return fmt.Errorf("expire orphaned reservation %s: %w", reservation.ID, err)
		}
		c.publishEvent(ctx, notifications.NewReservationEvent(
			notifications.EventReservationExpired, reservation.ID, reservation.EventID, reservation.ExhibitorID, reservation.BoothIDs(),
		).WithReason("orphaned by restart"))
	}
	if len(pending) > 0 {
		c.log.Info("reconciled orphaned reservations", "count", len(pending))
	}
	return nil
}

// expire is the scheduler callback for a fired hold deadline.
func (c *Coordinator) expire(reservationID uuid.UUID) {
	ctx := context.Background()

	released, err := c.store.ReleaseReservation(ctx, reservationID, booths.ReleaseExpired)
	if err != nil {
		c.log.ErrorWithContext(ctx, "expiry release failed", err,
			map[string]interface{}{"reservation_id": reservationID})
		return
	}
	if released == nil {
		// Confirmed or cancelled before the deadline surfaced.
		return
	}

	reservation, err := c.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		c.log.ErrorWithContext(ctx, "expiry row lookup failed", err,
			map[string]interface{}{"reservation_id": reservationID})
		return
	}
	if err := c.repo.UpdateReservationStatus(ctx, reservationID, StatusExpired, c.clk.Now()); err != nil {
		c.log.ErrorWithContext(ctx, "expiry row update failed", err,
			map[string]interface{}{"reservation_id": reservationID})
	}
	c.broadcastStatus(reservation.EventID, released, booths.StatusAvailable, nil)
	c.publishEvent(ctx, notifications.NewReservationEvent(
		notifications.EventReservationExpired, reservationID, reservation.EventID, reservation.ExhibitorID, released,
	).WithReason(string(booths.ReleaseExpired)))
}

func (c *Coordinator) broadcastStatus(eventID uuid.UUID, boothIDs []uuid.UUID, status booths.Status, reservationID *uuid.UUID) {
	if c.hub == nil {
		return
	}
	now := c.clk.Now()
	for _, boothID := range boothIDs {
		c.hub.Publish(eventID, broadcast.StatusUpdate{
			BoothID:       boothID,
			Status:        status,
			ReservationID: reservationID,
			Timestamp:     now,
		})
	}
}

func (c *Coordinator) publishEvent(ctx context.Context, event *notifications.ReservationEvent) {
	if c.producer == nil {
		return
	}
	if err := c.producer.Publish(ctx, event); err != nil {
		c.log.ErrorWithContext(ctx, "reservation event publish failed", err,
			map[string]interface{}{"reservation_id": event.ReservationID, "type": string(event.Type)})
	}
}

// Idempotency keys: a claim marker is taken with SetNX while the request
// runs; the finished response is cached for replay. A retry that lands
// while the first attempt is still running is rejected rather than run
// twice.

func idempotencyClaimKey(exhibitorID, key string) string {
	return fmt.Sprintf("expofloor:idempotency:%s:%s:claim", exhibitorID, key)
}

func idempotencyResponseKey(exhibitorID, key string) string {
	return fmt.Sprintf("expofloor:idempotency:%s:%s:response", exhibitorID, key)
}

func (c *Coordinator) replayIdempotent(ctx context.Context, exhibitorID, key string) (*ReservationResponse, error) {
	if c.cache == nil {
		return nil, nil
	}

	claimed, err := c.cache.SetNX(ctx, idempotencyClaimKey(exhibitorID, key), "1", c.cfg.IdempotencyTTL)
	if err != nil {
		// Treat an unreachable cache as no idempotency rather than an outage.
		c.log.ErrorWithContext(ctx, "idempotency claim failed", err, map[string]interface{}{"key": key})
		return nil, nil
	}
	if claimed {
		return nil, nil
	}

	var cached ReservationResponse
	if err := c.cache.Get(ctx, idempotencyResponseKey(exhibitorID, key), &cached); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("request with this idempotency key is still in progress: %w", booths.ErrValidation)
		}
		return nil, err
	}
	return &cached, nil
}

func (c *Coordinator) storeIdempotentResponse(ctx context.Context, exhibitorID, key string, resp *ReservationResponse) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, idempotencyResponseKey(exhibitorID, key), resp, c.cfg.IdempotencyTTL); err != nil {
		c.log.ErrorWithContext(ctx, "idempotency response store failed", err, map[string]interface{}{"key": key})
	}
}

func (c *Coordinator) releaseIdempotencyClaim(ctx context.Context, exhibitorID, key string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, idempotencyClaimKey(exhibitorID, key)); err != nil {
		c.log.ErrorWithContext(ctx, "idempotency claim release failed", err, map[string]interface{}{"key": key})
	}
}
