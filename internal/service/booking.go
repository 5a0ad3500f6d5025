// Package service implements the booking lifecycle manager and the
// subscription billing state machine on top of the repository stores.
// Each operation is one coherent function with a single transaction
// boundary; capacity conflicts are resolved into the waitlist instead
// of surfacing as errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/invoice"
	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/policy"
	"github.com/nextwave/swim-school-booking/internal/pricing"
	"github.com/nextwave/swim-school-booking/internal/queue"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

// ErrAlreadyCancelled is returned when cancelling a booking that is
// already cancelled.
var ErrAlreadyCancelled = errors.New("booking is already cancelled")

// invoiceAttempts bounds how often a colliding invoice number is
// regenerated before the booking fails.
const invoiceAttempts = 5

// BookingOutcome is the result of a booking request: either a
// confirmed booking or a waitlist placement.  Being waitlisted is a
// valid outcome, not an error.
type BookingOutcome struct {
	Booking          *model.Booking
	Waitlisted       bool
	WaitlistPosition int
}

// CancelResult describes a processed cancellation, including the
// waitlisted customer promoted into the freed seat, if any.
type CancelResult struct {
	Booking        *model.Booking
	RefundFraction decimal.Decimal
	EffectiveAt    time.Time
	Promoted       *model.Booking
}

// BookingService orchestrates pricing, invoicing, the capacity ledger
// and the waitlist.  A nil publisher disables event publishing (used
// in tests).
type BookingService struct {
	store  repository.Store
	events queue.Publisher
	now    func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(store repository.Store, events queue.Publisher) *BookingService {
	if store == nil {
		panic("nil store passed to NewBookingService")
	}
	return &BookingService{store: store, events: events, now: time.Now}
}

// Book turns a booking request into a confirmed or waitlisted outcome.
// The offering row lock taken at the start serializes all
// capacity-affecting work per offering; reserve, promo consumption and
// the booking insert commit or roll back as one unit, so a failure can
// never leave a reserved seat without a booking row.
func (s *BookingService) Book(ctx context.Context, customerID, offeringID, promoCode string) (*BookingOutcome, error) {
	now := s.now().UTC()
	var out BookingOutcome
	var off *model.Offering

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		var err error
		off, err = tx.Offerings().GetByIDForUpdate(ctx, offeringID)
		if err != nil {
			return err
		}
		if off.Status == model.OfferingArchived {
			return repository.ErrOfferingArchived
		}

		if err := tx.Offerings().Reserve(ctx, offeringID); err != nil {
			if errors.Is(err, repository.ErrOfferingFull) {
				pos, qerr := tx.Waitlist().Enqueue(ctx, offeringID, customerID)
				if qerr != nil {
					return qerr
				}
				out.Waitlisted = true
				out.WaitlistPosition = pos
				return nil
			}
			return err
		}

		final := off.PriceGross
		discount := decimal.Zero
		var promoID *string
		if promoCode != "" {
			p, err := tx.Promos().GetByCode(ctx, promoCode)
			if err != nil {
				return err
			}
			prior, err := tx.Bookings().CountByCustomer(ctx, customerID)
			if err != nil {
				return err
			}
			final, discount, err = pricing.ApplyPromo(p, off.PriceGross, now, prior)
			if err != nil {
				return err
			}
			if err := tx.Promos().ConsumeUse(ctx, p.ID); err != nil {
				return err
			}
			promoID = &p.ID
		}

		b := newBooking(customerID, off, final, discount, promoID)
		if err := createWithInvoice(ctx, tx, b, now); err != nil {
			return err
		}
		out.Booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOutcome(ctx, customerID, &out, off, now)
	return &out, nil
}

// Cancel processes a customer-initiated cancellation, enforcing
// ownership.
func (s *BookingService) Cancel(ctx context.Context, bookingID, customerID string) (*CancelResult, error) {
	return s.cancel(ctx, bookingID, customerID, true)
}

// CancelAny processes a staff-initiated cancellation of any booking.
func (s *BookingService) CancelAny(ctx context.Context, bookingID string) (*CancelResult, error) {
	return s.cancel(ctx, bookingID, "", false)
}

func (s *BookingService) cancel(ctx context.Context, bookingID, customerID string, enforceOwner bool) (*CancelResult, error) {
	now := s.now().UTC()
	res := &CancelResult{}
	var off *model.Offering

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		b, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if enforceOwner && b.CustomerID != customerID {
			return repository.ErrForbidden
		}
		if b.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}

		off, err = tx.Offerings().GetByIDForUpdate(ctx, b.OfferingID)
		if err != nil {
			return err
		}

		refund := policy.RefundFraction(now, off.StartsAt)
		effective := policy.EffectiveAt(now)
		if err := tx.Bookings().MarkCancelled(ctx, b.ID, now, effective, refund); err != nil {
			return err
		}
		// The seat frees immediately so waiting customers are not
		// blocked on the refund timeline.
		if err := tx.Offerings().Release(ctx, off.ID); err != nil {
			return err
		}

		b.Status = model.BookingCancelled
		b.RefundFraction = decimal.NewNullDecimal(refund)
		b.CancellationRequestedAt = &now
		b.CancellationEffectiveAt = &effective
		res.Booking = b
		res.RefundFraction = refund
		res.EffectiveAt = effective

		promoted, err := s.promoteLocked(ctx, tx, off, now)
		if err != nil {
			return err
		}
		res.Promoted = promoted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCancellation(ctx, res, off, now)
	return res, nil
}

// MarkPaid settles a booking's invoice.
func (s *BookingService) MarkPaid(ctx context.Context, bookingID string) error {
	return s.store.Bookings().MarkPaid(ctx, bookingID)
}

// promoteLocked converts the front waitlist entry into a confirmed
// booking at the offering's current price.  The caller must hold the
// offering row lock.  Promotion goes through the same reserve path as
// a direct booking: if the freed seat was already raced away, the
// entry stays at the front for the next release.
func (s *BookingService) promoteLocked(ctx context.Context, tx repository.Store, off *model.Offering, now time.Time) (*model.Booking, error) {
	entry, err := tx.Waitlist().Front(ctx, off.ID)
	if errors.Is(err, repository.ErrWaitlistEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Offerings().Reserve(ctx, off.ID); err != nil {
		if errors.Is(err, repository.ErrOfferingFull) || errors.Is(err, repository.ErrOfferingArchived) {
			return nil, nil
		}
		return nil, err
	}

	b := newBooking(entry.CustomerID, off, off.PriceGross, decimal.Zero, nil)
	if err := createWithInvoice(ctx, tx, b, now); err != nil {
		return nil, err
	}
	if err := tx.Waitlist().RemoveAndShift(ctx, entry); err != nil {
		return nil, err
	}
	return b, nil
}

// newBooking assembles a confirmed, payment-pending booking with its
// VAT breakdown.
func newBooking(customerID string, off *model.Offering, final, discount decimal.Decimal, promoID *string) *model.Booking {
	vat := pricing.VAT(final)
	return &model.Booking{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		OfferingID:     off.ID,
		GrossAmount:    off.PriceGross.Round(2),
		DiscountAmount: discount,
		FinalAmount:    vat.Gross,
		NetAmount:      vat.Net,
		TaxAmount:      vat.Tax,
		PromoCodeID:    promoID,
		Status:         model.BookingConfirmed,
		PaymentStatus:  model.PaymentPending,
	}
}

// createWithInvoice inserts the booking, regenerating the invoice
// number on a duplicate-key collision.
func createWithInvoice(ctx context.Context, tx repository.Store, b *model.Booking, now time.Time) error {
	for i := 0; i < invoiceAttempts; i++ {
		num, err := invoice.Number(now)
		if err != nil {
			return err
		}
		b.InvoiceNumber = num
		err = tx.Bookings().Create(ctx, b)
		if errors.Is(err, repository.ErrDuplicateInvoice) {
			continue
		}
		return err
	}
	return fmt.Errorf("could not generate a unique invoice number after %d attempts", invoiceAttempts)
}

func (s *BookingService) publishOutcome(ctx context.Context, customerID string, out *BookingOutcome, off *model.Offering, now time.Time) {
	if s.events == nil {
		return
	}
	if out.Waitlisted {
		ev := queue.BookingWaitlistedEvent{
			CustomerID:   customerID,
			OfferingID:   off.ID,
			OfferingName: off.Name,
			Position:     out.WaitlistPosition,
			WaitlistedAt: now.Format(time.RFC3339),
		}
		if err := s.events.PublishBookingWaitlisted(ctx, ev); err != nil {
			log.Printf("booking: publish waitlisted event failed: %v", err)
		}
		return
	}
	s.publishConfirmed(ctx, out.Booking, off, false, now)
}

func (s *BookingService) publishConfirmed(ctx context.Context, b *model.Booking, off *model.Offering, promoted bool, now time.Time) {
	if s.events == nil || b == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:     b.ID,
		CustomerID:    b.CustomerID,
		OfferingID:    off.ID,
		OfferingName:  off.Name,
		StartsAt:      off.StartsAt.UTC().Format(time.RFC3339),
		InvoiceNumber: b.InvoiceNumber,
		FinalAmount:   b.FinalAmount.StringFixed(2),
		Promoted:      promoted,
		ConfirmedAt:   now.Format(time.RFC3339),
	}
	if err := s.events.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Printf("booking: publish confirmed event failed: %v", err)
	}
}

func (s *BookingService) publishCancellation(ctx context.Context, res *CancelResult, off *model.Offering, now time.Time) {
	if s.events == nil {
		return
	}
	ev := queue.BookingCancelledEvent{
		BookingID:      res.Booking.ID,
		CustomerID:     res.Booking.CustomerID,
		OfferingID:     off.ID,
		RefundFraction: res.RefundFraction.StringFixed(2),
		EffectiveAt:    res.EffectiveAt.Format(time.RFC3339),
		CancelledAt:    now.Format(time.RFC3339),
	}
	if err := s.events.PublishBookingCancelled(ctx, ev); err != nil {
		log.Printf("booking: publish cancelled event failed: %v", err)
	}
	s.publishConfirmed(ctx, res.Promoted, off, true, now)
}
