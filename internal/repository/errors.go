// Package repository defines the persistence contracts of the booking
// core and their MySQL implementations.  Sentinel errors let higher
// layers distinguish failure scenarios with errors.Is: handlers
// translate not-found and validation errors into HTTP responses, while
// the services resolve capacity and concurrency conflicts internally
// (a full offering routes to the waitlist instead of surfacing an
// error to the customer).
package repository

import "errors"

// ErrOfferingNotFound is returned when no offering exists for the
// given ID.
var ErrOfferingNotFound = errors.New("offering not found")

// ErrOfferingArchived is returned when a booking or subscription is
// attempted against an archived offering.
var ErrOfferingArchived = errors.New("offering is archived")

// ErrOfferingFull is returned by Reserve when every seat is taken.
// Callers route the request to the waitlist rather than reporting a
// failure.
var ErrOfferingFull = errors.New("offering is fully booked")

// ErrBookingNotFound is returned when no booking exists for the given
// ID.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateInvoice is returned when a booking insert collides with
// an existing invoice number.  The caller regenerates the number and
// retries.
var ErrDuplicateInvoice = errors.New("invoice number already exists")

// ErrAlreadyWaitlisted is returned when a customer already holds a
// waitlist entry for the offering.
var ErrAlreadyWaitlisted = errors.New("customer is already on the waitlist")

// ErrWaitlistEmpty is returned by Front when nobody is waiting.
var ErrWaitlistEmpty = errors.New("waitlist is empty")

// ErrPromoNotFound is returned when no promo code matches.
var ErrPromoNotFound = errors.New("promo code not found")

// ErrPromoCodeTaken is returned when creating a promo code whose code
// string already exists.
var ErrPromoCodeTaken = errors.New("promo code already exists")

// ErrPromoExhausted is returned by ConsumeUse when the guarded
// increment finds the usage cap already reached.  This is the
// last-line defence against two concurrent redemptions both passing
// validation.
var ErrPromoExhausted = errors.New("promo code usage limit reached")

// ErrSubscriptionNotFound is returned when no subscription matches the
// given local or provider identifier.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// ErrDuplicateEvent is returned by RecordEvent when the billing event
// ID was already processed.  Notification handling treats it as a
// successful no-op.
var ErrDuplicateEvent = errors.New("billing event already processed")

// ErrForbidden is returned when a customer operates on a resource
// owned by someone else.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")
