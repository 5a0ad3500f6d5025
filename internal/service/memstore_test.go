package service

// In-memory repository.Store used by the service tests.  It mirrors
// the SQL semantics the services rely on: guarded capacity updates,
// unique keys mapped to sentinels, sticky cancelled subscriptions and
// transactional rollback.  ExecTx serializes transactions under one
// mutex, standing in for the per-offering row lock.

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

type memData struct {
	offerings map[string]*model.Offering
	bookings  map[string]*model.Booking
	waitlist  map[string]*model.WaitlistEntry
	promos    map[string]*model.PromoCode
	subs      map[string]*model.Subscription
	events    map[string]bool
	seq       int
}

type memStore struct {
	mu   *sync.Mutex
	d    *memData
	inTx bool
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		d: &memData{
			offerings: map[string]*model.Offering{},
			bookings:  map[string]*model.Booking{},
			waitlist:  map[string]*model.WaitlistEntry{},
			promos:    map[string]*model.PromoCode{},
			subs:      map[string]*model.Subscription{},
			events:    map[string]bool{},
		},
	}
}

func (s *memStore) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *memStore) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *memStore) snapshot() *memData {
	c := &memData{
		offerings: map[string]*model.Offering{},
		bookings:  map[string]*model.Booking{},
		waitlist:  map[string]*model.WaitlistEntry{},
		promos:    map[string]*model.PromoCode{},
		subs:      map[string]*model.Subscription{},
		events:    map[string]bool{},
		seq:       s.d.seq,
	}
	for k, v := range s.d.offerings {
		o := *v
		c.offerings[k] = &o
	}
	for k, v := range s.d.bookings {
		b := *v
		c.bookings[k] = &b
	}
	for k, v := range s.d.waitlist {
		w := *v
		c.waitlist[k] = &w
	}
	for k, v := range s.d.promos {
		p := *v
		c.promos[k] = &p
	}
	for k, v := range s.d.subs {
		sub := *v
		c.subs[k] = &sub
	}
	for k, v := range s.d.events {
		c.events[k] = v
	}
	return c
}

func (s *memStore) ExecTx(_ context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.snapshot()
	if err := fn(&memStore{mu: s.mu, d: s.d, inTx: true}); err != nil {
		*s.d = *saved
		return err
	}
	return nil
}

func (s *memStore) Offerings() repository.OfferingStore         { return (*memOfferings)(s) }
func (s *memStore) Bookings() repository.BookingStore           { return (*memBookings)(s) }
func (s *memStore) Waitlist() repository.WaitlistStore          { return (*memWaitlist)(s) }
func (s *memStore) Promos() repository.PromoStore               { return (*memPromos)(s) }
func (s *memStore) Subscriptions() repository.SubscriptionStore { return (*memSubs)(s) }

// --- offerings ---

type memOfferings memStore

func (m *memOfferings) Create(_ context.Context, o *model.Offering) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	cp := *o
	m.d.offerings[o.ID] = &cp
	return nil
}

func (m *memOfferings) Update(_ context.Context, o *model.Offering) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	cur, ok := m.d.offerings[o.ID]
	if !ok {
		return repository.ErrOfferingNotFound
	}
	cp := *o
	cp.BookedCount = cur.BookedCount
	m.d.offerings[o.ID] = &cp
	return nil
}

func (m *memOfferings) Archive(_ context.Context, id string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	o, ok := m.d.offerings[id]
	if !ok {
		return repository.ErrOfferingNotFound
	}
	o.Status = model.OfferingArchived
	return nil
}

func (m *memOfferings) GetByID(_ context.Context, id string) (*model.Offering, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	o, ok := m.d.offerings[id]
	if !ok {
		return nil, repository.ErrOfferingNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOfferings) GetByIDForUpdate(ctx context.Context, id string) (*model.Offering, error) {
	return m.GetByID(ctx, id)
}

func (m *memOfferings) List(_ context.Context, includeArchived bool) ([]model.Offering, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make([]model.Offering, 0, len(m.d.offerings))
	for _, o := range m.d.offerings {
		if !includeArchived && o.Status == model.OfferingArchived {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memOfferings) Reserve(_ context.Context, id string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	o, ok := m.d.offerings[id]
	if !ok {
		return repository.ErrOfferingNotFound
	}
	if o.Status == model.OfferingArchived {
		return repository.ErrOfferingArchived
	}
	if o.BookedCount >= o.Capacity {
		return repository.ErrOfferingFull
	}
	o.BookedCount++
	return nil
}

func (m *memOfferings) Release(_ context.Context, id string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	o, ok := m.d.offerings[id]
	if !ok {
		return repository.ErrOfferingNotFound
	}
	if o.BookedCount > 0 {
		o.BookedCount--
	}
	return nil
}

func (m *memOfferings) Reconcile(_ context.Context, id string) (int, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	o, ok := m.d.offerings[id]
	if !ok {
		return 0, repository.ErrOfferingNotFound
	}
	n := 0
	for _, b := range m.d.bookings {
		if b.OfferingID == id && b.Status == model.BookingConfirmed {
			n++
		}
	}
	o.BookedCount = n
	return n, nil
}

// --- bookings ---

type memBookings memStore

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	for _, other := range m.d.bookings {
		if other.InvoiceNumber == b.InvoiceNumber {
			return repository.ErrDuplicateInvoice
		}
	}
	m.d.seq++
	cp := *b
	cp.CreatedAt = time.Unix(int64(m.d.seq), 0)
	m.d.bookings[b.ID] = &cp
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	b, ok := m.d.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) listWhere(match func(*model.Booking) bool) []model.Booking {
	out := make([]model.Booking, 0)
	for _, b := range m.d.bookings {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memBookings) ListByCustomer(_ context.Context, customerID string) ([]model.Booking, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	return m.listWhere(func(b *model.Booking) bool { return b.CustomerID == customerID }), nil
}

func (m *memBookings) ListByOffering(_ context.Context, offeringID string) ([]model.Booking, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	return m.listWhere(func(b *model.Booking) bool { return b.OfferingID == offeringID }), nil
}

func (m *memBookings) CountByCustomer(_ context.Context, customerID string) (int, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	n := 0
	for _, b := range m.d.bookings {
		if b.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (m *memBookings) MarkCancelled(_ context.Context, id string, requestedAt, effectiveAt time.Time, refund decimal.Decimal) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	b, ok := m.d.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if b.Status != model.BookingConfirmed {
		return nil
	}
	b.Status = model.BookingCancelled
	b.RefundFraction = decimal.NewNullDecimal(refund)
	r, e := requestedAt, effectiveAt
	b.CancellationRequestedAt = &r
	b.CancellationEffectiveAt = &e
	return nil
}

func (m *memBookings) MarkPaid(_ context.Context, id string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	b, ok := m.d.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.PaymentStatus = model.PaymentPaid
	return nil
}

func (m *memBookings) Revenue(_ context.Context) (repository.RevenueSummary, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	sum := repository.RevenueSummary{
		GrossTotal: decimal.Zero,
		NetTotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
	}
	for _, b := range m.d.bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		sum.ConfirmedBookings++
		sum.GrossTotal = sum.GrossTotal.Add(b.FinalAmount)
		sum.NetTotal = sum.NetTotal.Add(b.NetAmount)
		sum.TaxTotal = sum.TaxTotal.Add(b.TaxAmount)
	}
	return sum, nil
}

// --- waitlist ---

type memWaitlist memStore

func (m *memWaitlist) Enqueue(_ context.Context, offeringID, customerID string) (int, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	maxPos := 0
	for _, w := range m.d.waitlist {
		if w.OfferingID != offeringID {
			continue
		}
		if w.CustomerID == customerID {
			return 0, repository.ErrAlreadyWaitlisted
		}
		if w.Position > maxPos {
			maxPos = w.Position
		}
	}
	m.d.seq++
	e := &model.WaitlistEntry{
		ID:         uuid.NewString(),
		OfferingID: offeringID,
		CustomerID: customerID,
		Position:   maxPos + 1,
		CreatedAt:  time.Unix(int64(m.d.seq), 0),
	}
	m.d.waitlist[e.ID] = e
	return e.Position, nil
}

func (m *memWaitlist) Front(_ context.Context, offeringID string) (*model.WaitlistEntry, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	var front *model.WaitlistEntry
	for _, w := range m.d.waitlist {
		if w.OfferingID != offeringID {
			continue
		}
		if front == nil || w.Position < front.Position {
			front = w
		}
	}
	if front == nil {
		return nil, repository.ErrWaitlistEmpty
	}
	cp := *front
	return &cp, nil
}

func (m *memWaitlist) RemoveAndShift(_ context.Context, e *model.WaitlistEntry) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	delete(m.d.waitlist, e.ID)
	for _, w := range m.d.waitlist {
		if w.OfferingID == e.OfferingID && w.Position > e.Position {
			w.Position--
		}
	}
	return nil
}

func (m *memWaitlist) ListByOffering(_ context.Context, offeringID string) ([]model.WaitlistEntry, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make([]model.WaitlistEntry, 0)
	for _, w := range m.d.waitlist {
		if w.OfferingID == offeringID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memWaitlist) ListByCustomer(_ context.Context, customerID string) ([]model.WaitlistEntry, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make([]model.WaitlistEntry, 0)
	for _, w := range m.d.waitlist {
		if w.CustomerID == customerID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memWaitlist) Counts(_ context.Context) (map[string]int, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make(map[string]int)
	for _, w := range m.d.waitlist {
		out[w.OfferingID]++
	}
	return out, nil
}

// --- promo codes ---

type memPromos memStore

func (m *memPromos) Create(_ context.Context, p *model.PromoCode) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	for _, other := range m.d.promos {
		if other.Code == code {
			return repository.ErrPromoCodeTaken
		}
	}
	cp := *p
	cp.Code = code
	m.d.promos[p.ID] = &cp
	return nil
}

func (m *memPromos) GetByCode(_ context.Context, code string) (*model.PromoCode, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range m.d.promos {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPromoNotFound
}

func (m *memPromos) List(_ context.Context) ([]model.PromoCode, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make([]model.PromoCode, 0, len(m.d.promos))
	for _, p := range m.d.promos {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPromos) ConsumeUse(_ context.Context, id string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	p, ok := m.d.promos[id]
	if !ok {
		return repository.ErrPromoNotFound
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return repository.ErrPromoExhausted
	}
	p.UsedCount++
	return nil
}

// --- subscriptions ---

type memSubs memStore

func (m *memSubs) Create(_ context.Context, sub *model.Subscription) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	cp := *sub
	m.d.subs[sub.ID] = &cp
	return nil
}

func (m *memSubs) GetByID(_ context.Context, id string) (*model.Subscription, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	sub, ok := m.d.subs[id]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memSubs) byProvider(providerID string) *model.Subscription {
	for _, sub := range m.d.subs {
		if sub.ProviderSubscriptionID == providerID {
			return sub
		}
	}
	return nil
}

func (m *memSubs) GetByProviderID(_ context.Context, providerID string) (*model.Subscription, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	sub := m.byProvider(providerID)
	if sub == nil {
		return nil, repository.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memSubs) ListByCustomer(_ context.Context, customerID string) ([]model.Subscription, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make([]model.Subscription, 0)
	for _, sub := range m.d.subs {
		if sub.CustomerID == customerID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memSubs) ListAll(_ context.Context) ([]model.Subscription, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	out := make([]model.Subscription, 0, len(m.d.subs))
	for _, sub := range m.d.subs {
		out = append(out, *sub)
	}
	return out, nil
}

func (m *memSubs) CountActive(_ context.Context) (int, error) {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	n := 0
	for _, sub := range m.d.subs {
		if sub.Status == model.SubscriptionActive {
			n++
		}
	}
	return n, nil
}

func (m *memSubs) ActivateAndAdvance(_ context.Context, providerID string, next time.Time) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	sub := m.byProvider(providerID)
	if sub == nil {
		return repository.ErrSubscriptionNotFound
	}
	if sub.Status == model.SubscriptionCancelled {
		return nil
	}
	sub.Status = model.SubscriptionActive
	n := next
	sub.NextBillingAt = &n
	return nil
}

func (m *memSubs) MarkPastDue(_ context.Context, providerID string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	sub := m.byProvider(providerID)
	if sub == nil {
		return repository.ErrSubscriptionNotFound
	}
	if sub.Status == model.SubscriptionCancelled {
		return nil
	}
	sub.Status = model.SubscriptionPastDue
	return nil
}

func (m *memSubs) MarkCancelled(_ context.Context, id string, at time.Time) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	sub, ok := m.d.subs[id]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	if sub.Status == model.SubscriptionCancelled {
		return nil
	}
	sub.Status = model.SubscriptionCancelled
	t := at
	sub.CancelledAt = &t
	return nil
}

func (m *memSubs) MarkCancelledByProviderID(ctx context.Context, providerID string, at time.Time) error {
	(*memStore)(m).lock()
	sub := m.byProvider(providerID)
	(*memStore)(m).unlock()
	if sub == nil {
		return repository.ErrSubscriptionNotFound
	}
	return m.MarkCancelled(ctx, sub.ID, at)
}

func (m *memSubs) RecordEvent(_ context.Context, eventID string) error {
	(*memStore)(m).lock()
	defer (*memStore)(m).unlock()
	if m.d.events[eventID] {
		return repository.ErrDuplicateEvent
	}
	m.d.events[eventID] = true
	return nil
}

// seedOffering inserts an offering directly into the store.
func seedOffering(s *memStore, id string, capacity int, price string, startsAt time.Time) *model.Offering {
	o := &model.Offering{
		ID:         id,
		Name:       "Seepferdchen " + strconv.Itoa(capacity),
		Location:   "Nordbad",
		StartsAt:   startsAt,
		Capacity:   capacity,
		PriceGross: decimal.RequireFromString(price),
		Status:     model.OfferingActive,
	}
	s.d.offerings[id] = o
	return o
}
