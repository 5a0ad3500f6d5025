package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

// stubOfferings implements only the catalog reads the handler touches;
// anything else panics through the embedded nil interface.
type stubOfferings struct {
	repository.OfferingStore
	listFn func(ctx context.Context, includeArchived bool) ([]model.Offering, error)
}

func (s *stubOfferings) List(ctx context.Context, includeArchived bool) ([]model.Offering, error) {
	return s.listFn(ctx, includeArchived)
}

type stubWaitlist struct {
	repository.WaitlistStore
	countsFn func(ctx context.Context) (map[string]int, error)
}

func (s *stubWaitlist) Counts(ctx context.Context) (map[string]int, error) {
	return s.countsFn(ctx)
}

type stubStore struct {
	offerings *stubOfferings
	waitlist  *stubWaitlist
}

func (s *stubStore) Offerings() repository.OfferingStore         { return s.offerings }
func (s *stubStore) Bookings() repository.BookingStore           { return nil }
func (s *stubStore) Waitlist() repository.WaitlistStore          { return s.waitlist }
func (s *stubStore) Promos() repository.PromoStore               { return nil }
func (s *stubStore) Subscriptions() repository.SubscriptionStore { return nil }
func (s *stubStore) ExecTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(s)
}

func catalogOffering(id string, status model.OfferingStatus) model.Offering {
	return model.Offering{
		ID:         id,
		Name:       "Seepferdchen",
		Location:   "Nordbad",
		StartsAt:   time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC),
		Capacity:   8,
		PriceGross: decimal.RequireFromString("94.00"),
		Status:     status,
	}
}

func TestOfferingList_PublicCatalogIsActiveOnly(t *testing.T) {
	var askedArchived *bool
	store := &stubStore{
		offerings: &stubOfferings{
			listFn: func(_ context.Context, includeArchived bool) ([]model.Offering, error) {
				askedArchived = &includeArchived
				return []model.Offering{catalogOffering("off-1", model.OfferingActive)}, nil
			},
		},
	}
	h := NewOfferingHandler(store)

	// The query param must not widen the public view, whoever sends it.
	req := httptest.NewRequest(http.MethodGet, "/v1/offerings?include_archived=true", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, askedArchived)
	assert.False(t, *askedArchived)
}

func TestOfferingListAdmin_IncludesArchivedAndWaitlistCounts(t *testing.T) {
	var askedArchived *bool
	store := &stubStore{
		offerings: &stubOfferings{
			listFn: func(_ context.Context, includeArchived bool) ([]model.Offering, error) {
				askedArchived = &includeArchived
				return []model.Offering{
					catalogOffering("off-1", model.OfferingActive),
					catalogOffering("off-2", model.OfferingArchived),
				}, nil
			},
		},
		waitlist: &stubWaitlist{
			countsFn: func(context.Context) (map[string]int, error) {
				return map[string]int{"off-1": 3}, nil
			},
		},
	}
	h := NewOfferingHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/offerings", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	require.NoError(t, h.ListAdmin(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, askedArchived)
	assert.True(t, *askedArchived)

	var body struct {
		Items []struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			WaitlistCount int    `json:"waitlist_count"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "active", body.Items[0].Status)
	assert.Equal(t, 3, body.Items[0].WaitlistCount)
	assert.Equal(t, "archived", body.Items[1].Status)
	assert.Equal(t, 0, body.Items[1].WaitlistCount)
}
