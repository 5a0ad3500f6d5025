package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextwave/swim-school-booking/internal/handler"
	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

const testSecret = "router-test-secret"

// catalogStore stubs the two catalog reads and records how the
// offering listing was asked for.
type catalogStore struct {
	repository.Store
	lastIncludeArchived *bool
}

func (s *catalogStore) Offerings() repository.OfferingStore { return &catalogOfferings{s: s} }
func (s *catalogStore) Waitlist() repository.WaitlistStore  { return catalogWaitlist{} }

type catalogOfferings struct {
	repository.OfferingStore
	s *catalogStore
}

func (o *catalogOfferings) List(_ context.Context, includeArchived bool) ([]model.Offering, error) {
	o.s.lastIncludeArchived = &includeArchived
	active := model.Offering{
		ID:         "off-active",
		Name:       "Seepferdchen",
		StartsAt:   time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC),
		Capacity:   8,
		PriceGross: decimal.RequireFromString("94.00"),
		Status:     model.OfferingActive,
	}
	if !includeArchived {
		return []model.Offering{active}, nil
	}
	archived := active
	archived.ID = "off-archived"
	archived.Status = model.OfferingArchived
	return []model.Offering{active, archived}, nil
}

type catalogWaitlist struct {
	repository.WaitlistStore
}

func (catalogWaitlist) Counts(context.Context) (map[string]int, error) {
	return map[string]int{"off-archived": 2}, nil
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestRouter(store repository.Store) *echo.Echo {
	e := echo.New()
	Register(e, Handlers{Offerings: handler.NewOfferingHandler(store)}, testSecret, passthrough, passthrough)
	return e
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "cust-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestAdminOfferingListing(t *testing.T) {
	store := &catalogStore{}
	e := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/offerings", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, "admin"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.lastIncludeArchived)
	assert.True(t, *store.lastIncludeArchived)
	assert.Contains(t, rec.Body.String(), `"off-archived"`)
	assert.Contains(t, rec.Body.String(), `"waitlist_count":2`)
}

func TestAdminOfferingListing_RequiresAdminRole(t *testing.T) {
	e := newTestRouter(&catalogStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/offerings", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, "customer"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicCatalogNeverWidens(t *testing.T) {
	store := &catalogStore{}
	e := newTestRouter(store)

	// Even an admin token on the public route gets the active-only
	// catalog; archived offerings live behind the admin listing.
	req := httptest.NewRequest(http.MethodGet, "/v1/offerings?include_archived=true", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, "admin"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.lastIncludeArchived)
	assert.False(t, *store.lastIncludeArchived)
	assert.False(t, strings.Contains(rec.Body.String(), "off-archived"))
}
