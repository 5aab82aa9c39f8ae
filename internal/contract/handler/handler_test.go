package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"havenlink/internal/contract/models"
	"havenlink/internal/contract/service"
	contractstore "havenlink/internal/contract/store/contract"
	identitymodels "havenlink/internal/identity/models"
	identitystore "havenlink/internal/identity/store/identity"
	notifservice "havenlink/internal/notification/service"
	notifstore "havenlink/internal/notification/store/notification"
	id "havenlink/pkg/domain"
	"havenlink/pkg/testutil"
)

type fixture struct {
	router     chi.Router
	identities *identitystore.InMemory
	seeker     *identitymodels.Identity
	host       *identitymodels.Identity
	admin      *identitymodels.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	identities := identitystore.NewInMemory()
	contracts := contractstore.NewInMemory()
	notifications := notifstore.NewInMemory()
	svc := service.New(contracts, identities, notifservice.New(notifications, identities))

	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)

	f := &fixture{router: r, identities: identities}
	f.seeker = mustCreateIdentity(t, identities, "seeker@example.com", id.RoleSeeker)
	f.host = mustCreateIdentity(t, identities, "host@example.com", id.RoleHost)
	f.admin = mustCreateIdentity(t, identities, "admin@example.com", id.RoleAdministrator)
	return f
}

func mustCreateIdentity(t *testing.T, store *identitystore.InMemory, email string, role id.Role) *identitymodels.Identity {
	t.Helper()
	identity, err := identitymodels.NewIdentity(id.NewIdentityID(), email, email, role, "hash",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), identity))
	return identity
}

func (f *fixture) do(t *testing.T, req *http.Request, caller *identitymodels.Identity) *contractResponse {
	t.Helper()
	req = testutil.WithIdentity(req, caller.ID, caller.Role)
	rr := testutil.DoRequest(f.router, req)
	require.Less(t, rr.Code, 300, "unexpected error response: %s", rr.Body.String())
	return testutil.UnmarshalResponse[models.Contract](t, rr)
}

type contractResponse = models.Contract

func (f *fixture) propose(t *testing.T) *contractResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/contracts", map[string]any{
		"counterpart_id": f.host.ID.String(),
		"terms":          "shared kitchen, quiet hours after 22:00",
		"duration":       "three_months",
		"start_date":     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	return f.do(t, req, f.seeker)
}

func TestHandlePropose(t *testing.T) {
	t.Run("a valid proposal is created", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/contracts", map[string]any{
			"counterpart_id": f.host.ID.String(),
			"terms":          "quiet hours after 22:00",
			"duration":       "six_months",
			"start_date":     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		req = testutil.WithIdentity(req, f.seeker.ID, f.seeker.Role)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		contract := testutil.UnmarshalResponse[models.Contract](t, rr)
		assert.Equal(t, models.StatusProposed, contract.Status)
		assert.Equal(t, f.seeker.ID, contract.SeekerID)
		assert.Equal(t, f.host.ID, contract.HostID)
	})

	t.Run("an unknown duration is rejected", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/contracts", map[string]any{
			"counterpart_id": f.host.ID.String(),
			"terms":          "terms",
			"duration":       "forever",
			"start_date":     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		req = testutil.WithIdentity(req, f.seeker.ID, f.seeker.Role)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})

	t.Run("a malformed counterpart id is rejected", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/contracts", map[string]any{
			"counterpart_id": "not-a-uuid",
			"terms":          "terms",
			"duration":       "one_month",
			"start_date":     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		req = testutil.WithIdentity(req, f.seeker.ID, f.seeker.Role)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})
}

func TestHandleSignAndApprove(t *testing.T) {
	t.Run("the signing flow ends in ratification", func(t *testing.T) {
		f := newFixture(t)
		contract := f.propose(t)

		signed := f.do(t, testutil.NewRequest(t, http.MethodPost, "/contracts/"+contract.ID.String()+"/sign"), f.host)
		assert.NotNil(t, signed.HostSignedAt)

		signed = f.do(t, testutil.NewRequest(t, http.MethodPost, "/contracts/"+contract.ID.String()+"/sign"), f.seeker)
		require.True(t, signed.BothSigned())

		approved := f.do(t, testutil.NewRequest(t, http.MethodPost, "/admin/contracts/"+contract.ID.String()+"/approve"), f.admin)
		assert.Equal(t, models.StatusCompleted, approved.Status)
	})

	t.Run("ratifying an unsigned contract conflicts", func(t *testing.T) {
		f := newFixture(t)
		contract := f.propose(t)

		req := testutil.NewRequest(t, http.MethodPost, "/admin/contracts/"+contract.ID.String()+"/approve")
		req = testutil.WithIdentity(req, f.admin.ID, f.admin.Role)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertErrorCode(t, rr, "invalid_state")
	})

	t.Run("a stranger cannot sign", func(t *testing.T) {
		f := newFixture(t)
		contract := f.propose(t)
		stranger := mustCreateIdentity(t, f.identities, "stranger@example.com", id.RoleHost)

		req := testutil.NewRequest(t, http.MethodPost, "/contracts/"+contract.ID.String()+"/sign")
		req = testutil.WithIdentity(req, stranger.ID, stranger.Role)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
		testutil.AssertErrorCode(t, rr, "forbidden")
	})

	t.Run("an unknown contract id is rejected at the boundary", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewRequest(t, http.MethodPost, "/contracts/not-a-uuid/sign")
		req = testutil.WithIdentity(req, f.seeker.ID, f.seeker.Role)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})
}

func TestHandleReads(t *testing.T) {
	t.Run("parties list and fetch their contracts", func(t *testing.T) {
		f := newFixture(t)
		contract := f.propose(t)

		req := testutil.NewRequest(t, http.MethodGet, "/contracts")
		req = testutil.WithIdentity(req, f.host.ID, f.host.Role)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		contracts := testutil.UnmarshalResponse[[]*models.Contract](t, rr)
		require.Len(t, *contracts, 1)
		assert.Equal(t, contract.ID, (*contracts)[0].ID)

		fetched := f.do(t, testutil.NewRequest(t, http.MethodGet, "/contracts/"+contract.ID.String()), f.host)
		assert.Equal(t, contract.ID, fetched.ID)
	})

	t.Run("the ratification queue requires the administrator role", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewRequest(t, http.MethodGet, "/admin/contracts/pending")
		req = testutil.WithIdentity(req, f.seeker.ID, f.seeker.Role)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}
