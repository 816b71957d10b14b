package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lodge-booking/internal/availability"
	"github.com/iliyamo/lodge-booking/internal/fixture"
	"github.com/iliyamo/lodge-booking/internal/handler"
	"github.com/iliyamo/lodge-booking/internal/hold"
	"github.com/iliyamo/lodge-booking/internal/metrics"
	"github.com/iliyamo/lodge-booking/internal/middleware"
	"github.com/iliyamo/lodge-booking/internal/queue"
	"github.com/iliyamo/lodge-booking/internal/router"
	"github.com/iliyamo/lodge-booking/internal/service"
	"github.com/iliyamo/lodge-booking/internal/store/memory"
	"github.com/iliyamo/lodge-booking/internal/utils"
)

const (
	secret   = "test-secret"
	sessionA = "session-aaaa"
	sessionB = "session-bbbb"
)

type server struct {
	e     *echo.Echo
	clock *fixture.Clock
	admin string
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := memory.New(memory.Config{Rooms: fixture.Rooms(), Prices: fixture.Prices()})
	clock := &fixture.Clock{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	l := log.New(io.Discard, "", 0)
	m := metrics.New(nil)
	res := availability.NewResolver(db, clock.Now)
	holds := hold.NewManager(db, res, m, l, clock.Now)
	bookings := service.NewBookingService(db, queue.Discard{}, m, l, clock.Now)
	blockages := service.NewBlockageService(db, l, clock.Now)

	bh := handler.NewBookingHandler(bookings, l)
	hh := handler.NewHoldHandler(holds, l)

	e := echo.New()
	router.RegisterRoutes(e, m.Gatherer())
	router.RegisterPublic(e, router.Public{
		Catalog:  handler.NewCatalogHandler(db, res, l),
		Holds:    hh,
		Bookings: bh,
		Session:  middleware.Session(),
	})
	router.RegisterAdmin(e, router.Admin{
		Bookings:  bh,
		Blockages: handler.NewBlockageHandler(blockages, l),
		Holds:     hh,
	}, secret)

	tok, err := utils.NewAccessToken(secret, "ops", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return &server{e: e, clock: clock, admin: tok.Token}
}

type call struct {
	method  string
	path    string
	body    any
	session string
	token   string
	bearer  string
}

func (s *server) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.session != "" {
		req.Header.Set(middleware.HeaderSessionID, c.session)
	}
	if c.token != "" {
		req.Header.Set(middleware.HeaderEditToken, c.token)
	}
	if c.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func family(roomID, start, end string) map[string]any {
	return map[string]any{
		"contact": map[string]any{"name": "Ada Guest", "email": "ada@example.com"},
		"start":   start,
		"end":     end,
		"rooms": []any{map[string]any{
			"room_id": roomID,
			"guests":  map[string]any{"mode": "uniform", "guest_class": "subsidized", "adults": 2, "children": 1},
		}},
	}
}

func dayKind(t *testing.T, cal map[string]any, roomID, date string) string {
	t.Helper()
	for _, r := range cal["rooms"].([]any) {
		row := r.(map[string]any)
		if row["room_id"] != roomID {
			continue
		}
		for _, d := range row["days"].([]any) {
			day := d.(map[string]any)
			if day["date"] == date {
				return day["kind"].(string)
			}
		}
	}
	t.Fatalf("no calendar entry for room %s on %s", roomID, date)
	return ""
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-10", "2025-06-12")})
	rec, _ = s.do(t, call{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lodge_bookings_total")
}

func TestCatalog(t *testing.T) {
	s := newServer(t)

	rec, body := s.do(t, call{method: http.MethodGet, path: "/v1/rooms"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["rooms"], 4)

	rec, body = s.do(t, call{method: http.MethodGet, path: "/v1/prices"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "rooms")
	assert.Contains(t, body, "bulk")
}

func TestAvailability_Validation(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{
		"/v1/availability",
		"/v1/availability?from=2025-06-10&to=06/12/2025",
		"/v1/availability?from=2025-06-12&to=2025-06-10",
		"/v1/availability?from=2025-01-01&to=2027-01-01",
	} {
		rec, body := s.do(t, call{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.NotEmpty(t, body["error"], path)
	}

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/v1/availability?from=2025-06-10&to=2025-06-12", session: "bad id!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/availability?from=2025-06-10&to=2025-06-12&rooms=99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHolds_VisibleToOtherSessionsOnly(t *testing.T) {
	s := newServer(t)

	rec, held := s.do(t, call{
		method:  http.MethodPost,
		path:    "/v1/holds",
		session: sessionA,
		body: map[string]any{
			"start":    "2025-06-10",
			"end":      "2025-06-12",
			"room_ids": []string{"11"},
			"guests":   map[string]any{"mode": "uniform", "guest_class": "subsidized", "adults": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, held["id"])
	assert.Equal(t, float64(2*35000), held["total_cents"])

	window := "/v1/availability?from=2025-06-09&to=2025-06-13&rooms=11"
	_, own := s.do(t, call{method: http.MethodGet, path: window, session: sessionA})
	assert.Equal(t, string(availability.KindAvailable), dayKind(t, own, "11", "2025-06-11"))

	_, other := s.do(t, call{method: http.MethodGet, path: window, session: sessionB})
	assert.Equal(t, string(availability.KindProposed), dayKind(t, other, "11", "2025-06-11"))
	assert.Equal(t, string(availability.KindAvailable), dayKind(t, other, "11", "2025-06-09"))

	rec, list := s.do(t, call{method: http.MethodGet, path: "/v1/holds", session: sessionA})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list["holds"], 1)

	_, list = s.do(t, call{method: http.MethodGet, path: "/v1/holds", session: sessionB})
	assert.Empty(t, list["holds"])

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/holds/" + held["id"].(string), session: sessionB})
	assert.Equal(t, http.StatusNotFound, rec.Code, "holds are scoped to their session")

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/holds/" + held["id"].(string), session: sessionA})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, other = s.do(t, call{method: http.MethodGet, path: window, session: sessionB})
	assert.Equal(t, string(availability.KindAvailable), dayKind(t, other, "11", "2025-06-11"))
}

func TestHolds_Errors(t *testing.T) {
	s := newServer(t)
	body := map[string]any{"start": "2025-06-10", "end": "2025-06-12", "room_ids": []string{"12"}}

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/v1/holds", body: body})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a hold needs a session")

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/holds"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-11", "2025-06-13")})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, conflict := s.do(t, call{method: http.MethodPost, path: "/v1/holds", body: body, session: sessionA})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "12", conflict["room_id"])
}

func TestHolds_ExpireAndPurge(t *testing.T) {
	s := newServer(t)
	body := map[string]any{"start": "2025-06-10", "end": "2025-06-12", "room_ids": []string{"21"}}

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/v1/holds", body: body, session: sessionA})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, list := s.do(t, call{method: http.MethodGet, path: "/v1/admin/holds?from=2025-06-01&to=2025-06-30", bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list["holds"], 1)
	assert.Equal(t, sessionA, list["holds"].([]any)[0].(map[string]any)["session_id"])

	s.clock.Advance(16 * time.Minute)

	_, list = s.do(t, call{method: http.MethodGet, path: "/v1/holds", session: sessionA})
	assert.Empty(t, list["holds"])

	rec, purged := s.do(t, call{method: http.MethodPost, path: "/v1/admin/holds/purge", bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), purged["purged"])
}

func TestQuote(t *testing.T) {
	s := newServer(t)

	rec, q := s.do(t, call{method: http.MethodPost, path: "/v1/quote", body: family("12", "2025-06-10", "2025-06-12")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(75000), q["total_cents"])

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/quote", body: family("99", "2025-06-10", "2025-06-12")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	s := newServer(t)

	rec, created := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-10", "2025-06-12")})
	require.Equal(t, http.StatusCreated, rec.Code)
	token, _ := created["edit_token"].(string)
	require.Len(t, token, 64)
	assert.Equal(t, float64(75000), created["total_cents"])
	assert.Equal(t, true, created["price_locked"])
	id := strconv.FormatFloat(created["id"].(float64), 'f', 0, 64)

	rec, self := s.do(t, call{method: http.MethodGet, path: "/v1/bookings/self", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["id"], self["id"])
	assert.NotContains(t, self, "edit_token")

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/bookings/self", token: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	update := family("12", "2025-06-10", "2025-06-13")
	rec, body := s.do(t, call{method: http.MethodPut, path: "/v1/bookings/" + id, body: update, token: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid edit token", body["error"])

	rec, updated := s.do(t, call{method: http.MethodPut, path: "/v1/bookings/" + id, body: update, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-06-13", updated["end"])

	rec, _ = s.do(t, call{method: http.MethodPut, path: "/v1/bookings/abc", body: update, token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/bookings/" + id, token: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/bookings/" + id, token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/bookings/self", token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBooking_Errors(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-10", "2025-06-12")})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, conflict := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-11", "2025-06-14")})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "12", conflict["room_id"])
	assert.Equal(t, []any{"2025-06-11"}, conflict["dates"])

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-12", "2025-06-14")})
	assert.Equal(t, http.StatusCreated, rec.Code, "checkout and checkin share a day")

	crowded := family("11", "2025-06-20", "2025-06-22")
	crowded["rooms"] = []any{map[string]any{
		"room_id": "11",
		"guests":  map[string]any{"mode": "uniform", "guest_class": "external", "adults": 3},
	}}
	rec, body := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: crowded})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "11", body["room_id"])

	noGuests := family("11", "2025-06-20", "2025-06-22")
	noGuests["rooms"] = []any{map[string]any{"room_id": "11"}}
	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: noGuests})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", bytes.NewBufferString("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	raw := httptest.NewRecorder()
	s.e.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCreateBooking_FromProposal(t *testing.T) {
	s := newServer(t)
	holdBody := map[string]any{"start": "2025-06-10", "end": "2025-06-12", "room_ids": []string{"12"}}

	_, held := s.do(t, call{method: http.MethodPost, path: "/v1/holds", body: holdBody, session: sessionA})
	in := family("12", "2025-06-10", "2025-06-12")
	in["proposal_id"] = held["id"]

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: in, session: sessionB})
	assert.Equal(t, http.StatusNotFound, rec.Code, "another session's proposal is not visible")

	s.clock.Advance(20 * time.Minute)
	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: in, session: sessionA})
	assert.Equal(t, http.StatusGone, rec.Code)

	_, held = s.do(t, call{method: http.MethodPost, path: "/v1/holds", body: holdBody, session: sessionA})
	in["proposal_id"] = held["id"]
	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: in, session: sessionA})
	require.Equal(t, http.StatusCreated, rec.Code)

	_, list := s.do(t, call{method: http.MethodGet, path: "/v1/holds", session: sessionA})
	assert.Empty(t, list["holds"], "booking releases the session's holds")
}

func TestAdmin_RequiresToken(t *testing.T) {
	s := newServer(t)
	guest, err := utils.NewAccessToken(secret, "someone", "GUEST", time.Hour)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other-secret", "ops", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings", bearer: forged.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings", bearer: guest.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings", bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["bookings"])
}

func TestAdmin_Bookings(t *testing.T) {
	s := newServer(t)
	_, created := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("12", "2025-06-10", "2025-06-12")})
	id := strconv.FormatFloat(created["id"].(float64), 'f', 0, 64)

	rec, list := s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings", bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list["bookings"], 1)

	rec, got := s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings/" + id, bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, got, "edit_token")

	rec, audit := s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings/" + id + "/price-audit", bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, audit["match"])
	assert.Equal(t, float64(75000), audit["stored_cents"])

	in := family("12", "2025-06-10", "2025-06-13")
	in["reprice"] = true
	rec, updated := s.do(t, call{method: http.MethodPut, path: "/v1/admin/bookings/" + id, body: in, bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(112500), updated["total_cents"])

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/admin/bookings/" + id, bearer: s.admin})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/v1/admin/bookings/" + id, bearer: s.admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_Blockages(t *testing.T) {
	s := newServer(t)

	rec, b := s.do(t, call{
		method: http.MethodPost,
		path:   "/v1/admin/blockages",
		bearer: s.admin,
		body:   map[string]any{"start": "2025-07-01", "end": "2025-07-03", "room_ids": []string{"21"}, "reason": "painting"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := strconv.FormatFloat(b["id"].(float64), 'f', 0, 64)

	_, cal := s.do(t, call{method: http.MethodGet, path: "/v1/availability?from=2025-07-01&to=2025-07-04&rooms=21,22"})
	assert.Equal(t, string(availability.KindBlocked), dayKind(t, cal, "21", "2025-07-02"))
	assert.Equal(t, string(availability.KindAvailable), dayKind(t, cal, "22", "2025-07-02"))

	rec, conflict := s.do(t, call{method: http.MethodPost, path: "/v1/bookings", body: family("21", "2025-07-02", "2025-07-05")})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, b["id"], conflict["blockage_id"])

	rec, list := s.do(t, call{method: http.MethodGet, path: "/v1/admin/blockages", bearer: s.admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list["blockages"], 1)

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/admin/blockages/" + id, bearer: s.admin})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodDelete, path: "/v1/admin/blockages/" + id, bearer: s.admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/v1/admin/blockages", bearer: s.admin, body: map[string]any{"start": "2025-07-03", "end": "2025-07-01"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
