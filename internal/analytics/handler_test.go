package analytics

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptschola/pkg/testutil"
)

func newEventRouter(store *InMemoryStore) chi.Router {
	handler := NewHandler(NewService(store, testLogger()), testLogger())
	router := chi.NewRouter()
	handler.Register(router)
	return router
}

func TestLogEvent_Anonymous(t *testing.T) {
	store := NewMemory()
	router := newEventRouter(store)

	step := 2
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/log-event", logEventRequest{
		EventType: "page_view",
		NanoSlug:  "kinematics",
		Step:      &step,
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	events := store.Events()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].UserID)
	assert.Equal(t, "kinematics", events[0].NanoSlug)
	require.NotNil(t, events[0].Step)
	assert.Equal(t, 2, *events[0].Step)
}

func TestLogEvent_SignedIn(t *testing.T) {
	store := NewMemory()
	router := newEventRouter(store)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/log-event", logEventRequest{
		EventType: "nano_opened",
		NanoSlug:  "kinematics",
	})
	req = testutil.WithIdentity(req, "user-1", "student@example.com")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "user-1", events[0].UserID)
}

func TestLogEvent_MissingFields(t *testing.T) {
	store := NewMemory()
	router := newEventRouter(store)

	for _, body := range []logEventRequest{
		{EventType: "page_view"},
		{NanoSlug: "kinematics"},
		{},
	} {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/log-event", body)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	}
	assert.Empty(t, store.Events())
}

func TestLogEvent_StoreFailureStillAcks(t *testing.T) {
	handler := NewHandler(NewService(failingStore{}, testLogger()), testLogger())
	router := chi.NewRouter()
	handler.Register(router)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/log-event", logEventRequest{
		EventType: "page_view",
		NanoSlug:  "kinematics",
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
}
