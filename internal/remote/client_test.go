package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillsync/internal/model"
	"tillsync/internal/syncer"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, "test-key", "register-1", time.Second), srv
}

func TestGetAllSendsFiltersAndHeaders(t *testing.T) {
	var gotPath, gotKey, gotTerminal, gotFilter string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		gotTerminal = r.Header.Get("X-Terminal-ID")
		gotFilter = r.URL.Query().Get("categoryId")
		_ = json.NewEncoder(w).Encode([]model.Record{{"id": "p1"}})
	})
	defer srv.Close()

	recs, err := client.GetAll(context.Background(), "products", map[string]string{"categoryId": "c1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "/collections/products", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "register-1", gotTerminal)
	assert.Equal(t, "c1", gotFilter)
}

func TestServerErrorsMapToUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.GetAll(context.Background(), "products", nil)
	assert.ErrorIs(t, err, syncer.ErrRemoteUnavailable)
}

func TestConnectionFailureMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewClient(srv.URL, "", "", time.Second)
	srv.Close() // nothing listening anymore

	_, err := client.GetAll(context.Background(), "products", nil)
	assert.ErrorIs(t, err, syncer.ErrRemoteUnavailable)
}

func TestClientErrorsAreRejections(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("name is required"))
	})
	defer srv.Close()

	_, err := client.Create(context.Background(), "categories", model.Record{"name": ""})
	var rejected *syncer.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.Status)
	assert.Equal(t, "name is required", rejected.Detail)
}

func TestGetMissingRecordIsNil(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	rec, err := client.Get(context.Background(), "shifts", "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteTreats404AsSuccess(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	assert.NoError(t, client.Delete(context.Background(), "categories", "gone"))
}

func TestUpdateUsesPatchOnRecordURL(t *testing.T) {
	var gotMethod, gotPath string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(model.Record{"id": "c1", "name": "Drinks"})
	})
	defer srv.Close()

	rec, err := client.Update(context.Background(), "categories", "c1", model.Record{"name": "Drinks"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/collections/categories/c1", gotPath)
	assert.Equal(t, "Drinks", rec.String("name"))
}

func TestPingHitsHealthEndpoint(t *testing.T) {
	var gotPath string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "/health", gotPath)
}
