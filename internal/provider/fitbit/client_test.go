package fitbit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bassista/go_weightsync/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LogWeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, weightPath, r.URL.Path)
		assert.Equal(t, "Bearer access-f", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "72.345", q.Get("weight"))
		assert.Equal(t, "2024-03-15", q.Get("date"))
		assert.Equal(t, "08:30:45", q.Get("time"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"weightLog":{"logId":1}}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, srv.Client()).LogWeight(context.Background(), "access-f", "72.345", "2024-03-15", "08:30:45")
	require.NoError(t, err)
	assert.True(t, res.Created())
	assert.Equal(t, `{"weightLog":{"logId":1}}`, res.Body)
}

func TestClient_LogFat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fatPath, r.URL.Path)
		assert.Equal(t, "19.55", r.URL.Query().Get("fat"))
		assert.Empty(t, r.URL.Query().Get("weight"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, srv.Client()).LogFat(context.Background(), "access-f", "19.55", "2024-03-15", "08:30:45")
	require.NoError(t, err)
	assert.True(t, res.Created())
}

func TestClient_NonCreatedStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"errorType":"expired_token"}]}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, srv.Client()).LogWeight(context.Background(), "stale", "70.0", "2024-03-15", "08:00:00")
	require.NoError(t, err)
	assert.False(t, res.Created())
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, res.Body, "expired_token")
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).LogFat(context.Background(), "t", "19.55", "2024-03-15", "08:00:00")
	var terr *provider.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "fitbit log fat", terr.Op)
}

func TestPostResult_CreatedNil(t *testing.T) {
	var res *PostResult
	assert.False(t, res.Created())
}
