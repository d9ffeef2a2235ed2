package confighash

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_NonWhitelistedUsesMockStrategy(t *testing.T) {
	c := NewClient(ClientConfig{
		Whitelist:    map[string]bool{},
		MockStrategy: DeterministicMockStrategy{},
	}, nil)

	hash, err := c.GetExpectedHash(context.Background(), "svc-a", "prod")
	require.NoError(t, err)
	require.NotNil(t, hash)
	assert.Len(t, *hash, 64)
}

func TestClient_WhitelistedFetchesFromDirectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"replicas": 3, "feature_x": true}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		Whitelist:  map[string]bool{"svc-a": true},
		DirectURLs: map[string]string{"prod": srv.URL},
	}, nil)

	hash, err := c.GetExpectedHash(context.Background(), "svc-a", "prod")
	require.NoError(t, err)
	require.NotNil(t, hash)
	assert.Len(t, *hash, 64)
}

func TestClient_FallsBackToLastKnownGoodOnFailure(t *testing.T) {
	up := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"replicas": 3}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		Whitelist:  map[string]bool{"svc-a": true},
		DirectURLs: map[string]string{"prod": srv.URL},
	}, nil)

	first, err := c.GetExpectedHash(context.Background(), "svc-a", "prod")
	require.NoError(t, err)
	require.NotNil(t, first)

	up = false
	second, err := c.GetExpectedHash(context.Background(), "svc-a", "prod")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestClient_NoSourceReachableReturnsNilWithoutKnownGood(t *testing.T) {
	c := NewClient(ClientConfig{
		Whitelist: map[string]bool{"svc-a": true},
	}, nil)

	hash, err := c.GetExpectedHash(context.Background(), "svc-a", "prod")
	require.NoError(t, err)
	assert.Nil(t, hash)
}
