package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

func TestDispatcher_TriggerRefresh_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, nil, nil)
	err := d.TriggerRefresh(context.Background(), srv.URL, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, "/actuator/busrefresh", gotPath)
}

func TestDispatcher_TriggerRefresh_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, nil, nil)
	err := d.TriggerRefresh(context.Background(), srv.URL, "svc-a")
	assert.ErrorIs(t, err, domain.ErrExternalUnavailable)
}
