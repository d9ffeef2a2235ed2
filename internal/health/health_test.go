package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name     string
	critical bool
	err      error
}

func (f *fakeChecker) Name() string   { return f.name }
func (f *fakeChecker) Critical() bool { return f.critical }
func (f *fakeChecker) Check(context.Context) error { return f.err }

func TestAggregator_AllHealthyReportsHealthy(t *testing.T) {
	agg := NewAggregator(Config{Checkers: []Checker{
		&fakeChecker{name: "database", critical: true},
		&fakeChecker{name: "cache", critical: false},
	}})

	report := agg.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, StatusHealthy, report.Components["database"].Status)
	assert.Equal(t, StatusHealthy, report.Components["cache"].Status)
}

func TestAggregator_CriticalFailureReportsUnhealthy(t *testing.T) {
	agg := NewAggregator(Config{Checkers: []Checker{
		&fakeChecker{name: "database", critical: true, err: errors.New("connection refused")},
		&fakeChecker{name: "cache", critical: false},
	}})

	report := agg.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Components["database"].Status)
	assert.Equal(t, "connection refused", report.Components["database"].Error)
}

func TestAggregator_NonCriticalFailureReportsDegraded(t *testing.T) {
	agg := NewAggregator(Config{Checkers: []Checker{
		&fakeChecker{name: "database", critical: true},
		&fakeChecker{name: "confighash", critical: false, err: errors.New("api server unreachable")},
	}})

	report := agg.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusHealthy, report.Components["database"].Status)
	assert.Equal(t, StatusUnhealthy, report.Components["confighash"].Status)
}

func TestAggregator_HandlerMapsStatusToHTTPCode(t *testing.T) {
	agg := NewAggregator(Config{Checkers: []Checker{
		&fakeChecker{name: "database", critical: true, err: errors.New("down")},
	}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	agg.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestAggregator_HandlerRejectsNonGET(t *testing.T) {
	agg := NewAggregator(Config{Checkers: []Checker{&fakeChecker{name: "database", critical: true}}})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rr := httptest.NewRecorder()
	agg.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
