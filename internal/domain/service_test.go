package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrphan(t *testing.T) {
	now := time.Now()
	svc := NewOrphan("new-svc", now)

	assert.True(t, svc.IsOrphan())
	assert.Equal(t, "new-svc", svc.DisplayName)
	assert.Equal(t, []string{"dev", "staging", "prod"}, svc.Environments)
	require.NotNil(t, svc.OrphanedAt)
	assert.Equal(t, now, *svc.OrphanedAt)
}

func TestApplicationService_MergeEnvironment(t *testing.T) {
	svc := ApplicationService{Environments: []string{"dev", "prod"}}

	assert.True(t, svc.MergeEnvironment("staging"))
	assert.Equal(t, []string{"dev", "prod", "staging"}, svc.Environments)

	assert.False(t, svc.MergeEnvironment("dev"))
	assert.Equal(t, []string{"dev", "prod", "staging"}, svc.Environments)
}
