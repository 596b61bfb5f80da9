package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yesod/internal/clients"
	"yesod/pkg/cache/redis"
)

func newTestExports(t *testing.T) (*ExportService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := clients.WrapRedis(redis.NewClient(redis.ConnectionInfo{Addr: mr.Addr()}), "test_")
	t.Cleanup(c.Close)

	s := NewExportService(c, "")
	s.now = func() time.Time { return fixedNow }
	return s, mr
}

func TestExportService_SaveAndGet(t *testing.T) {
	s, mr := newTestExports(t)
	ctx := context.Background()

	key := s.NewKey()
	assert.Regexp(t, `^exports:[0-9a-f-]{36}$`, key)

	require.NoError(t, s.Save(ctx, &ExportStatus{
		Key:      key,
		Type:     "notices",
		UserID:   7,
		Progress: 40,
		Stage:    "generating",
		Created:  fixedNow.Add(-5 * time.Minute),
	}))
	assert.True(t, mr.Exists("test_"+key))
	assert.Equal(t, exportTTL, mr.TTL("test_"+key))

	v, err := s.GetExport(ctx, key, 7)
	require.NoError(t, err)
	assert.Equal(t, float64(40), v.Progress)
	assert.Equal(t, "generating", v.Stage)
	assert.Equal(t, "il y a 5 minutes", v.CreatedAt)
	assert.Nil(t, v.FileURL)

	_, err = s.GetExport(ctx, key, 8)
	assert.ErrorIs(t, err, ErrExportNotFound)

	_, err = s.GetExport(ctx, "exports:missing", 7)
	assert.ErrorIs(t, err, ErrExportNotFound)
}

func TestExportService_GetExports(t *testing.T) {
	s, mr := newTestExports(t)
	ctx := context.Background()

	for _, st := range []*ExportStatus{
		{Key: "exports:old", UserID: 7, Created: fixedNow.Add(-3 * time.Hour)},
		{Key: "exports:new", UserID: 7, Created: fixedNow.Add(-30 * time.Second)},
		{Key: "exports:other", UserID: 8, Created: fixedNow},
		{Key: "exports:gone", UserID: 7, Created: fixedNow},
	} {
		require.NoError(t, s.Save(ctx, st))
	}
	mr.Del("test_exports:gone")

	views, err := s.GetExports(ctx, 7)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "exports:new", views[0].Key)
	assert.Equal(t, "à l'instant", views[0].CreatedAt)
	assert.Equal(t, "exports:old", views[1].Key)
	assert.Equal(t, "il y a 3 heures", views[1].CreatedAt)

	members, err := mr.SMembers("test_" + exportSetKey)
	require.NoError(t, err)
	assert.NotContains(t, members, "exports:gone", "expired entries leave the index")
}

func TestExportService_NoCache(t *testing.T) {
	s := NewExportService(nil, "")
	assert.NoError(t, s.Save(context.Background(), &ExportStatus{Key: "k"}))

	_, err := s.GetExports(context.Background(), 1)
	assert.Error(t, err)
}

func TestHumanizeFrAgo(t *testing.T) {
	now := fixedNow
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Minute, "à l'instant"},
		{20 * time.Second, "à l'instant"},
		{time.Minute, "il y a 1 minute"},
		{59 * time.Minute, "il y a 59 minutes"},
		{time.Hour, "il y a 1 heure"},
		{23 * time.Hour, "il y a 23 heures"},
		{24 * time.Hour, "il y a 1 jour"},
		{29 * 24 * time.Hour, "il y a 29 jours"},
		{30 * 24 * time.Hour, "18/09/2026 09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeFrAgo(now.Add(-tt.ago), now))
		})
	}
}
