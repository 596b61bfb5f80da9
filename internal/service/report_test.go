package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"yesod/internal/clients"
	"yesod/internal/domain"
	"yesod/internal/repository"
)

func seededRepo(n int, userID int64) *fakeNoticeRepo {
	repo := newFakeNoticeRepo()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n-%04d", i)
		repo.notices[id] = domain.Notice{
			ID:          id,
			UserID:      &userID,
			DebtorName:  "Débiteur " + id,
			Amount:      decimal.RequireFromString("100.25"),
			Currency:    "EUR",
			EmailStatus: domain.EmailStatusSkipped,
			CreatedAt:   fixedNow,
		}
	}
	return repo
}

func newTestReports(t *testing.T, repo *fakeNoticeRepo, store clients.FileStore) (*ReportService, *ExportService, *recordingNotifier) {
	t.Helper()
	exports, _ := newTestExports(t)
	ws := &recordingNotifier{}
	s := NewReportService(repo, exports, store, ws, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s, exports, ws
}

func TestReportService_ExportsEveryPage(t *testing.T) {
	repo := seededRepo(1200, 7)
	repo.notices["other"] = domain.Notice{ID: "other", UserID: int64Ptr(8)}
	store := newMemStore()
	s, exports, ws := newTestReports(t, repo, store)

	key, err := s.StartNoticesExport(context.Background(), []string{"debtor_name", "amount", "bogus"}, repository.NoticesFilter{UserID: int64Ptr(8)}, 7)
	require.NoError(t, err)
	s.Wait()

	require.Len(t, repo.lists, 3)
	for i, f := range repo.lists {
		require.NotNil(t, f.UserID)
		assert.Equal(t, int64(7), *f.UserID)
		assert.Equal(t, reportPageSize, f.Limit)
		assert.Equal(t, i*reportPageSize, f.Offset)
	}

	fileName := "mises-en-demeure_20261018_093000.xlsx"
	data, ok := store.files["k_"+fileName]
	require.True(t, ok)
	assert.Equal(t, xlsxContentType, store.types["k_"+fileName])

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1201)
	assert.Equal(t, []string{"Débiteur", "Montant"}, rows[0])
	assert.Equal(t, []string{"Débiteur n-0000", "100.25"}, rows[1])

	v, err := exports.GetExport(context.Background(), key, 7)
	require.NoError(t, err)
	assert.Equal(t, float64(100), v.Progress)
	assert.Equal(t, "ready", v.Stage)
	require.NotNil(t, v.FileURL)
	assert.Equal(t, "https://files.test/k_"+fileName, *v.FileURL)
	assert.Equal(t, fileName, v.FileName)

	var progress []float64
	for _, e := range ws.events {
		if e.Type == clients.MessageExportProgress {
			progress = append(progress, e.Progress)
		}
	}
	assert.Equal(t, []float64{42, 83, 95, 95, 100}, progress)
	assert.Equal(t, clients.MessageExportComplete, ws.types()[len(ws.events)-1])
}

func TestReportService_DefaultColumns(t *testing.T) {
	store := newMemStore()
	s, _, _ := newTestReports(t, seededRepo(1, 7), store)

	_, err := s.StartNoticesExport(context.Background(), nil, repository.NoticesFilter{}, 7)
	require.NoError(t, err)
	s.Wait()

	f, err := excelize.OpenReader(bytes.NewReader(store.files["k_mises-en-demeure_20261018_093000.xlsx"]))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(defaultNoticeColumns))
	assert.Equal(t, "Date d'émission", rows[0][0])
	assert.Equal(t, "18/10/2026 09:30", rows[1][0])
}

func TestReportService_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errBoom
	s, exports, ws := newTestReports(t, seededRepo(3, 7), store)

	key, err := s.StartNoticesExport(context.Background(), nil, repository.NoticesFilter{}, 7)
	require.NoError(t, err)
	s.Wait()

	v, err := exports.GetExport(context.Background(), key, 7)
	require.NoError(t, err)
	assert.Equal(t, "failed", v.Stage)
	assert.True(t, strings.HasPrefix(v.Error, "store xlsx:"))
	assert.Nil(t, v.FileURL)

	types := ws.types()
	assert.Equal(t, clients.MessageExportFailed, types[len(types)-1])
}

func TestBuildNoticesFiltersMap(t *testing.T) {
	debtor := "Dupont"
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := buildNoticesFiltersMap(repository.NoticesFilter{Debtor: &debtor, CreatedFrom: &from}, []string{"id"})

	assert.Equal(t, "Dupont", m["debtor"])
	assert.Equal(t, "2026-01-01", m["created_from"])
	assert.Nil(t, m["currency"])
	assert.Nil(t, m["created_to"])
	assert.Equal(t, []string{"id"}, m["fields"])
}
