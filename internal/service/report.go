package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"yesod/internal/clients"
	"yesod/internal/domain"
	"yesod/internal/metrics"
	"yesod/internal/repository"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	reportPageSize  = 500
	reportSheet     = "Mises en demeure"
)

type NoticeLister interface {
	List(ctx context.Context, f repository.NoticesFilter) ([]domain.Notice, error)
	Count(ctx context.Context, f repository.NoticesFilter) (int64, error)
}

type ExportNotifier interface {
	NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error
	NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error
	NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error
}

type NoticeColumn struct {
	Header string
	Value  func(n domain.Notice) any
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

var noticeColumns = map[string]NoticeColumn{
	"created_at": {
		Header: "Date d'émission",
		Value:  func(n domain.Notice) any { return n.CreatedAt.Format("02/01/2006 15:04") },
	},
	"id": {
		Header: "Référence",
		Value:  func(n domain.Notice) any { return n.ID },
	},
	"creditor_name": {
		Header: "Créancier",
		Value:  func(n domain.Notice) any { return n.CreditorName },
	},
	"debtor_name": {
		Header: "Débiteur",
		Value:  func(n domain.Notice) any { return n.DebtorName },
	},
	"invoice_number": {
		Header: "Facture n°",
		Value:  func(n domain.Notice) any { return n.InvoiceNumber },
	},
	"amount": {
		Header: "Montant",
		Value:  func(n domain.Notice) any { return n.Amount.InexactFloat64() },
	},
	"currency": {
		Header: "Devise",
		Value:  func(n domain.Notice) any { return n.Currency },
	},
	"pages": {
		Header: "Pages",
		Value:  func(n domain.Notice) any { return n.Pages },
	},
	"email_to": {
		Header: "Destinataire",
		Value:  func(n domain.Notice) any { return strPtr(n.EmailTo) },
	},
	"email_status": {
		Header: "Envoi",
		Value:  func(n domain.Notice) any { return n.EmailStatus },
	},
	"email_error": {
		Header: "Erreur d'envoi",
		Value:  func(n domain.Notice) any { return strPtr(n.EmailError) },
	},
	"file_name": {
		Header: "Fichier",
		Value:  func(n domain.Notice) any { return n.FileName },
	},
}

var defaultNoticeColumns = []string{
	"created_at",
	"debtor_name",
	"creditor_name",
	"invoice_number",
	"amount",
	"currency",
	"email_status",
}

// ReportService builds XLSX registers of archived notices in the background.
type ReportService struct {
	repo    NoticeLister
	exports *ExportService
	store   clients.FileStore
	ws      ExportNotifier
	logger  *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewReportService(
	repo NoticeLister,
	exports *ExportService,
	store clients.FileStore,
	ws ExportNotifier,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		repo:    repo,
		exports: exports,
		store:   store,
		ws:      ws,
		logger:  logger,
		now:     time.Now,
	}
}

// StartNoticesExport registers the export and returns its id at once. Unknown
// column keys are ignored.
func (s *ReportService) StartNoticesExport(
	ctx context.Context,
	selected []string,
	filter repository.NoticesFilter,
	userID int64,
) (string, error) {
	var cols []NoticeColumn
	for _, key := range selected {
		if col, ok := noticeColumns[key]; ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		selected = defaultNoticeColumns
		for _, key := range selected {
			cols = append(cols, noticeColumns[key])
		}
	}

	filter.UserID = &userID
	filter.Limit, filter.Offset = 0, 0

	status := &ExportStatus{
		Key:     s.exports.NewKey(),
		Type:    "notices",
		UserID:  userID,
		Filters: buildNoticesFiltersMap(filter, selected),
		Created: s.now(),
	}
	if err := s.exports.Save(ctx, status); err != nil {
		return "", fmt.Errorf("save export status: %w", err)
	}

	metrics.ExportsActive.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer metrics.ExportsActive.Dec()
		s.runNoticesExport(context.Background(), status, cols, filter)
	}()

	return status.Key, nil
}

// Wait blocks until every started export has finished.
func (s *ReportService) Wait() {
	s.wg.Wait()
}

func (s *ReportService) progress(ctx context.Context, st *ExportStatus, progress float64, stage string) {
	st.Progress = progress
	st.Stage = stage
	if err := s.exports.Save(ctx, st); err != nil {
		s.logger.Warn("save export status", zap.String("export_id", st.Key), zap.Error(err))
	}
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, st.UserID, st.Key, progress, stage)
	}
}

func (s *ReportService) fail(ctx context.Context, st *ExportStatus, err error) {
	s.logger.Error("notices export failed", zap.String("export_id", st.Key), zap.Error(err))
	metrics.NoticeExports.WithLabelValues(metrics.ResultFailure).Inc()

	st.Stage = "failed"
	st.Error = err.Error()
	_ = s.exports.Save(ctx, st)
	if s.ws != nil {
		_ = s.ws.NotifyExportFailed(ctx, st.UserID, st.Key, err.Error())
	}
}

func (s *ReportService) runNoticesExport(ctx context.Context, st *ExportStatus, cols []NoticeColumn, filter repository.NoticesFilter) {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.fail(ctx, st, fmt.Errorf("count notices: %w", err))
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), reportSheet)
	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("user_%d", st.UserID),
		Title:   "Registre des mises en demeure",
	})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(reportSheet, cell, col.Header)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		_ = f.SetCellStyle(reportSheet, "A1", last, style)
	}

	rowIdx := 2
	written := 0
	page := filter
	page.Limit = reportPageSize
	for {
		notices, err := s.repo.List(ctx, page)
		if err != nil {
			s.fail(ctx, st, fmt.Errorf("list notices: %w", err))
			return
		}

		for _, n := range notices {
			for colIdx, col := range cols {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
				_ = f.SetCellValue(reportSheet, cell, col.Value(n))
			}
			rowIdx++
		}
		written += len(notices)

		if total > 0 && len(notices) > 0 {
			// 100 is reserved for when the file URL is ready
			progress := math.Min(95, math.Round(float64(written)/float64(total)*100))
			s.progress(ctx, st, progress, "generating")
		}

		if len(notices) < reportPageSize {
			break
		}
		page.Offset += reportPageSize
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.fail(ctx, st, fmt.Errorf("write xlsx: %w", err))
		return
	}

	fileName := fmt.Sprintf("mises-en-demeure_%s.xlsx", s.now().Format("20060102_150405"))

	s.progress(ctx, st, 95, "uploading")

	key, err := s.store.Save(ctx, fileName, buf.Bytes(), xlsxContentType)
	if err != nil {
		s.fail(ctx, st, fmt.Errorf("store xlsx: %w", err))
		return
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		s.fail(ctx, st, fmt.Errorf("file url: %w", err))
		return
	}

	st.FileURL = &url
	st.FileName = fileName
	s.progress(ctx, st, 100, "ready")
	if s.ws != nil {
		_ = s.ws.NotifyExportComplete(ctx, st.UserID, st.Key, url, fileName)
	}

	metrics.NoticeExports.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("notices export ready",
		zap.String("export_id", st.Key),
		zap.Int("rows", written),
		zap.String("file", key))
}

func buildNoticesFiltersMap(f repository.NoticesFilter, fields []string) map[string]interface{} {
	m := map[string]interface{}{
		"debtor":       nil,
		"currency":     nil,
		"email_status": nil,
		"created_from": nil,
		"created_to":   nil,
		"fields":       fields,
	}
	if f.Debtor != nil {
		m["debtor"] = *f.Debtor
	}
	if f.Currency != nil {
		m["currency"] = *f.Currency
	}
	if f.EmailStatus != nil {
		m["email_status"] = *f.EmailStatus
	}
	if f.CreatedFrom != nil {
		m["created_from"] = f.CreatedFrom.Format("2006-01-02")
	}
	if f.CreatedTo != nil {
		m["created_to"] = f.CreatedTo.Format("2006-01-02")
	}
	return m
}
