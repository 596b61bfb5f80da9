package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yesod/internal/clients"
	"yesod/internal/domain"
	"yesod/internal/metrics"
	"yesod/internal/notice"
	"yesod/internal/repository"
)

var (
	ErrNoticeNotFound   = errors.New("notice not found")
	ErrDeliveryDisabled = errors.New("email delivery is disabled")
)

const (
	pdfContentType    = "application/pdf"
	backgroundTimeout = 2 * time.Minute
)

type NoticeRenderer interface {
	Generate(req domain.NoticeRequest) (*notice.Document, error)
}

type NoticeRepository interface {
	Create(ctx context.Context, n *domain.Notice) error
	Get(ctx context.Context, id string) (*domain.Notice, error)
	List(ctx context.Context, f repository.NoticesFilter) ([]domain.Notice, error)
	Count(ctx context.Context, f repository.NoticesFilter) (int64, error)
	UpdateDelivery(ctx context.Context, id, emailTo, status string, deliveryErr *string) error
}

type Mailer interface {
	Send(ctx context.Context, msg clients.Email) (string, error)
}

type NoticeNotifier interface {
	NotifyNoticeArchived(ctx context.Context, userID int64, noticeID, filename string, pages int) error
	NotifyNoticeDelivered(ctx context.Context, userID int64, noticeID, recipient string) error
	NotifyNoticeDeliveryFailed(ctx context.Context, userID int64, noticeID, recipient, errMsg string) error
}

// GeneratedNotice is a rendered notice ready to be returned to the caller.
// NoticeID is empty when archiving is disabled.
type GeneratedNotice struct {
	Data     []byte
	Pages    int
	FileName string
	NoticeID string
}

type NoticeServiceOptions struct {
	// Archive stores every generated notice and its metadata.
	Archive bool
}

// NoticeService renders notices and, after the document is handed back,
// archives and mails them in the background.
type NoticeService struct {
	renderer NoticeRenderer
	repo     NoticeRepository
	store    clients.FileStore
	mailer   Mailer
	ws       NoticeNotifier
	logger   *zap.Logger
	opts     NoticeServiceOptions

	now   func() time.Time
	newID func() string
	wg    sync.WaitGroup
}

// NewNoticeService wires the notice pipeline. mailer may be nil, in which
// case email requests are recorded as skipped.
func NewNoticeService(
	renderer NoticeRenderer,
	repo NoticeRepository,
	store clients.FileStore,
	mailer Mailer,
	ws NoticeNotifier,
	logger *zap.Logger,
	opts NoticeServiceOptions,
) *NoticeService {
	return &NoticeService{
		renderer: renderer,
		repo:     repo,
		store:    store,
		mailer:   mailer,
		ws:       ws,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Generate renders req. Archiving and delivery never change the result.
func (s *NoticeService) Generate(ctx context.Context, req domain.NoticeRequest, userID *int64) (*GeneratedNotice, error) {
	start := time.Now()
	doc, err := s.renderer.Generate(req)
	metrics.NoticeGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.NoticesGenerated.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, err
	}
	metrics.NoticesGenerated.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.NoticePages.Observe(float64(doc.Pages))

	out := &GeneratedNotice{
		Data:     doc.Data,
		Pages:    doc.Pages,
		FileName: notice.Filename(req.DebtorName),
	}

	if s.opts.Archive && s.repo != nil && s.store != nil {
		out.NoticeID = s.newID()
		s.background(func(ctx context.Context) {
			s.archive(ctx, out, req, userID)
		})
	} else if req.WantsEmail() && s.mailer != nil {
		s.background(func(ctx context.Context) {
			_ = s.send(ctx, req.RecipientEmail, out.FileName, out.Data)
		})
	}

	return out, nil
}

func (s *NoticeService) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until background archiving and delivery have finished.
func (s *NoticeService) Wait() {
	s.wg.Wait()
}

func (s *NoticeService) archive(ctx context.Context, doc *GeneratedNotice, req domain.NoticeRequest, userID *int64) {
	log := s.logger.With(zap.String("notice_id", doc.NoticeID))

	key, err := s.store.Save(ctx, doc.FileName, doc.Data, pdfContentType)
	if err != nil {
		metrics.NoticesArchived.WithLabelValues(metrics.ResultFailure).Inc()
		log.Error("store notice file", zap.Error(err))
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	n := &domain.Notice{
		ID:            doc.NoticeID,
		UserID:        userID,
		CreditorName:  req.CreditorName,
		DebtorName:    req.DebtorName,
		InvoiceNumber: req.InvoiceNumber,
		Amount:        decimal.NewFromFloat(req.Amount.Float()).Round(2),
		Currency:      currency,
		FileKey:       key,
		FileName:      doc.FileName,
		Pages:         doc.Pages,
		Size:          int64(len(doc.Data)),
		EmailStatus:   domain.EmailStatusSkipped,
		CreatedAt:     s.now(),
	}

	deliver := false
	if req.WantsEmail() {
		to := req.RecipientEmail
		n.EmailTo = &to
		if s.mailer != nil {
			n.EmailStatus = domain.EmailStatusPending
			deliver = true
		} else {
			reason := ErrDeliveryDisabled.Error()
			n.EmailError = &reason
		}
	}

	if err := s.repo.Create(ctx, n); err != nil {
		metrics.NoticesArchived.WithLabelValues(metrics.ResultFailure).Inc()
		log.Error("insert notice", zap.String("file", key), zap.Error(err))
		return
	}
	metrics.NoticesArchived.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info("notice archived", zap.String("file", key), zap.Int("pages", n.Pages))

	if userID != nil && s.ws != nil {
		_ = s.ws.NotifyNoticeArchived(ctx, *userID, n.ID, n.FileName, n.Pages)
	}

	if deliver {
		s.deliver(ctx, n, req.RecipientEmail, doc.Data)
	}
}

// send mails a notice without recording anything.
func (s *NoticeService) send(ctx context.Context, to, fileName string, data []byte) error {
	_, err := s.mailer.Send(ctx, clients.Email{
		To:      to,
		Subject: "Mise en demeure de payer",
		Body: "Madame, Monsieur,\r\n\r\n" +
			"Veuillez trouver ci-joint une mise en demeure de payer vous concernant.\r\n\r\n" +
			"Nous vous prions d'agréer l'expression de nos salutations distinguées.\r\n",
		Attachments: []clients.Attachment{
			{Name: fileName, ContentType: pdfContentType, Data: data},
		},
	})
	if err != nil {
		metrics.NoticeDeliveries.WithLabelValues(domain.EmailStatusFailed).Inc()
		s.logger.Warn("notice delivery failed", zap.String("recipient", to), zap.Error(err))
		return err
	}
	metrics.NoticeDeliveries.WithLabelValues(domain.EmailStatusSent).Inc()
	return nil
}

// deliver mails an archived notice and records the outcome on it.
func (s *NoticeService) deliver(ctx context.Context, n *domain.Notice, to string, data []byte) {
	log := s.logger.With(zap.String("notice_id", n.ID))

	if err := s.send(ctx, to, n.FileName, data); err != nil {
		reason := err.Error()
		if uerr := s.repo.UpdateDelivery(ctx, n.ID, to, domain.EmailStatusFailed, &reason); uerr != nil {
			log.Error("record delivery failure", zap.Error(uerr))
		}
		if n.UserID != nil && s.ws != nil {
			_ = s.ws.NotifyNoticeDeliveryFailed(ctx, *n.UserID, n.ID, to, reason)
		}
		return
	}

	if err := s.repo.UpdateDelivery(ctx, n.ID, to, domain.EmailStatusSent, nil); err != nil {
		log.Error("record delivery", zap.Error(err))
	}
	log.Info("notice delivered", zap.String("recipient", to))
	if n.UserID != nil && s.ws != nil {
		_ = s.ws.NotifyNoticeDelivered(ctx, *n.UserID, n.ID, to)
	}
}

// Get returns the notice id owned by userID.
func (s *NoticeService) Get(ctx context.Context, id string, userID int64) (*domain.Notice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNoticeNotFound
	}

	n, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoticeNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.UserID == nil || *n.UserID != userID {
		return nil, ErrNoticeNotFound
	}
	return n, nil
}

// List returns one page of the notices of userID and the total matching f.
func (s *NoticeService) List(ctx context.Context, f repository.NoticesFilter, userID int64) ([]domain.Notice, int64, error) {
	f.UserID = &userID

	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// DownloadURL returns a URL the archived file of a notice can be fetched from.
func (s *NoticeService) DownloadURL(ctx context.Context, id string, userID int64) (string, error) {
	n, err := s.Get(ctx, id, userID)
	if err != nil {
		return "", err
	}
	return s.store.URL(ctx, n.FileKey)
}

// Resend mails an archived notice to a new recipient in the background.
func (s *NoticeService) Resend(ctx context.Context, id string, userID int64, to string) error {
	if s.mailer == nil {
		return ErrDeliveryDisabled
	}

	n, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	rc, err := s.store.Open(ctx, n.FileKey)
	if err != nil {
		return fmt.Errorf("open notice file: %w", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("read notice file: %w", err)
	}

	if err := s.repo.UpdateDelivery(ctx, n.ID, to, domain.EmailStatusPending, nil); err != nil {
		return err
	}

	s.background(func(ctx context.Context) {
		s.deliver(ctx, n, to, data)
	})
	return nil
}
