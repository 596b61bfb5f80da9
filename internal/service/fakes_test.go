package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"yesod/internal/clients"
	"yesod/internal/domain"
	"yesod/internal/notice"
	"yesod/internal/repository"
)

type fakeRenderer struct {
	doc *notice.Document
	err error
}

func (f *fakeRenderer) Generate(req domain.NoticeRequest) (*notice.Document, error) {
	return f.doc, f.err
}

type delivery struct {
	ID, To, Status string
	Err            *string
}

type fakeNoticeRepo struct {
	mu         sync.Mutex
	notices    map[string]domain.Notice
	deliveries []delivery
	createErr  error
	lists      []repository.NoticesFilter
}

func newFakeNoticeRepo(notices ...domain.Notice) *fakeNoticeRepo {
	r := &fakeNoticeRepo{notices: map[string]domain.Notice{}}
	for _, n := range notices {
		r.notices[n.ID] = n
	}
	return r
}

func (r *fakeNoticeRepo) Create(ctx context.Context, n *domain.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.notices[n.ID] = *n
	return nil
}

func (r *fakeNoticeRepo) Get(ctx context.Context, id string) (*domain.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r *fakeNoticeRepo) matching(f repository.NoticesFilter) []domain.Notice {
	var out []domain.Notice
	for _, n := range r.notices {
		if f.UserID != nil && (n.UserID == nil || *n.UserID != *f.UserID) {
			continue
		}
		if f.Currency != nil && n.Currency != *f.Currency {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeNoticeRepo) List(ctx context.Context, f repository.NoticesFilter) ([]domain.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, f)

	all := r.matching(f)
	if f.Offset >= len(all) {
		return nil, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func (r *fakeNoticeRepo) Count(ctx context.Context, f repository.NoticesFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *fakeNoticeRepo) UpdateDelivery(ctx context.Context, id, emailTo, status string, deliveryErr *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notices[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.EmailTo = &emailTo
	n.EmailStatus = status
	n.EmailError = deliveryErr
	r.notices[id] = n
	r.deliveries = append(r.deliveries, delivery{ID: id, To: emailTo, Status: status, Err: deliveryErr})
	return nil
}

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	types map[string]string
	err   error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	key := "k_" + name
	s.files[key] = data
	s.types[key] = contentType
	return key, nil
}

func (s *memStore) URL(ctx context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, clients.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []clients.Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg clients.Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

type event struct {
	Type     string
	UserID   int64
	ID       string
	Progress float64
	Detail   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) add(e event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func (n *recordingNotifier) NotifyNoticeArchived(ctx context.Context, userID int64, noticeID, filename string, pages int) error {
	return n.add(event{Type: clients.MessageNoticeArchived, UserID: userID, ID: noticeID, Detail: filename})
}

func (n *recordingNotifier) NotifyNoticeDelivered(ctx context.Context, userID int64, noticeID, recipient string) error {
	return n.add(event{Type: clients.MessageNoticeDelivered, UserID: userID, ID: noticeID, Detail: recipient})
}

func (n *recordingNotifier) NotifyNoticeDeliveryFailed(ctx context.Context, userID int64, noticeID, recipient, errMsg string) error {
	return n.add(event{Type: clients.MessageNoticeDeliveryFailed, UserID: userID, ID: noticeID, Detail: errMsg})
}

func (n *recordingNotifier) NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	return n.add(event{Type: clients.MessageExportProgress, UserID: userID, ID: exportID, Progress: progress, Detail: stage})
}

func (n *recordingNotifier) NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error {
	return n.add(event{Type: clients.MessageExportComplete, UserID: userID, ID: exportID, Detail: url})
}

func (n *recordingNotifier) NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error {
	return n.add(event{Type: clients.MessageExportFailed, UserID: userID, ID: exportID, Detail: errMsg})
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }
