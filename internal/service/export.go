package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"yesod/internal/clients"
)

var ErrExportNotFound = errors.New("export not found")

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

// ExportCache is the subset of RedisClient export statuses are kept in.
type ExportCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SRem(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	Stage    string    `json:"stage,omitempty"`
	FileURL  *string   `json:"file_url"`
	FileName string    `json:"file_name,omitempty"`
	Error    string    `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

// ExportView is an ExportStatus as listed to its owner.
type ExportView struct {
	Key       string  `json:"key"`
	Type      string  `json:"type"`
	UserID    int64   `json:"user_id"`
	Progress  float64 `json:"progress"`
	Stage     string  `json:"stage,omitempty"`
	FileURL   *string `json:"file_url"`
	FileName  string  `json:"file_name,omitempty"`
	Error     string  `json:"error,omitempty"`
	Filters   any     `json:"filters"`
	CreatedAt string  `json:"created_at"`
}

// ExportService tracks asynchronous exports in the cache so any instance can
// report on them.
type ExportService struct {
	cache       ExportCache
	cachePrefix string
	now         func() time.Time
}

func NewExportService(cache ExportCache, cachePrefix string) *ExportService {
	if cachePrefix == "" {
		cachePrefix = "exports:"
	}
	return &ExportService{
		cache:       cache,
		cachePrefix: cachePrefix,
		now:         time.Now,
	}
}

// NewKey returns a fresh export id.
func (s *ExportService) NewKey() string {
	return s.cachePrefix + uuid.NewString()
}

// Save stores st and indexes it for GetExports.
func (s *ExportService) Save(ctx context.Context, st *ExportStatus) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}
	return s.cache.SAdd(ctx, exportSetKey, st.Key)
}

func (s *ExportService) load(ctx context.Context, key string) (*ExportStatus, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var st ExportStatus
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}
	return &st, nil
}

// GetExports lists the exports of userID, newest first. Index entries whose
// status expired are dropped.
func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]ExportView, error) {
	if s.cache == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.cache.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []*ExportStatus
	for _, key := range keys {
		st, err := s.load(ctx, key)
		if errors.Is(err, clients.ErrCacheMiss) {
			_ = s.cache.SRem(ctx, exportSetKey, key)
			continue
		}
		if err != nil {
			continue
		}
		if st.UserID == userID {
			statuses = append(statuses, st)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	exports := make([]ExportView, 0, len(statuses))
	for _, st := range statuses {
		exports = append(exports, s.view(st))
	}
	return exports, nil
}

func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (*ExportView, error) {
	if s.cache == nil {
		return nil, errors.New("redis client not configured")
	}

	st, err := s.load(ctx, exportID)
	if errors.Is(err, clients.ErrCacheMiss) {
		return nil, ErrExportNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.UserID != userID {
		return nil, ErrExportNotFound
	}

	v := s.view(st)
	return &v, nil
}

func (s *ExportService) view(st *ExportStatus) ExportView {
	return ExportView{
		Key:       st.Key,
		Type:      st.Type,
		UserID:    st.UserID,
		Progress:  st.Progress,
		Stage:     st.Stage,
		FileURL:   st.FileURL,
		FileName:  st.FileName,
		Error:     st.Error,
		Filters:   st.Filters,
		CreatedAt: humanizeFrAgo(st.Created, s.now()),
	}
}

func humanizeFrAgo(t, now time.Time) string {
	if t.After(now) {
		return "à l'instant"
	}

	minutes := int(now.Sub(t).Minutes())
	if minutes < 1 {
		return "à l'instant"
	}
	if minutes < 60 {
		return fmt.Sprintf("il y a %d %s", minutes, frPlural(minutes, "minute", "minutes"))
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("il y a %d %s", hours, frPlural(hours, "heure", "heures"))
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("il y a %d %s", days, frPlural(days, "jour", "jours"))
	}
	return t.Format("02/01/2006 15:04")
}

func frPlural(n int, one, many string) string {
	if n < 2 {
		return one
	}
	return many
}
