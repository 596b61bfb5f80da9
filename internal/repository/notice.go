package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"yesod/internal/domain"
)

var ErrNotFound = errors.New("not found")

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type NoticesFilter struct {
	UserID      *int64
	Debtor      *string // case-insensitive substring of the debtor name
	Currency    *string
	EmailStatus *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time // exclusive

	Limit  int
	Offset int
}

var noticeColumns = []string{
	"id",
	"user_id",
	"creditor_name",
	"debtor_name",
	"invoice_number",
	"amount",
	"currency",
	"file_key",
	"file_name",
	"pages",
	"size",
	"email_to",
	"email_status",
	"email_error",
	"created_at",
}

type NoticeRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewNoticeRepository(db *sql.DB) *NoticeRepository {
	return &NoticeRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *NoticeRepository) Create(ctx context.Context, n *domain.Notice) error {
	query, args, err := r.sb.Insert("notices").
		Columns(noticeColumns...).
		Values(
			n.ID,
			n.UserID,
			n.CreditorName,
			n.DebtorName,
			n.InvoiceNumber,
			n.Amount,
			n.Currency,
			n.FileKey,
			n.FileName,
			n.Pages,
			n.Size,
			n.EmailTo,
			n.EmailStatus,
			n.EmailError,
			n.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert notice: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notice %s: %w", n.ID, err)
	}
	return nil
}

func (r *NoticeRepository) Get(ctx context.Context, id string) (*domain.Notice, error) {
	query, args, err := r.sb.Select(noticeColumns...).
		From("notices").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select notice: %w", err)
	}

	n, err := scanNotice(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select notice %s: %w", id, err)
	}
	return n, nil
}

// List returns notices matching f, newest first.
func (r *NoticeRepository) List(ctx context.Context, f NoticesFilter) ([]domain.Notice, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := applyNoticesFilter(r.sb.Select(noticeColumns...).From("notices"), f).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit))
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notices: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var result []domain.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Count ignores f.Limit and f.Offset.
func (r *NoticeRepository) Count(ctx context.Context, f NoticesFilter) (int64, error) {
	query, args, err := applyNoticesFilter(r.sb.Select("COUNT(*)").From("notices"), f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count notices: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count notices: %w", err)
	}
	return total, nil
}

// UpdateDelivery records the outcome of an email delivery attempt.
func (r *NoticeRepository) UpdateDelivery(ctx context.Context, id, emailTo, status string, deliveryErr *string) error {
	query, args, err := r.sb.Update("notices").
		Set("email_to", emailTo).
		Set("email_status", status).
		Set("email_error", deliveryErr).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update delivery: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update delivery of %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update delivery of %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func applyNoticesFilter(q sq.SelectBuilder, f NoticesFilter) sq.SelectBuilder {
	if f.UserID != nil {
		q = q.Where(sq.Eq{"user_id": *f.UserID})
	}
	if f.Debtor != nil && *f.Debtor != "" {
		q = q.Where(sq.ILike{"debtor_name": "%" + *f.Debtor + "%"})
	}
	if f.Currency != nil && *f.Currency != "" {
		q = q.Where(sq.Eq{"currency": *f.Currency})
	}
	if f.EmailStatus != nil && *f.EmailStatus != "" {
		q = q.Where(sq.Eq{"email_status": *f.EmailStatus})
	}
	if f.CreatedFrom != nil {
		q = q.Where(sq.GtOrEq{"created_at": *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		q = q.Where(sq.Lt{"created_at": *f.CreatedTo})
	}
	return q
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotice(row rowScanner) (*domain.Notice, error) {
	var n domain.Notice
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.CreditorName,
		&n.DebtorName,
		&n.InvoiceNumber,
		&n.Amount,
		&n.Currency,
		&n.FileKey,
		&n.FileName,
		&n.Pages,
		&n.Size,
		&n.EmailTo,
		&n.EmailStatus,
		&n.EmailError,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
