package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"yesod/internal/domain"
)

const userTokenableType = "App\\Models\\User"

var ErrTokenNotFound = errors.New("token not found")

type PersonalAccessTokenRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *zap.Logger
	now    func() time.Time
}

func NewPersonalAccessTokenRepository(db *sql.DB, logger *zap.Logger) *PersonalAccessTokenRepository {
	return &PersonalAccessTokenRepository{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
		now:    time.Now,
	}
}

// HashToken is the value Sanctum stores in personal_access_tokens.token.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// FindTokenByPlainToken resolves a bearer token of the form "<id>|<secret>"
// or a bare secret. Expired tokens are not returned.
func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, ErrTokenNotFound
	}

	var (
		tokenID   *int64
		tokenPart = plainToken
	)
	if idx := strings.Index(plainToken, "|"); idx > 0 {
		tokenPart = plainToken[idx+1:]
		if id, err := strconv.ParseInt(plainToken[:idx], 10, 64); err == nil {
			tokenID = &id
		} else {
			r.logger.Debug("token id prefix is not numeric", zap.Error(err))
		}
	}

	hash := HashToken(tokenPart)
	now := r.now()

	if tokenID != nil {
		pat, err := r.queryOne(ctx, r.baseSelect(now).Where(sq.Eq{"id": *tokenID}))
		switch {
		case err == nil && pat.TokenHash == hash:
			return pat, nil
		case err == nil:
			r.logger.Debug("token hash mismatch", zap.Int64("token_id", *tokenID))
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}
	}

	pat, err := r.queryOne(ctx, r.baseSelect(now).
		Where(sq.Eq{"token": hash}).
		OrderBy("created_at DESC").
		Limit(1))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return pat, nil
}

func (r *PersonalAccessTokenRepository) baseSelect(now time.Time) sq.SelectBuilder {
	return r.sb.Select("id", "token", "tokenable_id", "abilities", "expires_at").
		From("personal_access_tokens").
		Where(sq.Eq{"tokenable_type": userTokenableType}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": now}})
}

func (r *PersonalAccessTokenRepository) queryOne(ctx context.Context, q sq.SelectBuilder) (*domain.PersonalAccessToken, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build token query: %w", err)
	}

	var pat domain.PersonalAccessToken
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&pat.ID,
		&pat.TokenHash,
		&pat.UserID,
		&pat.Abilities,
		&pat.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &pat, nil
}
