package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colindex/colindex/colindex/errs"
	"github.com/colindex/colindex/colindex/reconcile"
	"github.com/colindex/colindex/colindex/storage"
)

// CursorMode specifies how a next-page cursor is handed out.
type CursorMode string

const (
	// CursorFull returns the whole position as a base64url token.
	CursorFull CursorMode = "full"
	// CursorShort stores the position and returns a c:<handle> token.
	CursorShort CursorMode = "short"
)

const shortCursorPrefix = "c:"

// CursorStore turns cursors into tokens and back.
type CursorStore interface {
	Resolve(ctx context.Context, token string) (*reconcile.Cursor, error)
	Store(ctx context.Context, c reconcile.Cursor, mode CursorMode) (string, error)
}

// DBCursorStore keeps short cursors in the cursor_store table. Full
// tokens are decoded without touching the database.
type DBCursorStore struct {
	db   *sql.DB
	sqlt storage.SQL
	ttl  time.Duration
	now  func() time.Time
}

func NewDBCursorStore(db *sql.DB, sqlt storage.SQL, ttl time.Duration) *DBCursorStore {
	return &DBCursorStore{
		db:   db,
		sqlt: sqlt,
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *DBCursorStore) Resolve(ctx context.Context, token string) (*reconcile.Cursor, error) {
	if IsShortCursorToken(token) {
		return s.resolveShort(ctx, strings.TrimPrefix(token, shortCursorPrefix))
	}
	return resolveFull(token)
}

func (s *DBCursorStore) Store(ctx context.Context, c reconcile.Cursor, mode CursorMode) (string, error) {
	if mode == CursorShort {
		return s.storeShort(ctx, c)
	}
	return reconcile.EncodeCursor(c)
}

// CleanupExpired removes expired short cursors.
func (s *DBCursorStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.sqlt.CleanupExpiredCursors, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup cursors: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *DBCursorStore) resolveShort(ctx context.Context, handle string) (*reconcile.Cursor, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, s.sqlt.GetCursor, handle).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Cursor("cursor expired or not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query cursor: %w", err)
	}
	if s.now().UnixMilli() > expiresAt {
		return nil, errs.Cursor("cursor expired")
	}

	var c reconcile.Cursor
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, errs.Cursor("cursor json parse error")
	}
	return &c, nil
}

func (s *DBCursorStore) storeShort(ctx context.Context, c reconcile.Cursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	handle := strings.ReplaceAll(uuid.NewString(), "-", "")

	now := s.now().UnixMilli()
	expiresAt := now + s.ttl.Milliseconds()
	if _, err := s.db.ExecContext(ctx, s.sqlt.PutCursor, handle, string(payload), now, expiresAt); err != nil {
		return "", fmt.Errorf("store cursor: %w", err)
	}
	return shortCursorPrefix + handle, nil
}

func resolveFull(token string) (*reconcile.Cursor, error) {
	c, err := reconcile.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IsShortCursorToken reports whether token is a c:<handle> token.
func IsShortCursorToken(token string) bool {
	return strings.HasPrefix(token, shortCursorPrefix)
}

// FullCursorStore hands out full tokens only. Short tokens cannot be
// resolved.
type FullCursorStore struct{}

func (FullCursorStore) Resolve(_ context.Context, token string) (*reconcile.Cursor, error) {
	if IsShortCursorToken(token) {
		return nil, errs.Cursor("short cursors need a database")
	}
	return resolveFull(token)
}

func (FullCursorStore) Store(_ context.Context, c reconcile.Cursor, _ CursorMode) (string, error) {
	return reconcile.EncodeCursor(c)
}
