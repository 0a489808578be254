package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// SQLStore implements Store on top of database/sql. The dedup key is a
// UNIQUE constraint on (platform, page, date, text); inserts use
// ON CONFLICT DO NOTHING so concurrent identical inserts converge to exactly
// one stored row without any application-level locking.
type SQLStore struct {
	dialect Dialect
	driver  string
	dsn     string
	openDB  sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewSQLStore(dialect Dialect, driver, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("%w: unsupported dialect %q", ErrInvalidInput, dialect)
	}
	return &SQLStore{
		dialect: dialect,
		driver:  driver,
		dsn:     dsn,
		openDB:  sql.Open,
	}, nil
}

func (s *SQLStore) schemaStatements() []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS posts (
			id %s,
			platform TEXT NOT NULL, page TEXT NOT NULL, post_id TEXT DEFAULT '',
			date TEXT NOT NULL, type TEXT DEFAULT 'Post', text TEXT DEFAULT '',
			reach INTEGER DEFAULT 0, impressions INTEGER DEFAULT 0,
			likes INTEGER DEFAULT 0, comments INTEGER DEFAULT 0,
			shares INTEGER DEFAULT 0, clicks INTEGER DEFAULT 0,
			engagement INTEGER DEFAULT 0, engagement_rate REAL DEFAULT 0.0,
			theme TEXT DEFAULT '', campaign TEXT DEFAULT '',
			source_file TEXT DEFAULT '', created_at TEXT NOT NULL,
			UNIQUE(platform, page, date, text)
		)`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS uploads (
			id %s,
			filename TEXT NOT NULL, platform TEXT NOT NULL,
			page TEXT DEFAULT '', post_count INTEGER DEFAULT 0,
			uploaded_at TEXT NOT NULL
		)`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS follower_snapshots (
			id %s,
			platform TEXT NOT NULL, page TEXT NOT NULL,
			month TEXT NOT NULL, followers INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			UNIQUE(platform, page, month)
		)`, serial),
	}
}

func (s *SQLStore) ensureReady() error {
	if s == nil {
		return ErrInvalidInput
	}
	s.initOnce.Do(func() {
		db, err := s.openDB(s.driver, s.dsn)
		if err != nil {
			s.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if s.dialect == DialectSQLite {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				_ = db.Close()
				s.initErr = err
				return
			}
			// modernc.org/sqlite serializes writers itself; a pool of one
			// connection avoids SQLITE_BUSY on concurrent inserts.
			db.SetMaxOpenConns(1)
		}
		for _, stmt := range s.schemaStatements() {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				s.initErr = err
				return
			}
		}
		s.db = db
	})
	return s.initErr
}

// rebind rewrites ? placeholders to the $n form Postgres expects. Queries in
// this file are written with ? and rebound per dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) InsertPosts(ctx context.Context, posts []Post, platform, page string) (int, error) {
	if strings.TrimSpace(platform) == "" || strings.TrimSpace(page) == "" {
		return 0, ErrInvalidInput
	}
	if err := s.ensureReady(); err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	query := s.rebind(`INSERT INTO posts (platform, page, post_id, date, type, text,
			reach, impressions, likes, comments, shares, clicks,
			engagement, engagement_rate, theme, campaign, source_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, page, date, text) DO NOTHING`)

	inserted := 0
	for _, post := range posts {
		if strings.TrimSpace(post.Date) == "" {
			continue
		}
		engagement, rate := DerivedMetrics(post.Likes, post.Comments, post.Shares, post.Reach)
		result, err := s.db.ExecContext(ctx, query,
			platform, page, post.PostID, post.Date, post.Type, post.Text,
			post.Reach, post.Impressions, post.Likes, post.Comments, post.Shares, post.Clicks,
			engagement, rate, post.Theme, post.Campaign, post.SourceFile, now)
		if err != nil {
			// A constraint failure loses that single record only; the rest
			// of the batch proceeds.
			continue
		}
		affected, err := result.RowsAffected()
		if err == nil && affected > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (s *SQLStore) RelabelPost(ctx context.Context, id int64, theme, campaign string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	query := s.rebind("UPDATE posts SET theme = ?, campaign = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, theme, campaign, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListPosts(ctx context.Context, filter PostFilter) ([]Post, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	query := "SELECT id, platform, page, post_id, date, type, text, reach, impressions, likes, comments, shares, clicks, engagement, engagement_rate, theme, campaign, source_file, created_at FROM posts WHERE 1=1"
	args := []any{}
	if filter.Platform != "" {
		query += " AND platform = ?"
		args = append(args, filter.Platform)
	}
	if filter.Page != "" {
		query += " AND page = ?"
		args = append(args, filter.Page)
	}
	query += " ORDER BY date DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Platform, &p.Page, &p.PostID, &p.Date, &p.Type, &p.Text,
			&p.Reach, &p.Impressions, &p.Likes, &p.Comments, &p.Shares, &p.Clicks,
			&p.Engagement, &p.EngagementRate, &p.Theme, &p.Campaign, &p.SourceFile, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *SQLStore) MonthlyStats(ctx context.Context, platform string) ([]MonthlyStat, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	// Dates are stored as ISO-8601 text, so the calendar month is the first
	// seven characters; substr is portable across both dialects.
	query := `SELECT platform, page, substr(date, 1, 7) AS month,
			COUNT(*), SUM(likes), SUM(comments), SUM(shares),
			SUM(engagement), SUM(reach), SUM(impressions)
		FROM posts WHERE 1=1`
	args := []any{}
	if platform != "" {
		query += " AND platform = ?"
		args = append(args, platform)
	}
	query += " GROUP BY platform, page, month ORDER BY month DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]MonthlyStat, 0)
	for rows.Next() {
		var m MonthlyStat
		if err := rows.Scan(&m.Platform, &m.Page, &m.Month, &m.TotalPosts, &m.TotalLikes,
			&m.TotalComments, &m.TotalShares, &m.TotalEngagement, &m.TotalReach, &m.TotalImpressions); err != nil {
			return nil, err
		}
		stats = append(stats, m)
	}
	return stats, rows.Err()
}

func (s *SQLStore) LogUpload(ctx context.Context, entry UploadEntry) error {
	if strings.TrimSpace(entry.Filename) == "" || strings.TrimSpace(entry.Platform) == "" {
		return ErrInvalidInput
	}
	if err := s.ensureReady(); err != nil {
		return err
	}
	uploadedAt := strings.TrimSpace(entry.UploadedAt)
	if uploadedAt == "" {
		uploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	query := s.rebind("INSERT INTO uploads (filename, platform, page, post_count, uploaded_at) VALUES (?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, entry.Filename, entry.Platform, entry.Page, entry.PostCount, uploadedAt)
	return err
}

func (s *SQLStore) ListUploads(ctx context.Context) ([]UploadEntry, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, filename, platform, page, post_count, uploaded_at FROM uploads ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]UploadEntry, 0)
	for rows.Next() {
		var e UploadEntry
		if err := rows.Scan(&e.ID, &e.Filename, &e.Platform, &e.Page, &e.PostCount, &e.UploadedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) SaveFollowerSnapshot(ctx context.Context, snapshot FollowerSnapshot) error {
	if strings.TrimSpace(snapshot.Platform) == "" || strings.TrimSpace(snapshot.Page) == "" {
		return ErrInvalidInput
	}
	if err := s.ensureReady(); err != nil {
		return err
	}
	month := strings.TrimSpace(snapshot.Month)
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	recordedAt := strings.TrimSpace(snapshot.RecordedAt)
	if recordedAt == "" {
		recordedAt = time.Now().UTC().Format(time.RFC3339)
	}
	query := s.rebind(`INSERT INTO follower_snapshots (platform, page, month, followers, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (platform, page, month)
		DO UPDATE SET followers = excluded.followers, recorded_at = excluded.recorded_at`)
	_, err := s.db.ExecContext(ctx, query, snapshot.Platform, snapshot.Page, month, snapshot.Followers, recordedAt)
	return err
}

func (s *SQLStore) FollowerCount(ctx context.Context, platform, page, month string) (int, bool, error) {
	if err := s.ensureReady(); err != nil {
		return 0, false, err
	}
	query := s.rebind("SELECT followers FROM follower_snapshots WHERE platform = ? AND page = ? AND month = ?")
	var followers int
	err := s.db.QueryRowContext(ctx, query, platform, page, month).Scan(&followers)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return followers, true, nil
}

func (s *SQLStore) PreviousFollowerCount(ctx context.Context, platform, page, before string) (int, bool, error) {
	if err := s.ensureReady(); err != nil {
		return 0, false, err
	}
	if strings.TrimSpace(before) == "" {
		before = time.Now().UTC().Format("2006-01")
	}
	query := s.rebind("SELECT followers FROM follower_snapshots WHERE platform = ? AND page = ? AND month < ? ORDER BY month DESC LIMIT 1")
	var followers int
	err := s.db.QueryRowContext(ctx, query, platform, page, before).Scan(&followers)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return followers, true, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
