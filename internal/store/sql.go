package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/resumark/internal/db"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/util/compression"
	"github.com/google/uuid"
)

// SQLStore keeps resumes in the resumes table with zstd compressed content.
type SQLStore struct { // implements ResumeStore
	db         db.DB
	compressor compression.Compressor
	baseURL    string
}

func NewSQLStore(database db.DB, baseURL string) *SQLStore {
	return &SQLStore{
		db:         database,
		compressor: compression.ZstdCompressor{},
		baseURL:    baseURL,
	}
}

const selectResume = `SELECT id, title, content, md_content_hash, author, tags, user_id, created_at, modified_at, shared_at FROM resumes`

func (s *SQLStore) Persist(ctx context.Context, draft model.Draft) error {
	return s.persist(ctx, draft, time.Now().UTC())
}

func (s *SQLStore) persist(ctx context.Context, draft model.Draft, now time.Time) error {
	resume := resumeFromDraft(draft)

	compressed, err := s.compressor.Compress(resume.Markdown)
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	res, err := s.db.Exec(ctx,
		`INSERT INTO resumes (id, title, content, md_content_hash, author, tags, user_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			md_content_hash = excluded.md_content_hash,
			author = excluded.author,
			tags = excluded.tags,
			user_id = CASE WHEN excluded.user_id = '' THEN resumes.user_id ELSE excluded.user_id END,
			modified_at = excluded.modified_at`,
		resume.ID, resume.Title, compressed, resume.MDContentHash, resume.Author, joinTags(resume.Tags), resume.Owner, now, now,
	)
	if err != nil {
		return fmt.Errorf("error saving resume: %w", err)
	}

	storeLogger.Debug().Interface("result", res).Str("resume_id", string(resume.ID)).Msg("Resume saved")
	return nil
}

func (s *SQLStore) Share(ctx context.Context, draft model.Draft) (model.ShareLink, error) {
	now := time.Now().UTC()

	if err := s.persist(ctx, draft, now); err != nil {
		return model.ShareLink{}, err
	}

	if _, err := s.db.Exec(ctx, `UPDATE resumes SET shared_at = COALESCE(shared_at, ?) WHERE id = ?`, now, draft.ID); err != nil {
		return model.ShareLink{}, fmt.Errorf("error marking resume shared: %w", err)
	}

	// A resume has at most one token; concurrent shares all read the winner.
	if _, err := s.db.Exec(ctx,
		`INSERT INTO shares (token, resume_id, created_at) VALUES (?, ?, ?) ON CONFLICT(resume_id) DO NOTHING`,
		uuid.New().String(), draft.ID, now,
	); err != nil {
		return model.ShareLink{}, fmt.Errorf("error creating share link: %w", err)
	}

	link := model.ShareLink{ResumeID: draft.ID}
	if err := s.db.QueryRow(ctx,
		`SELECT token, created_at FROM shares WHERE resume_id = ?`, draft.ID,
	).Scan(&link.Token, &link.Created); err != nil {
		return model.ShareLink{}, fmt.Errorf("error reading share link: %w", err)
	}

	link.URL = shareURL(s.baseURL, link.Token)
	return link, nil
}

func (s *SQLStore) FetchByID(ctx context.Context, id model.ResumeID) (*model.Resume, error) {
	resume, err := s.scanResume(s.db.QueryRow(ctx, selectResume+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return resume, nil
}

func (s *SQLStore) ListShared(ctx context.Context) ([]model.Resume, error) {
	rows, err := s.db.Query(ctx, selectResume+` WHERE shared_at IS NOT NULL ORDER BY shared_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying shared resumes: %w", err)
	}
	defer rows.Close()

	resumes := make([]model.Resume, 0)
	for rows.Next() {
		resume, err := s.scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, *resume)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shared resumes: %w", err)
	}

	sortBySharedDate(resumes)
	return resumes, nil
}

func (s *SQLStore) ResolveShare(ctx context.Context, token string) (model.ResumeID, error) {
	var id model.ResumeID
	err := s.db.QueryRow(ctx, `SELECT resume_id FROM shares WHERE token = ?`, token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: share %s", ErrNotFound, token)
	}
	if err != nil {
		return "", fmt.Errorf("error resolving share link: %w", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanResume(row scanner) (*model.Resume, error) {
	var (
		resume     model.Resume
		compressed []byte
		tags       string
		sharedAt   sql.NullTime
	)

	err := row.Scan(&resume.ID, &resume.Title, &compressed, &resume.MDContentHash, &resume.Author, &tags,
		&resume.Owner, &resume.CreatedDate, &resume.ModifiedDate, &sharedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning resume: %w", err)
	}

	content, err := s.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content: %w", err)
	}
	resume.Markdown = content
	resume.Tags = splitTags(tags)
	if sharedAt.Valid {
		resume.SharedDate = sharedAt.Time
	}

	return &resume, nil
}
