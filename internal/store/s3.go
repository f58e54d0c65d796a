package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/util/compression"
	"github.com/google/uuid"
)

const (
	s3ResumeSuffix = ".json.gz"
	s3SharesDir    = "shares/"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// s3Record is the gzip compressed JSON document stored per resume.
type s3Record struct {
	ID         model.ResumeID `json:"id"`
	Title      string         `json:"title"`
	Markdown   string         `json:"markdown"`
	Hash       string         `json:"md_content_hash"`
	Owner      model.UserID   `json:"owner,omitempty"`
	Author     string         `json:"author,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Created    time.Time      `json:"created"`
	Modified   time.Time      `json:"modified"`
	Shared     *time.Time     `json:"shared,omitempty"`
	ShareToken string         `json:"share_token,omitempty"`
}

func (r *s3Record) resume() *model.Resume {
	resume := &model.Resume{
		ID:            r.ID,
		Title:         r.Title,
		Markdown:      []byte(r.Markdown),
		MDContentHash: r.Hash,
		Owner:         r.Owner,
		Author:        r.Author,
		Tags:          r.Tags,
		CreatedDate:   r.Created,
		ModifiedDate:  r.Modified,
	}
	if r.Shared != nil {
		resume.SharedDate = *r.Shared
	}
	return resume
}

// S3Store keeps one object per resume under the configured prefix and one
// small object per share token under prefix/shares/.
type S3Store struct { // implements ResumeStore
	client     S3API
	bucket     string
	prefix     string
	baseURL    string
	compressor compression.Compressor

	mu    sync.Mutex
	locks map[model.ResumeID]*sync.Mutex
}

// NewS3Client builds a client for any S3-compatible endpoint with static
// credentials.
func NewS3Client(ctx context.Context, cfg config.S3Config, accessKeyID, accessKeySecret string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading S3 configuration: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Store(client S3API, cfg config.S3Config, baseURL string) *S3Store {
	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		baseURL:    baseURL,
		compressor: compression.GzipCompressor{},
		locks:      make(map[model.ResumeID]*sync.Mutex),
	}
}

func (s *S3Store) resumeKey(id model.ResumeID) string {
	return s.prefix + string(id) + s3ResumeSuffix
}

func (s *S3Store) shareKey(token string) string {
	return s.prefix + s3SharesDir + token
}

// lock serializes read-modify-write cycles on a single resume object.
func (s *S3Store) lock(id model.ResumeID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *S3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("error getting object %s: %w", key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *S3Store) putObject(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("error putting object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) readRecord(ctx context.Context, key string) (*s3Record, error) {
	data, err := s.getObject(ctx, key)
	if err != nil {
		return nil, err
	}

	raw, err := s.compressor.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("error decompressing %s: %w", key, err)
	}

	record := &s3Record{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", key, err)
	}
	return record, nil
}

func (s *S3Store) writeRecord(ctx context.Context, record *s3Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("error encoding resume: %w", err)
	}

	data, err := s.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("error compressing resume: %w", err)
	}

	return s.putObject(ctx, s.resumeKey(record.ID), "application/gzip", data)
}

// upsert merges the draft into the stored record, keeping creation and
// share metadata. Callers hold the resume lock.
func (s *S3Store) upsert(ctx context.Context, draft model.Draft, now time.Time) (*s3Record, error) {
	record, err := s.readRecord(ctx, s.resumeKey(draft.ID))
	switch {
	case errors.Is(err, ErrNotFound):
		record = &s3Record{ID: draft.ID, Created: now}
	case err != nil:
		return nil, err
	}

	resume := resumeFromDraft(draft)
	record.Title = resume.Title
	record.Markdown = draft.Content
	record.Hash = resume.MDContentHash
	record.Author = resume.Author
	record.Tags = resume.Tags
	record.Modified = now
	if draft.Owner != "" {
		record.Owner = draft.Owner
	}

	return record, nil
}

func (s *S3Store) Persist(ctx context.Context, draft model.Draft) error {
	unlock := s.lock(draft.ID)
	defer unlock()

	record, err := s.upsert(ctx, draft, time.Now().UTC())
	if err != nil {
		return err
	}

	if err := s.writeRecord(ctx, record); err != nil {
		return err
	}

	storeLogger.Debug().Str("resume_id", string(draft.ID)).Str("bucket", s.bucket).Msg("Resume saved")
	return nil
}

func (s *S3Store) Share(ctx context.Context, draft model.Draft) (model.ShareLink, error) {
	unlock := s.lock(draft.ID)
	defer unlock()

	now := time.Now().UTC()
	record, err := s.upsert(ctx, draft, now)
	if err != nil {
		return model.ShareLink{}, err
	}

	if record.ShareToken == "" {
		record.ShareToken = uuid.New().String()
		record.Shared = &now
		if err := s.putObject(ctx, s.shareKey(record.ShareToken), "text/plain", []byte(record.ID)); err != nil {
			return model.ShareLink{}, err
		}
	}

	if err := s.writeRecord(ctx, record); err != nil {
		return model.ShareLink{}, err
	}

	return model.ShareLink{
		Token:    record.ShareToken,
		ResumeID: record.ID,
		URL:      shareURL(s.baseURL, record.ShareToken),
		Created:  *record.Shared,
	}, nil
}

func (s *S3Store) FetchByID(ctx context.Context, id model.ResumeID) (*model.Resume, error) {
	record, err := s.readRecord(ctx, s.resumeKey(id))
	if err != nil {
		return nil, err
	}
	return record.resume(), nil
}

func (s *S3Store) ListShared(ctx context.Context) ([]model.Resume, error) {
	resumes := make([]model.Resume, 0)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing resumes: %w", err)
		}

		for _, entry := range page.Contents {
			key := aws.ToString(entry.Key)
			if !strings.HasSuffix(key, s3ResumeSuffix) || strings.HasPrefix(key, s.prefix+s3SharesDir) {
				continue
			}

			record, err := s.readRecord(ctx, key)
			if err != nil {
				storeLogger.Warn().Err(err).Str("key", key).Msg("Skipping unreadable resume object")
				continue
			}
			if record.Shared != nil {
				resumes = append(resumes, *record.resume())
			}
		}
	}

	sortBySharedDate(resumes)
	return resumes, nil
}

func (s *S3Store) ResolveShare(ctx context.Context, token string) (model.ResumeID, error) {
	data, err := s.getObject(ctx, s.shareKey(token))
	if err != nil {
		return "", err
	}
	return model.ResumeID(strings.TrimSpace(string(data))), nil
}
