// Package ingest seeds the catalog from the volume-search API.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/googlebooks"
	"go.uber.org/zap"
)

const fallbackTitle = "No Title"

var (
	errMissingSearcher = errors.New("ingest: volume searcher is required")
	errMissingCatalog  = errors.New("ingest: catalog writer is required")
	errNoQueries       = errors.New("ingest: at least one query is required")
)

// VolumeSearcher is satisfied by *googlebooks.Client.
type VolumeSearcher interface {
	SearchVolumes(ctx context.Context, query string, maxResults int) (*googlebooks.VolumesResponse, error)
}

type JobConfig struct {
	Searcher   VolumeSearcher
	Catalog    catalog.Writer
	Queries    []string
	MaxResults int
	// QueryDelay is the pause after a query's items are stored and before the
	// next search starts; zero disables it.
	QueryDelay time.Duration
	Logger     *zap.Logger
}

// Summary counts what a run did.
type Summary struct {
	Queries  int
	Fetched  int
	Inserted int
	Skipped  int
}

// Job runs the queries sequentially and inserts volumes not yet in the catalog.
type Job struct {
	searcher   VolumeSearcher
	catalog    catalog.Writer
	queries    []string
	maxResults int
	queryDelay time.Duration
	logger     *zap.Logger
}

func NewJob(cfg JobConfig) (*Job, error) {
	if cfg.Searcher == nil {
		return nil, errMissingSearcher
	}
	if cfg.Catalog == nil {
		return nil, errMissingCatalog
	}
	if len(cfg.Queries) == 0 {
		return nil, errNoQueries
	}
	if cfg.MaxResults <= 0 {
		return nil, fmt.Errorf("ingest: max results must be positive, got %d", cfg.MaxResults)
	}

	if cfg.QueryDelay < 0 {
		return nil, fmt.Errorf("ingest: query delay must not be negative, got %s", cfg.QueryDelay)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		searcher:   cfg.Searcher,
		catalog:    cfg.Catalog,
		queries:    append([]string(nil), cfg.Queries...),
		maxResults: cfg.MaxResults,
		queryDelay: cfg.QueryDelay,
		logger:     logger,
	}, nil
}

// Run processes every query in order and stops at the first failure.
// Books inserted before a failure stay in the catalog.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	for index, query := range j.queries {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("ingest: before %q: %w", query, err)
		}
		if err := j.runQuery(ctx, query, &summary); err != nil {
			return summary, err
		}
		summary.Queries++
		if index < len(j.queries)-1 {
			if err := j.pause(ctx); err != nil {
				return summary, fmt.Errorf("ingest: pause after %q: %w", query, err)
			}
		}
	}

	j.logger.Info("catalog ingestion finished",
		zap.Int("queries", summary.Queries),
		zap.Int("fetched", summary.Fetched),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// pause waits the full query delay measured from the end of the previous query.
func (j *Job) pause(ctx context.Context) error {
	if j.queryDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(j.queryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) runQuery(ctx context.Context, query string, summary *Summary) error {
	j.logger.Info("fetching volumes", zap.String("query", query))
	response, err := j.searcher.SearchVolumes(ctx, query, j.maxResults)
	if err != nil {
		var apiErr *googlebooks.APIError
		if errors.As(err, &apiErr) {
			j.logger.Error("volume search rejected",
				zap.String("query", query),
				zap.Int("status", apiErr.StatusCode),
				zap.String("body", apiErr.Body))
		} else {
			j.logger.Error("volume search failed", zap.String("query", query), zap.Error(err))
		}
		return fmt.Errorf("ingest: search %q: %w", query, err)
	}
	if response == nil {
		return nil
	}

	for _, volume := range response.Items {
		summary.Fetched++
		inserted, err := j.ingestVolume(ctx, query, volume)
		if err != nil {
			j.logger.Error("catalog write failed",
				zap.String("query", query),
				zap.String("external_id", volume.ID),
				zap.Error(err))
			return fmt.Errorf("ingest: store %q: %w", volume.ID, err)
		}
		if inserted {
			summary.Inserted++
		} else {
			summary.Skipped++
		}
	}
	return nil
}

func (j *Job) ingestVolume(ctx context.Context, query string, volume googlebooks.Volume) (bool, error) {
	externalID := strings.TrimSpace(volume.ID)
	if externalID == "" {
		j.logger.Warn("volume without id skipped", zap.String("query", query), zap.String("title", volume.VolumeInfo.Title))
		return false, nil
	}

	_, err := j.catalog.FindByExternalID(ctx, externalID)
	if err == nil {
		j.logger.Info("book already exists", zap.String("external_id", externalID))
		return false, nil
	}
	if !errors.Is(err, catalog.ErrBookNotFound) {
		return false, err
	}

	book := mapVolume(query, externalID, volume.VolumeInfo)
	if err := j.catalog.Insert(ctx, &book); err != nil {
		if errors.Is(err, catalog.ErrDuplicateBook) {
			j.logger.Info("book already exists", zap.String("external_id", externalID))
			return false, nil
		}
		return false, err
	}
	j.logger.Info("book inserted", zap.String("external_id", externalID), zap.String("title", book.Title))
	return true, nil
}

// mapVolume converts a volume into a catalog book tagged with the query as its only category.
func mapVolume(query, externalID string, info googlebooks.VolumeInfo) catalog.Book {
	title := info.Title
	if strings.TrimSpace(title) == "" {
		title = fallbackTitle
	}
	authors := info.Authors
	if authors == nil {
		authors = []string{}
	}
	var pageCount *int
	if info.PageCount > 0 {
		pages := info.PageCount
		pageCount = &pages
	}
	return catalog.Book{
		ExternalID:    &externalID,
		Title:         title,
		Description:   info.Description,
		Authors:       authors,
		Publisher:     info.Publisher,
		PublishedDate: info.PublishedDate,
		PageCount:     pageCount,
		Categories:    []string{query},
	}
}
