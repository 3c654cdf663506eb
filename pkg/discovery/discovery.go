// Package discovery finds candidate files for a query across the caller's
// personal drive and every reachable site drive, extracts their text and
// ranks them.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/extractor"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/metrics"
	"echo-assistant-be/pkg/ranking"
	"echo-assistant-be/pkg/store"
	"echo-assistant-be/pkg/vectorindex"

	"golang.org/x/sync/errgroup"
)

// Source is the remote storage the service searches. *graph.Client
// satisfies it.
type Source interface {
	SearchMyDrive(ctx context.Context, cred *graph.Credential, phrase string) ([]graph.SearchHit, error)
	ListSites(ctx context.Context, cred *graph.Credential) ([]graph.Site, error)
	ListSiteDrives(ctx context.Context, cred *graph.Credential, siteID string) ([]graph.Drive, error)
	SearchDrive(ctx context.Context, cred *graph.Credential, driveID, phrase string) ([]graph.SearchHit, error)
	GetItem(ctx context.Context, cred *graph.Credential, driveID, itemID, container string) (store.FileCandidate, error)
	RecentFiles(ctx context.Context, cred *graph.Credential) ([]store.FileCandidate, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, ref extractor.DocumentRef) string
}

type Ranker interface {
	Build(ctx context.Context, name string, candidates []store.FileCandidate) error
	Rank(ctx context.Context, name, query string, topK int) ([]store.RankedResult, error)
}

type Options struct {
	Timeout            time.Duration
	ExtractConcurrency int
	SiteConcurrency    int
}

type Service struct {
	source    Source
	extractor TextExtractor
	ranker    Ranker
	opts      Options
	logger    logger.ILogger
}

func NewService(source Source, ext TextExtractor, ranker Ranker, opts Options, log logger.ILogger) *Service {
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = 4
	}
	if opts.SiteConcurrency <= 0 {
		opts.SiteConcurrency = 4
	}
	return &Service{source: source, extractor: ext, ranker: ranker, opts: opts, logger: log}
}

type taggedHit struct {
	hit       graph.SearchHit
	container string
}

// Discover runs one discovery for query and returns every candidate ranked,
// best first. Drives and sites that fail are skipped. An embedding or index
// failure fails the whole run.
func (s *Service) Discover(ctx context.Context, conversationKey, query string, cred *graph.Credential) (results []store.RankedResult, err error) {
	start := time.Now()
	usedRecent := false
	defer func() {
		outcome := "ranked"
		switch {
		case err != nil:
			outcome = "failed"
		case len(results) == 0:
			outcome = "empty"
		case usedRecent:
			outcome = "recent_fallback"
		}
		metrics.DiscoveryRunsTotal.WithLabelValues(outcome).Inc()
		metrics.DiscoveryDuration.Observe(time.Since(start).Seconds())
	}()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	qc := ranking.ParseQuery(query)
	s.logger.Info("Discovery", "Discovery started", map[string]interface{}{
		"conversation": conversationKey,
		"year":         qc.Year,
		"core":         qc.Core,
	})

	hits := s.collectHits(ctx, cred, qc.Core)
	candidates := s.hydrate(ctx, cred, dedupe(hits))

	if len(candidates) == 0 {
		s.logger.Info("Discovery", "No search results, using recent files", nil)
		recent, rerr := s.source.RecentFiles(ctx, cred)
		if rerr != nil {
			s.logger.Warn("Discovery", "Recent files unavailable", map[string]interface{}{"error": rerr.Error()})
		}
		candidates = recent
		usedRecent = true
	}

	candidates = dropFolders(candidates)
	metrics.CandidatesDiscovered.Observe(float64(len(candidates)))

	if err := s.extractAll(ctx, candidates); err != nil {
		return nil, err
	}

	name := vectorindex.FileIndexName(conversationKey)
	if err := s.ranker.Build(ctx, name, candidates); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	ranked, err := s.ranker.Rank(ctx, name, query, 0)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	s.logger.Info("Discovery", "Discovery finished", map[string]interface{}{
		"conversation": conversationKey,
		"candidates":   len(ranked),
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return ranked, nil
}

// collectHits searches the personal root, then every site's drives. The
// returned order is personal first, then sites and drives in listing order,
// regardless of which searches finished first.
func (s *Service) collectHits(ctx context.Context, cred *graph.Credential, phrase string) []taggedHit {
	var out []taggedHit

	personal, err := s.source.SearchMyDrive(ctx, cred, phrase)
	if err != nil {
		s.logger.Warn("Discovery", "Personal drive search failed", map[string]interface{}{"error": err.Error()})
	}
	for _, h := range personal {
		out = append(out, taggedHit{hit: h, container: store.PersonalContainer})
	}

	sites, err := s.source.ListSites(ctx, cred)
	if err != nil {
		s.logger.Warn("Discovery", "Site enumeration incomplete", map[string]interface{}{
			"error": err.Error(),
			"sites": len(sites),
		})
	}

	perSite := make([][]taggedHit, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SiteConcurrency)
	for i, site := range sites {
		if site.ID == "" {
			continue
		}
		g.Go(func() error {
			perSite[i] = s.searchSite(gctx, cred, site.ID, phrase)
			return nil
		})
	}
	_ = g.Wait()

	for _, hits := range perSite {
		out = append(out, hits...)
	}
	return out
}

func (s *Service) searchSite(ctx context.Context, cred *graph.Credential, siteID, phrase string) []taggedHit {
	drives, err := s.source.ListSiteDrives(ctx, cred, siteID)
	if err != nil {
		s.logger.Warn("Discovery", "Skipping site", map[string]interface{}{"site": siteID, "error": err.Error()})
		return nil
	}
	var out []taggedHit
	for _, d := range drives {
		hits, err := s.source.SearchDrive(ctx, cred, d.ID, phrase)
		if err != nil {
			s.logger.Warn("Discovery", "Skipping drive", map[string]interface{}{"site": siteID, "drive": d.ID, "error": err.Error()})
			continue
		}
		for _, h := range hits {
			out = append(out, taggedHit{hit: h, container: siteID})
		}
	}
	return out
}

// dedupe keeps the first occurrence of every id.
func dedupe(hits []taggedHit) []taggedHit {
	seen := make(map[string]bool, len(hits))
	out := make([]taggedHit, 0, len(hits))
	for _, h := range hits {
		if h.hit.ID == "" || seen[h.hit.ID] {
			continue
		}
		seen[h.hit.ID] = true
		out = append(out, h)
	}
	return out
}

// hydrate fetches full metadata for every hit. Hits whose metadata cannot be
// fetched are dropped.
func (s *Service) hydrate(ctx context.Context, cred *graph.Credential, hits []taggedHit) []store.FileCandidate {
	out := make([]store.FileCandidate, 0, len(hits))
	for _, h := range hits {
		if h.hit.DriveID == "" {
			s.logger.Warn("Discovery", "Search hit without drive", map[string]interface{}{"id": h.hit.ID})
			continue
		}
		c, err := s.source.GetItem(ctx, cred, h.hit.DriveID, h.hit.ID, h.container)
		if err != nil {
			s.logger.Warn("Discovery", "Item metadata unavailable", map[string]interface{}{"id": h.hit.ID, "error": err.Error()})
			continue
		}
		c.ContainerID = h.container
		out = append(out, c)
	}
	return out
}

func dropFolders(in []store.FileCandidate) []store.FileCandidate {
	out := make([]store.FileCandidate, 0, len(in))
	for _, c := range in {
		if !c.IsFolder {
			out = append(out, c)
		}
	}
	return out
}

// extractAll fills ExtractedText in place. Each goroutine writes only its own
// slot so results stay in candidate order.
func (s *Service) extractAll(ctx context.Context, candidates []store.FileCandidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ExtractConcurrency)
	for i := range candidates {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			ref := extractor.DocumentRef{DownloadURL: candidates[i].DownloadURL, MimeType: candidates[i].MimeType}
			if text := s.extractor.Extract(gctx, ref); text != "" {
				candidates[i].ExtractedText = text
			}
			return nil
		})
	}
	_ = g.Wait()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("discovery deadline exceeded: %w", ctx.Err())
	}
	return nil
}
