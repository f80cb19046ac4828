package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexItems indexes calendar items (fire-and-forget to Meilisearch).
func (s *Service) IndexItems(items []ItemRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(items) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexItems(items); err != nil {
			log.Printf("search: index %d items: %v", len(items), err)
		}
	}()
}

// DeleteItem removes an item from the search index (fire-and-forget).
func (s *Service) DeleteItem(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteItem(id); err != nil {
			log.Printf("search: delete item %s: %v", id, err)
		}
	}()
}

// ReplaceOwner drops an owner's indexed items and indexes the replacement set,
// mirroring the destructive bulk upload (fire-and-forget).
func (s *Service) ReplaceOwner(userID string, items []ItemRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteOwner(userID); err != nil {
			log.Printf("search: clear owner %s: %v", userID, err)
			return
		}
		if err := s.meili.IndexItems(items); err != nil {
			log.Printf("search: reindex owner %s: %v", userID, err)
		}
	}()
}

// ReindexAllFromPG reindexes every calendar item from PostgreSQL into
// Meilisearch. Called during bootstrap when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	items, err := s.pgfts.LoadAllItems(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}
	if err := s.meili.IndexItems(items); err != nil {
		log.Printf("search: reindex items: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
