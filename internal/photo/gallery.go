package photo

import (
	"context"
	"sort"
	"sync"

	"succession/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Source fetches raw photo bytes for an employee.
type Source interface {
	Fetch(ctx context.Context, employeeID string) ([]byte, error)
}

// Portrait is the outcome for one person: a circular PNG or the error that
// prevented it.
type Portrait struct {
	PNG []byte
	Err error
}

// Album maps employee id to portrait.
type Album map[string]Portrait

// Failed returns the ids whose portrait could not be produced, sorted.
func (a Album) Failed() []string {
	var ids []string
	for id, p := range a {
		if p.Err != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Gallery prefetches portraits once per distinct person with bounded
// parallelism.
type Gallery struct {
	source      Source
	parallelism int
	limits      Limits
}

// NewGallery creates a gallery. parallelism 1 fetches serially.
func NewGallery(source Source, parallelism int, limits Limits) *Gallery {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Gallery{source: source, parallelism: parallelism, limits: limits}
}

// Prefetch fetches and circularizes every distinct id. It never fails as a
// whole: per-person errors are recorded in the album and logged.
func (g *Gallery) Prefetch(ctx context.Context, ids []string) Album {
	album := make(Album, len(ids))
	var mu sync.Mutex

	eg := new(errgroup.Group)
	eg.SetLimit(g.parallelism)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		id := id
		eg.Go(func() error {
			p := g.portrait(ctx, id)
			mu.Lock()
			album[id] = p
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if failed := album.Failed(); len(failed) > 0 {
		logging.Get(logging.CategoryPhoto).Warnf("photos unavailable for %d of %d people: %v", len(failed), len(album), failed)
	} else {
		logging.PhotoDebug("prefetched %d photos", len(album))
	}
	return album
}

func (g *Gallery) portrait(ctx context.Context, id string) Portrait {
	if err := ctx.Err(); err != nil {
		return Portrait{Err: err}
	}
	raw, err := g.source.Fetch(ctx, id)
	if err != nil {
		logging.PhotoDebug("fetch %s failed: %v", id, err)
		return Portrait{Err: err}
	}
	png, err := Circularize(raw, g.limits)
	if err != nil {
		logging.PhotoDebug("circularize %s failed: %v", id, err)
		return Portrait{Err: err}
	}
	return Portrait{PNG: png}
}
