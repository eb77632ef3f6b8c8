package store

import (
	"context"
	"sync"
	"time"

	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

// releaseTimeout bounds the best-effort cursor release request.
const releaseTimeout = 10 * time.Second

// ScrollSession materializes one scroll-based issue search into a stable,
// deduplicated-by-key issue list. A new Search supersedes everything the
// session held: the epoch counter advances, the previous cursor is released
// best-effort, and any response still in flight for the old epoch is
// discarded on arrival.
type ScrollSession struct {
	store *Store

	mu         sync.Mutex
	key        string
	opts       IssueSearchOptions
	issues     []trackerapi.Issue
	cursor     string
	totalCount int64
	hasMore    bool
	epoch        uint64
	fetching     bool
	fetchingRoot bool
	closed       bool
}

// NewScrollSession creates an idle session.
func (s *Store) NewScrollSession() *ScrollSession {
	return &ScrollSession{store: s, totalCount: -1}
}

// Issues returns a copy of the materialized issue list.
func (s *ScrollSession) Issues() []trackerapi.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]trackerapi.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// HasMore reports whether the backend holds further pages. It is the sole
// exhaustion signal; an empty page with a live cursor is not exhaustion.
func (s *ScrollSession) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// TotalCount returns the backend-reported total for the current search, or
// -1 when unknown.
func (s *ScrollSession) TotalCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCount
}

// Key returns the canonical key of the current search.
func (s *ScrollSession) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Search starts a new root search, superseding whatever the session held.
// On success the materialized list is replaced wholesale with the returned
// page. On failure the list is left empty. A response that arrives after a
// newer Search has advanced the epoch is discarded and reported as
// ErrSuperseded. A Search for the same canonical key as a root search
// already in flight joins it instead of superseding: both callers observe
// the one shared outcome.
func (s *ScrollSession) Search(ctx context.Context, opts IssueSearchOptions) ([]trackerapi.Issue, error) {
	if err := validateFilter(opts.Filter); err != nil {
		return nil, err
	}
	opts = opts.normalized()
	canonical := CanonicalKey(opts.Query, opts.Filter)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	join := s.fetching && s.fetchingRoot && s.key == canonical
	epoch := s.epoch
	var previousCursor string
	if !join {
		s.epoch++
		epoch = s.epoch
		previousCursor = s.cursor
		s.key = canonical
		s.opts = opts
		s.issues = nil
		s.cursor = ""
		s.totalCount = -1
		s.hasMore = false
		s.fetching = true
		s.fetchingRoot = true
	}
	s.mu.Unlock()

	if previousCursor != "" {
		s.releaseCursor(previousCursor)
	}

	logger.Debug("store: root search start key=%s join=%t", canonical, join)
	page, err := inFlight(&s.store.flight, "search:"+fetchKey(canonical, ""), func() (trackerapi.IssuePage, error) {
		return s.store.remote.SearchIssues(ctx, opts.Query, opts.Filter, "")
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		// A newer search owns the session now; drop this result and
		// release any cursor it carried, unless the session installed
		// that same cursor as its live one.
		if err == nil && page.NextCursor != "" && page.NextCursor != s.cursor {
			s.releaseCursor(page.NextCursor)
		}
		logger.Debug("store: discarding superseded root search key=%s", canonical)
		return nil, ErrSuperseded
	}

	// Only the first caller back from this root fetch installs the result;
	// a joined caller arriving after the session already moved on still
	// reports the shared outcome without touching session state.
	install := s.fetching && s.fetchingRoot
	if install {
		s.fetching = false
	}
	if err != nil {
		logger.ErrorWithErr(err, "store: root search failed key=%s", canonical)
		return nil, err
	}

	result := mergeIssues(nil, page.Issues)
	if install {
		s.issues = result
		s.cursor = page.NextCursor
		s.totalCount = page.TotalCount
		s.hasMore = page.HasMore
		logger.Debug("store: root search done key=%s count=%d has_more=%t", canonical, len(result), s.hasMore)
	}

	out := make([]trackerapi.Issue, len(result))
	copy(out, result)
	return out, nil
}

// LoadMore fetches the next page using the held cursor and merges it into
// the materialized list: an issue whose key is already present replaces the
// existing entry in place, new keys are appended. It returns how many new
// entries were appended; zero with a nil error is a valid outcome and only
// hasMore signals exhaustion. LoadMore fails fast with ErrNoCursor or
// ErrLoadInFlight instead of issuing a request.
func (s *ScrollSession) LoadMore(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if s.fetching {
		s.mu.Unlock()
		return 0, ErrLoadInFlight
	}
	if s.cursor == "" {
		s.mu.Unlock()
		return 0, ErrNoCursor
	}
	epoch := s.epoch
	canonical := s.key
	opts := s.opts
	cursor := s.cursor
	s.fetching = true
	s.fetchingRoot = false
	s.mu.Unlock()

	logger.Debug("store: load more start key=%s", canonical)
	page, err := inFlight(&s.store.flight, "search:"+fetchKey(canonical, cursor), func() (trackerapi.IssuePage, error) {
		return s.store.remote.SearchIssues(ctx, opts.Query, opts.Filter, cursor)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		if err == nil && page.NextCursor != "" && page.NextCursor != cursor {
			s.releaseCursor(page.NextCursor)
		}
		logger.Debug("store: discarding superseded load more key=%s", canonical)
		return 0, ErrSuperseded
	}
	s.fetching = false
	if err != nil {
		// The previously merged list stays untouched.
		logger.ErrorWithErr(err, "store: load more failed key=%s", canonical)
		return 0, err
	}

	before := len(s.issues)
	s.issues = mergeIssues(s.issues, page.Issues)
	s.cursor = page.NextCursor
	if page.TotalCount >= 0 {
		s.totalCount = page.TotalCount
	}
	s.hasMore = page.HasMore
	added := len(s.issues) - before
	logger.Debug("store: load more done key=%s added=%d has_more=%t", canonical, added, s.hasMore)
	return added, nil
}

// Close supersedes any in-flight work and releases the held cursor. It is
// idempotent.
func (s *ScrollSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	cursor := s.cursor
	s.cursor = ""
	s.hasMore = false
	s.mu.Unlock()

	if cursor != "" {
		s.releaseCursor(cursor)
	}
}

// releaseCursor asks the backend to drop a scroll context. The request is
// fire-and-forget: the outcome goes to the store's release observer and is
// never surfaced to the caller.
func (s *ScrollSession) releaseCursor(cursor string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		err := s.store.remote.ReleaseCursor(ctx, cursor)
		s.store.observeRelease(cursor, err)
	}()
}

// mergeIssues merges page issues into the existing list: a key already in
// the list replaces the entry at its original position, unseen keys append
// in page order. The result never holds two entries with the same key.
func mergeIssues(existing []trackerapi.Issue, page []trackerapi.Issue) []trackerapi.Issue {
	merged := make([]trackerapi.Issue, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, issue := range merged {
		index[issue.Key] = i
	}

	for _, issue := range page {
		if at, ok := index[issue.Key]; ok {
			merged[at] = issue
			continue
		}
		index[issue.Key] = len(merged)
		merged = append(merged, issue)
	}
	return merged
}
