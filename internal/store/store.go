// Package store is the client-side data-access layer between the UI and
// the Tracker API. It canonicalizes search keys, caches per-issue detail
// slices and whole-collection catalogs with a TTL, coalesces concurrent
// identical requests into one underlying call, merges scroll-search pages
// into stable issue lists, and mirrors the work timer from the push-event
// feed.
//
// A Store is an explicitly constructed object: every consumer receives the
// same instance by injection, and tests build isolated ones.
package store

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

// DefaultTTL is how long cached detail slices and catalogs stay fresh.
const DefaultTTL = 300 * time.Second

// Remote is the remote command interface the store is built on. It is
// satisfied by *trackerapi.Client; tests install fakes.
type Remote interface {
	SearchIssues(ctx context.Context, query string, filter map[string]interface{}, cursor string) (trackerapi.IssuePage, error)
	ReleaseCursor(ctx context.Context, cursor string) error
	GetIssue(ctx context.Context, issueKey string) (trackerapi.Issue, error)

	GetComments(ctx context.Context, issueKey string) ([]trackerapi.Comment, error)
	AddComment(ctx context.Context, issueKey, text string) error
	GetAttachments(ctx context.Context, issueKey string) ([]trackerapi.Attachment, error)
	GetTransitions(ctx context.Context, issueKey string) ([]trackerapi.Transition, error)
	ExecuteTransition(ctx context.Context, issueKey, transitionID, comment, resolution string) error
	GetWorklogs(ctx context.Context, issueKey string) ([]trackerapi.Worklog, error)
	AddWorklog(ctx context.Context, issueKey string, durationSeconds int64, comment string) error
	GetChecklist(ctx context.Context, issueKey string) ([]trackerapi.ChecklistItem, error)
	AddChecklistItem(ctx context.Context, issueKey string, input trackerapi.ChecklistItemInput) error
	EditChecklistItem(ctx context.Context, issueKey, itemID string, input trackerapi.ChecklistItemInput) error
	DeleteChecklistItem(ctx context.Context, issueKey, itemID string) error
	DeleteChecklist(ctx context.Context, issueKey string) error

	GetStatuses(ctx context.Context) ([]trackerapi.EntityRef, error)
	GetResolutions(ctx context.Context) ([]trackerapi.EntityRef, error)
	GetQueues(ctx context.Context) ([]trackerapi.EntityRef, error)
	GetProjects(ctx context.Context) ([]trackerapi.EntityRef, error)
	GetUsers(ctx context.Context) ([]trackerapi.UserProfile, error)
}

// Options configures a Store.
type Options struct {
	// TTL overrides the default cache TTL.
	TTL time.Duration
	// ReleaseObserver receives the outcome of every best-effort cursor
	// release. When nil, failures are logged.
	ReleaseObserver func(cursor string, err error)
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store is the cache and coalescing layer over the remote interface.
type Store struct {
	remote Remote
	ttl    time.Duration
	now    func() time.Time

	flight  singleflight.Group
	details *detailCache

	statuses    *catalog[[]trackerapi.EntityRef]
	resolutions *catalog[[]trackerapi.EntityRef]
	queues      *catalog[[]trackerapi.EntityRef]
	projects    *catalog[[]trackerapi.EntityRef]
	users       *catalog[[]trackerapi.UserProfile]

	releaseObserver func(cursor string, err error)
}

// New builds a Store over the given remote.
func New(remote Remote, opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		remote:          remote,
		ttl:             ttl,
		now:             now,
		details:         newDetailCache(ttl, now),
		releaseObserver: opts.ReleaseObserver,
	}

	s.statuses = newCatalog("statuses", ttl, now, &s.flight, remote.GetStatuses)
	s.resolutions = newCatalog("resolutions", ttl, now, &s.flight, remote.GetResolutions)
	s.queues = newCatalog("queues", ttl, now, &s.flight, remote.GetQueues)
	s.projects = newCatalog("projects", ttl, now, &s.flight, remote.GetProjects)
	s.users = newCatalog("users", ttl, now, &s.flight, remote.GetUsers)
	return s
}

// observeRelease reports a cursor release outcome to the configured
// observer, falling back to the log. Release failures are never surfaced
// to callers and never retried.
func (s *Store) observeRelease(cursor string, err error) {
	if s.releaseObserver != nil {
		s.releaseObserver(cursor, err)
		return
	}
	if err != nil {
		logger.Warning("store: cursor release failed cursor_len=%d error=%v", len(cursor), err)
	}
}

// fetchDetail serves one (issue, slot) slice: cached data when fresh and
// not forced, otherwise one coalesced fetch. A failed fetch leaves any
// previous entry untouched.
func fetchDetail[T any](ctx context.Context, s *Store, issueKey string, slot DetailSlot, force bool, fetch func(context.Context, string) (T, error)) (T, error) {
	if !force {
		if data, ok := s.details.lookup(issueKey, slot); ok {
			return data.(T), nil
		}
	}

	key := "detail:" + issueKey + ":" + string(slot)
	return inFlight(&s.flight, key, func() (T, error) {
		data, err := fetch(ctx, issueKey)
		if err != nil {
			var zero T
			return zero, err
		}
		s.details.put(issueKey, slot, data)
		return data, nil
	})
}

// Issue fetches a single issue by key. Issue details are not cached; list
// entries carry the fields the UI renders and a detail open forces a fresh
// read.
func (s *Store) Issue(ctx context.Context, issueKey string) (trackerapi.Issue, error) {
	return inFlight(&s.flight, "issue:"+issueKey, func() (trackerapi.Issue, error) {
		return s.remote.GetIssue(ctx, issueKey)
	})
}

// Comments returns the comments slice for an issue.
func (s *Store) Comments(ctx context.Context, issueKey string, force bool) ([]trackerapi.Comment, error) {
	return fetchDetail(ctx, s, issueKey, SlotComments, force, s.remote.GetComments)
}

// Attachments returns the attachments slice for an issue.
func (s *Store) Attachments(ctx context.Context, issueKey string, force bool) ([]trackerapi.Attachment, error) {
	return fetchDetail(ctx, s, issueKey, SlotAttachments, force, s.remote.GetAttachments)
}

// Transitions returns the available transitions for an issue.
func (s *Store) Transitions(ctx context.Context, issueKey string, force bool) ([]trackerapi.Transition, error) {
	return fetchDetail(ctx, s, issueKey, SlotTransitions, force, s.remote.GetTransitions)
}

// Worklogs returns the worklog slice for an issue.
func (s *Store) Worklogs(ctx context.Context, issueKey string, force bool) ([]trackerapi.Worklog, error) {
	return fetchDetail(ctx, s, issueKey, SlotWorklogs, force, s.remote.GetWorklogs)
}

// Checklist returns the checklist slice for an issue.
func (s *Store) Checklist(ctx context.Context, issueKey string, force bool) ([]trackerapi.ChecklistItem, error) {
	return fetchDetail(ctx, s, issueKey, SlotChecklist, force, s.remote.GetChecklist)
}

// AddComment creates a comment and, on success, invalidates the comments
// slot for that issue.
func (s *Store) AddComment(ctx context.Context, issueKey, text string) error {
	if err := s.remote.AddComment(ctx, issueKey, text); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotComments)
	return nil
}

// ExecuteTransition runs a workflow transition and, on success, invalidates
// the transitions slot for that issue.
func (s *Store) ExecuteTransition(ctx context.Context, issueKey, transitionID, comment, resolution string) error {
	if err := s.remote.ExecuteTransition(ctx, issueKey, transitionID, comment, resolution); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotTransitions)
	return nil
}

// AddWorklog records a work entry and, on success, invalidates the worklogs
// slot for that issue.
func (s *Store) AddWorklog(ctx context.Context, issueKey string, durationSeconds int64, comment string) error {
	if err := s.remote.AddWorklog(ctx, issueKey, durationSeconds, comment); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotWorklogs)
	return nil
}

// AddChecklistItem appends a checklist item and, on success, invalidates
// the checklist slot.
func (s *Store) AddChecklistItem(ctx context.Context, issueKey string, input trackerapi.ChecklistItemInput) error {
	if err := s.remote.AddChecklistItem(ctx, issueKey, input); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotChecklist)
	return nil
}

// EditChecklistItem updates a checklist item and, on success, invalidates
// the checklist slot.
func (s *Store) EditChecklistItem(ctx context.Context, issueKey, itemID string, input trackerapi.ChecklistItemInput) error {
	if err := s.remote.EditChecklistItem(ctx, issueKey, itemID, input); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotChecklist)
	return nil
}

// DeleteChecklistItem deletes a checklist item and, on success, invalidates
// the checklist slot.
func (s *Store) DeleteChecklistItem(ctx context.Context, issueKey, itemID string) error {
	if err := s.remote.DeleteChecklistItem(ctx, issueKey, itemID); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotChecklist)
	return nil
}

// DeleteChecklist deletes an issue's whole checklist and, on success,
// invalidates the checklist slot.
func (s *Store) DeleteChecklist(ctx context.Context, issueKey string) error {
	if err := s.remote.DeleteChecklist(ctx, issueKey); err != nil {
		return err
	}
	s.details.invalidate(issueKey, SlotChecklist)
	return nil
}

// Invalidate removes one cached detail slot for an issue.
func (s *Store) Invalidate(issueKey string, slot DetailSlot) {
	s.details.invalidate(issueKey, slot)
}

// InvalidateAll removes every cached detail slot for an issue.
func (s *Store) InvalidateAll(issueKey string) {
	s.details.invalidateAll(issueKey)
}

// Statuses returns the status catalog.
func (s *Store) Statuses(ctx context.Context, force bool) ([]trackerapi.EntityRef, error) {
	return s.statuses.get(ctx, force)
}

// Resolutions returns the resolution catalog.
func (s *Store) Resolutions(ctx context.Context, force bool) ([]trackerapi.EntityRef, error) {
	return s.resolutions.get(ctx, force)
}

// Queues returns the queue directory.
func (s *Store) Queues(ctx context.Context, force bool) ([]trackerapi.EntityRef, error) {
	return s.queues.get(ctx, force)
}

// Projects returns the project directory.
func (s *Store) Projects(ctx context.Context, force bool) ([]trackerapi.EntityRef, error) {
	return s.projects.get(ctx, force)
}

// Users returns the user directory.
func (s *Store) Users(ctx context.Context, force bool) ([]trackerapi.UserProfile, error) {
	return s.users.get(ctx, force)
}
