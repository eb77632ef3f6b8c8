package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
)

// fakeRemote implements Remote with overridable function fields and call
// counters. Unset functions return empty results.
type fakeRemote struct {
	searchFn  func(query string, filter map[string]interface{}, cursor string) (trackerapi.IssuePage, error)
	releaseFn func(cursor string) error

	issueFn       func(issueKey string) (trackerapi.Issue, error)
	commentsFn    func(issueKey string) ([]trackerapi.Comment, error)
	attachmentsFn func(issueKey string) ([]trackerapi.Attachment, error)
	transitionsFn func(issueKey string) ([]trackerapi.Transition, error)
	worklogsFn    func(issueKey string) ([]trackerapi.Worklog, error)
	checklistFn   func(issueKey string) ([]trackerapi.ChecklistItem, error)
	statusesFn    func() ([]trackerapi.EntityRef, error)

	addCommentErr error

	searchCalls      atomic.Int64
	issueCalls       atomic.Int64
	commentsCalls    atomic.Int64
	attachmentsCalls atomic.Int64
	transitionsCalls atomic.Int64
	worklogsCalls    atomic.Int64
	checklistCalls   atomic.Int64
	statusesCalls    atomic.Int64

	mu       sync.Mutex
	released []string
}

func (f *fakeRemote) SearchIssues(ctx context.Context, query string, filter map[string]interface{}, cursor string) (trackerapi.IssuePage, error) {
	f.searchCalls.Add(1)
	if f.searchFn != nil {
		return f.searchFn(query, filter, cursor)
	}
	return trackerapi.IssuePage{TotalCount: -1}, nil
}

func (f *fakeRemote) ReleaseCursor(ctx context.Context, cursor string) error {
	f.mu.Lock()
	f.released = append(f.released, cursor)
	f.mu.Unlock()
	if f.releaseFn != nil {
		return f.releaseFn(cursor)
	}
	return nil
}

func (f *fakeRemote) releasedCursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.released))
	copy(out, f.released)
	return out
}

func (f *fakeRemote) GetIssue(ctx context.Context, issueKey string) (trackerapi.Issue, error) {
	f.issueCalls.Add(1)
	if f.issueFn != nil {
		return f.issueFn(issueKey)
	}
	return trackerapi.Issue{Key: issueKey}, nil
}

func (f *fakeRemote) GetComments(ctx context.Context, issueKey string) ([]trackerapi.Comment, error) {
	f.commentsCalls.Add(1)
	if f.commentsFn != nil {
		return f.commentsFn(issueKey)
	}
	return []trackerapi.Comment{}, nil
}

func (f *fakeRemote) AddComment(ctx context.Context, issueKey, text string) error {
	return f.addCommentErr
}

func (f *fakeRemote) GetAttachments(ctx context.Context, issueKey string) ([]trackerapi.Attachment, error) {
	f.attachmentsCalls.Add(1)
	if f.attachmentsFn != nil {
		return f.attachmentsFn(issueKey)
	}
	return []trackerapi.Attachment{}, nil
}

func (f *fakeRemote) GetTransitions(ctx context.Context, issueKey string) ([]trackerapi.Transition, error) {
	f.transitionsCalls.Add(1)
	if f.transitionsFn != nil {
		return f.transitionsFn(issueKey)
	}
	return []trackerapi.Transition{}, nil
}

func (f *fakeRemote) ExecuteTransition(ctx context.Context, issueKey, transitionID, comment, resolution string) error {
	return nil
}

func (f *fakeRemote) GetWorklogs(ctx context.Context, issueKey string) ([]trackerapi.Worklog, error) {
	f.worklogsCalls.Add(1)
	if f.worklogsFn != nil {
		return f.worklogsFn(issueKey)
	}
	return []trackerapi.Worklog{}, nil
}

func (f *fakeRemote) AddWorklog(ctx context.Context, issueKey string, durationSeconds int64, comment string) error {
	return nil
}

func (f *fakeRemote) GetChecklist(ctx context.Context, issueKey string) ([]trackerapi.ChecklistItem, error) {
	f.checklistCalls.Add(1)
	if f.checklistFn != nil {
		return f.checklistFn(issueKey)
	}
	return []trackerapi.ChecklistItem{}, nil
}

func (f *fakeRemote) AddChecklistItem(ctx context.Context, issueKey string, input trackerapi.ChecklistItemInput) error {
	return nil
}

func (f *fakeRemote) EditChecklistItem(ctx context.Context, issueKey, itemID string, input trackerapi.ChecklistItemInput) error {
	return nil
}

func (f *fakeRemote) DeleteChecklistItem(ctx context.Context, issueKey, itemID string) error {
	return nil
}

func (f *fakeRemote) DeleteChecklist(ctx context.Context, issueKey string) error {
	return nil
}

func (f *fakeRemote) GetStatuses(ctx context.Context) ([]trackerapi.EntityRef, error) {
	f.statusesCalls.Add(1)
	if f.statusesFn != nil {
		return f.statusesFn()
	}
	return []trackerapi.EntityRef{}, nil
}

func (f *fakeRemote) GetResolutions(ctx context.Context) ([]trackerapi.EntityRef, error) {
	return []trackerapi.EntityRef{}, nil
}

func (f *fakeRemote) GetQueues(ctx context.Context) ([]trackerapi.EntityRef, error) {
	return []trackerapi.EntityRef{}, nil
}

func (f *fakeRemote) GetProjects(ctx context.Context) ([]trackerapi.EntityRef, error) {
	return []trackerapi.EntityRef{}, nil
}

func (f *fakeRemote) GetUsers(ctx context.Context) ([]trackerapi.UserProfile, error) {
	return []trackerapi.UserProfile{}, nil
}

// fakeClock is a controllable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestDetailCacheServesWithinTTL(t *testing.T) {
	clock := newFakeClock()
	remote := &fakeRemote{
		commentsFn: func(issueKey string) ([]trackerapi.Comment, error) {
			return []trackerapi.Comment{{ID: "1", Text: "hello"}}, nil
		},
	}
	s := New(remote, Options{Now: clock.Now})
	ctx := context.Background()

	first, err := s.Comments(ctx, "TEST-1", false)
	if err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if len(first) != 1 || first[0].Text != "hello" {
		t.Fatalf("Comments() = %+v, want one comment", first)
	}

	clock.Advance(DefaultTTL - time.Second)
	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if got := remote.commentsCalls.Load(); got != 1 {
		t.Errorf("remote calls within TTL = %d, want 1", got)
	}

	clock.Advance(2 * time.Second)
	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if got := remote.commentsCalls.Load(); got != 2 {
		t.Errorf("remote calls after TTL expiry = %d, want 2", got)
	}
}

func TestDetailCacheForceRefresh(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, Options{})
	ctx := context.Background()

	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if _, err := s.Comments(ctx, "TEST-1", true); err != nil {
		t.Fatalf("Comments(force) error = %v", err)
	}
	if got := remote.commentsCalls.Load(); got != 2 {
		t.Errorf("remote calls = %d, want 2", got)
	}
}

func TestDetailCacheFailureDoesNotPoison(t *testing.T) {
	clock := newFakeClock()
	failing := errors.New("backend down")
	healthy := true
	remote := &fakeRemote{}
	remote.commentsFn = func(issueKey string) ([]trackerapi.Comment, error) {
		if !healthy {
			return nil, failing
		}
		return []trackerapi.Comment{{ID: "1"}}, nil
	}
	s := New(remote, Options{Now: clock.Now})
	ctx := context.Background()

	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatalf("Comments() error = %v", err)
	}

	healthy = false
	if _, err := s.Comments(ctx, "TEST-1", true); !errors.Is(err, failing) {
		t.Fatalf("Comments(force) error = %v, want %v", err, failing)
	}

	// The previously cached entry survives the failed refresh.
	healthy = true
	got, err := s.Comments(ctx, "TEST-1", false)
	if err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Comments() after failed refresh = %+v, want cached entry", got)
	}
	if calls := remote.commentsCalls.Load(); calls != 2 {
		t.Errorf("remote calls = %d, want 2 (cached entry served third read)", calls)
	}
}

func TestInvalidationScope(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, Options{})
	ctx := context.Background()

	for _, issue := range []string{"TEST-1", "TEST-2"} {
		if _, err := s.Comments(ctx, issue, false); err != nil {
			t.Fatalf("Comments(%s) error = %v", issue, err)
		}
		if _, err := s.Attachments(ctx, issue, false); err != nil {
			t.Fatalf("Attachments(%s) error = %v", issue, err)
		}
	}

	s.Invalidate("TEST-1", SlotComments)

	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Attachments(ctx, "TEST-1", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Comments(ctx, "TEST-2", false); err != nil {
		t.Fatal(err)
	}

	if got := remote.commentsCalls.Load(); got != 3 {
		t.Errorf("comments calls = %d, want 3 (only TEST-1 refetched)", got)
	}
	if got := remote.attachmentsCalls.Load(); got != 2 {
		t.Errorf("attachments calls = %d, want 2 (untouched by comment invalidation)", got)
	}
}

func TestMutationsInvalidateExactlyTheirSlot(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, Options{})
	ctx := context.Background()

	seed := func() {
		for _, fetch := range []func() error{
			func() error { _, err := s.Comments(ctx, "TEST-1", false); return err },
			func() error { _, err := s.Transitions(ctx, "TEST-1", false); return err },
			func() error { _, err := s.Checklist(ctx, "TEST-1", false); return err },
			func() error { _, err := s.Worklogs(ctx, "TEST-1", false); return err },
		} {
			if err := fetch(); err != nil {
				t.Fatal(err)
			}
		}
	}
	seed()

	if err := s.AddComment(ctx, "TEST-1", "ping"); err != nil {
		t.Fatal(err)
	}
	seed()
	if got := remote.commentsCalls.Load(); got != 2 {
		t.Errorf("comments calls = %d, want 2", got)
	}
	if got := remote.transitionsCalls.Load(); got != 1 {
		t.Errorf("transitions calls = %d, want 1", got)
	}

	if err := s.ExecuteTransition(ctx, "TEST-1", "close", "", "fixed"); err != nil {
		t.Fatal(err)
	}
	seed()
	if got := remote.transitionsCalls.Load(); got != 2 {
		t.Errorf("transitions calls after transition = %d, want 2", got)
	}
	if got := remote.checklistCalls.Load(); got != 1 {
		t.Errorf("checklist calls = %d, want 1", got)
	}

	if err := s.AddChecklistItem(ctx, "TEST-1", trackerapi.ChecklistItemInput{Text: "step"}); err != nil {
		t.Fatal(err)
	}
	seed()
	if got := remote.checklistCalls.Load(); got != 2 {
		t.Errorf("checklist calls after add = %d, want 2", got)
	}
	if got := remote.worklogsCalls.Load(); got != 1 {
		t.Errorf("worklogs calls = %d, want 1", got)
	}
}

func TestFailedMutationDoesNotInvalidate(t *testing.T) {
	remote := &fakeRemote{addCommentErr: errors.New("rejected")}
	s := New(remote, Options{})
	ctx := context.Background()

	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatal(err)
	}
	if err := s.AddComment(ctx, "TEST-1", "ping"); err == nil {
		t.Fatal("AddComment() expected error")
	}
	if _, err := s.Comments(ctx, "TEST-1", false); err != nil {
		t.Fatal(err)
	}
	if got := remote.commentsCalls.Load(); got != 1 {
		t.Errorf("comments calls = %d, want 1 (cache kept after failed mutation)", got)
	}
}

func TestConcurrentDetailFetchesCoalesce(t *testing.T) {
	const callers = 5

	release := make(chan struct{})
	remote := &fakeRemote{
		commentsFn: func(issueKey string) ([]trackerapi.Comment, error) {
			<-release
			return []trackerapi.Comment{{ID: "only"}}, nil
		},
	}
	s := New(remote, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]trackerapi.Comment, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Comments(ctx, "TEST-1", false)
		}(i)
	}

	// Give every caller time to attach to the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := remote.commentsCalls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if len(results[i]) != 1 || results[i][0].ID != "only" {
			t.Errorf("caller %d result = %+v, want shared result", i, results[i])
		}
	}
}

func TestIssuePointReadsCoalesce(t *testing.T) {
	const callers = 3

	release := make(chan struct{})
	remote := &fakeRemote{
		issueFn: func(issueKey string) (trackerapi.Issue, error) {
			<-release
			return trackerapi.Issue{Key: issueKey, Summary: "fresh"}, nil
		},
	}
	s := New(remote, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]trackerapi.Issue, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Issue(ctx, "TEST-1")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := remote.issueCalls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if results[i].Summary != "fresh" {
			t.Errorf("caller %d result = %+v, want shared result", i, results[i])
		}
	}

	// Point reads are never cached; a later call hits the remote again.
	if _, err := s.Issue(ctx, "TEST-1"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := remote.issueCalls.Load(); got != 2 {
		t.Errorf("calls after second read = %d, want 2", got)
	}
}

func TestConcurrentFetchFailureSharedByAllCallers(t *testing.T) {
	const callers = 4

	release := make(chan struct{})
	boom := errors.New("boom")
	remote := &fakeRemote{
		statusesFn: func() ([]trackerapi.EntityRef, error) {
			<-release
			return nil, boom
		},
	}
	s := New(remote, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Statuses(ctx, false)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := remote.statusesCalls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Errorf("caller %d error = %v, want %v", i, err, boom)
		}
	}
}

func TestCatalogTTLAndForce(t *testing.T) {
	clock := newFakeClock()
	remote := &fakeRemote{
		statusesFn: func() ([]trackerapi.EntityRef, error) {
			return []trackerapi.EntityRef{{Key: "open", Display: "Open"}}, nil
		},
	}
	s := New(remote, Options{Now: clock.Now})
	ctx := context.Background()

	if _, err := s.Statuses(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Statuses(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := remote.statusesCalls.Load(); got != 1 {
		t.Errorf("statuses calls within TTL = %d, want 1", got)
	}

	if _, err := s.Statuses(ctx, true); err != nil {
		t.Fatal(err)
	}
	if got := remote.statusesCalls.Load(); got != 2 {
		t.Errorf("statuses calls after force = %d, want 2", got)
	}

	clock.Advance(DefaultTTL + time.Second)
	if _, err := s.Statuses(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := remote.statusesCalls.Load(); got != 3 {
		t.Errorf("statuses calls after expiry = %d, want 3", got)
	}
}

func TestCatalogErrorNotCached(t *testing.T) {
	boom := errors.New("boom")
	healthy := false
	remote := &fakeRemote{
		statusesFn: func() ([]trackerapi.EntityRef, error) {
			if !healthy {
				return nil, boom
			}
			return []trackerapi.EntityRef{{Key: "open"}}, nil
		},
	}
	s := New(remote, Options{})
	ctx := context.Background()

	if _, err := s.Statuses(ctx, false); !errors.Is(err, boom) {
		t.Fatalf("Statuses() error = %v, want %v", err, boom)
	}

	healthy = true
	got, err := s.Statuses(ctx, false)
	if err != nil {
		t.Fatalf("Statuses() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Statuses() = %+v, want one entry", got)
	}
	if calls := remote.statusesCalls.Load(); calls != 2 {
		t.Errorf("statuses calls = %d, want 2 (error was not cached)", calls)
	}
}
