// Package trackerapi implements a client for the Yandex Tracker REST API.
// It exposes the remote operations the rest of the application is built on:
// scroll-based issue search, issue detail resources, catalogs, and worklog
// and checklist mutations.
package trackerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ebelokrylov/ytracker-tui/internal/logger"
)

const (
	// DefaultEndpoint is the production Tracker API host.
	DefaultEndpoint = "https://api.tracker.yandex.net"
	// apiVersion is the REST API version prefix.
	apiVersion = "v3"

	// DefaultQuery is applied when a search carries neither a query nor a
	// filter.
	DefaultQuery = "Assignee: me() Resolution: empty()"

	// scrollPerPage is how many issues one scroll page holds.
	scrollPerPage = 100
	// scrollTTLMillis is how long the backend keeps a scroll context alive
	// between page requests.
	scrollTTLMillis = 60_000

	// directoryPageSize and directoryPageLimit bound catalog directory
	// traversal (queues, projects, users).
	directoryPageSize  = 200
	directoryPageLimit = 10
)

// Org header names, depending on the organization type.
const (
	orgHeaderYandex360 = "X-Org-ID"
	orgHeaderCloud     = "X-Cloud-Org-ID"
)

// ClientConfig contains configuration for creating a new Tracker API client.
type ClientConfig struct {
	// Token is the OAuth token for authentication.
	Token string
	// OrgID identifies the organization; sent as an org header when set.
	OrgID string
	// CloudOrg selects the X-Cloud-Org-ID header instead of X-Org-ID.
	CloudOrg bool
	// Endpoint is the API host (defaults to the production endpoint).
	Endpoint string
	// HTTPClient is an optional custom HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout is the HTTP request timeout (defaults to 30s).
	Timeout time.Duration
	// WorkdayHours scales day/week components of tracked-time durations.
	WorkdayHours int
	// Cooldown is the minimum interval enforced between requests. Zero
	// disables pacing.
	Cooldown time.Duration
}

// Client is a client for the Tracker REST API.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	workdayHours int64
	limiter      *rateLimiter
}

// APIError is a non-2xx response from the Tracker API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("tracker api: http %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new Tracker API client with the provided
// configuration.
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	orgHeader := orgHeaderYandex360
	if cfg.CloudOrg {
		orgHeader = orgHeaderCloud
	}

	transport := &authTransport{
		Token:     cfg.Token,
		OrgID:     cfg.OrgID,
		OrgHeader: orgHeader,
		Base:      http.DefaultTransport,
	}

	var httpClient *http.Client
	if cfg.HTTPClient != nil {
		httpClient = cfg.HTTPClient
		if httpClient.Transport != nil {
			transport.Base = httpClient.Transport
		}
		httpClient.Transport = transport
	} else {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: transport,
		}
	}

	workdayHours := int64(cfg.WorkdayHours)
	if workdayHours <= 0 {
		workdayHours = 8
	}

	return &Client{
		httpClient:   httpClient,
		endpoint:     strings.TrimRight(endpoint, "/"),
		workdayHours: workdayHours,
		limiter:      newRateLimiter(cfg.Cooldown),
	}
}

// authTransport adds the OAuth and organization headers to requests.
type authTransport struct {
	Token     string
	OrgID     string
	OrgHeader string
	Base      http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "OAuth "+t.Token)
	if t.OrgID != "" {
		req.Header.Set(t.OrgHeader, t.OrgID)
	}
	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.Base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.Base.RoundTrip(req)
}

// Endpoint returns the API host being used.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) urlFor(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.endpoint, apiVersion, path)
}

// do issues a request and decodes the JSON response body into out (when out
// is non-nil). The response headers are returned so callers can read scroll
// metadata.
func (c *Client) do(ctx context.Context, method, rawURL string, body interface{}, out interface{}) (http.Header, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// decodeAPIError turns a failed response into an *APIError, pulling the
// message from the errorMessages payload when present.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.ErrorMessages) > 0 {
		message = strings.Join(payload.ErrorMessages, "; ")
	}
	if message == "" {
		message = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// issueSearchRequest is the body of the scroll search endpoint.
type issueSearchRequest struct {
	Query  string                 `json:"query,omitempty"`
	Filter map[string]interface{} `json:"filter,omitempty"`
}

// SearchIssues performs one page of a scroll-based issue search. An empty
// cursor requests the root page; a non-empty cursor continues a previous
// scroll. When both query and filter are empty the default query is used.
func (c *Client) SearchIssues(ctx context.Context, query string, filter map[string]interface{}, cursor string) (IssuePage, error) {
	query = strings.TrimSpace(query)
	if cursor == "" && query == "" && len(filter) == 0 {
		query = DefaultQuery
	}

	filter, err := c.resolveFilterShortcuts(ctx, filter)
	if err != nil {
		return IssuePage{}, fmt.Errorf("search issues: %w", err)
	}

	params := url.Values{}
	if cursor != "" {
		params.Set("scrollId", cursor)
	} else {
		params.Set("scrollType", "sorted")
		params.Set("perScroll", strconv.Itoa(scrollPerPage))
	}
	params.Set("scrollTTLMillis", strconv.Itoa(scrollTTLMillis))

	rawURL := c.urlFor("issues/_search") + "?" + params.Encode()
	body := issueSearchRequest{Query: query, Filter: filter}

	var wire []issueWire
	headers, err := c.do(ctx, http.MethodPost, rawURL, body, &wire)
	if err != nil {
		logger.ErrorWithErr(err, "api: SearchIssues failed")
		return IssuePage{}, fmt.Errorf("search issues: %w", err)
	}

	issues := make([]Issue, 0, len(wire))
	for _, w := range wire {
		issues = append(issues, w.toIssue(c.workdayHours))
	}

	nextCursor := headers.Get("X-Scroll-Id")
	totalCount := int64(-1)
	if raw := headers.Get("X-Total-Count"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			totalCount = parsed
		}
	}

	return IssuePage{
		Issues:     issues,
		NextCursor: nextCursor,
		TotalCount: totalCount,
		HasMore:    nextCursor != "",
	}, nil
}

// resolveFilterShortcuts rewrites me() tokens in the assignee filter to the
// authenticated user's login. The input map is never mutated; when a token
// was rewritten a copied map is returned.
func (c *Client) resolveFilterShortcuts(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error) {
	value, ok := filter["assignee"]
	if !ok {
		return filter, nil
	}

	login := ""
	ensureLogin := func() (string, error) {
		if login != "" {
			return login, nil
		}
		profile, err := c.GetMyself(ctx)
		if err != nil {
			return "", err
		}
		login = strings.TrimSpace(profile.Login)
		if login == "" {
			login = strings.TrimSpace(profile.Email)
		}
		if login == "" {
			return "", errors.New("unable to determine current user login")
		}
		return login, nil
	}

	rewritten, changed, err := rewriteMeTokens(value, ensureLogin)
	if err != nil {
		return nil, err
	}
	if !changed {
		return filter, nil
	}

	out := make(map[string]interface{}, len(filter))
	for k, v := range filter {
		out[k] = v
	}
	out["assignee"] = rewritten
	return out, nil
}

func rewriteMeTokens(value interface{}, login func() (string, error)) (interface{}, bool, error) {
	switch v := value.(type) {
	case string:
		if !isMeToken(v) {
			return value, false, nil
		}
		resolved, err := login()
		if err != nil {
			return nil, false, err
		}
		return resolved, true, nil
	case []string:
		items := make([]interface{}, len(v))
		for i, item := range v {
			items[i] = item
		}
		out, changed, err := rewriteMeSlice(items, login)
		if err != nil || !changed {
			return value, false, err
		}
		return out, true, nil
	case []interface{}:
		return rewriteMeSlice(v, login)
	}
	return value, false, nil
}

// rewriteMeSlice replaces me() entries in a filter array and deduplicates
// the remaining strings, preserving first-occurrence order.
func rewriteMeSlice(items []interface{}, login func() (string, error)) ([]interface{}, bool, error) {
	changed := false
	out := make([]interface{}, len(items))
	copy(out, items)
	for i, item := range out {
		text, ok := item.(string)
		if !ok || !isMeToken(text) {
			continue
		}
		resolved, err := login()
		if err != nil {
			return nil, false, err
		}
		out[i] = resolved
		changed = true
	}
	if !changed {
		return items, false, nil
	}

	seen := make(map[string]bool, len(out))
	deduped := make([]interface{}, 0, len(out))
	for _, item := range out {
		if text, ok := item.(string); ok {
			if seen[text] {
				continue
			}
			seen[text] = true
		}
		deduped = append(deduped, item)
	}
	return deduped, true, nil
}

func isMeToken(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "me()")
}

// ReleaseCursor clears the backend scroll context for a previously issued
// cursor.
func (c *Client) ReleaseCursor(ctx context.Context, cursor string) error {
	if strings.TrimSpace(cursor) == "" {
		return nil
	}
	body := map[string]string{"scrollId": cursor}
	if _, err := c.do(ctx, http.MethodPost, c.urlFor("system/search/scroll/_clear"), body, nil); err != nil {
		return fmt.Errorf("release cursor: %w", err)
	}
	return nil
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (Issue, error) {
	var wire issueWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("issues/"+issueKey), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetIssue failed for issue %s", issueKey)
		return Issue{}, fmt.Errorf("get issue %s: %w", issueKey, err)
	}
	return wire.toIssue(c.workdayHours), nil
}

// commentWire is the raw comment payload.
type commentWire struct {
	ID        json.RawMessage `json:"id"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt"`
	CreatedBy *entityRefWire  `json:"createdBy"`
}

// GetComments fetches all comments of an issue.
func (c *Client) GetComments(ctx context.Context, issueKey string) ([]Comment, error) {
	var wire []commentWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("issues/"+issueKey+"/comments"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetComments failed for issue %s", issueKey)
		return nil, fmt.Errorf("get comments for %s: %w", issueKey, err)
	}

	comments := make([]Comment, 0, len(wire))
	for _, w := range wire {
		author := ""
		if w.CreatedBy != nil {
			author = w.CreatedBy.ref.Display
		}
		comments = append(comments, Comment{
			ID:        coerceScalar(w.ID),
			Text:      w.Text,
			Author:    author,
			CreatedAt: parseTime(w.CreatedAt),
		})
	}
	return comments, nil
}

// AddComment creates a new comment on an issue.
func (c *Client) AddComment(ctx context.Context, issueKey, text string) error {
	body := map[string]string{"text": text}
	if _, err := c.do(ctx, http.MethodPost, c.urlFor("issues/"+issueKey+"/comments"), body, nil); err != nil {
		logger.ErrorWithErr(err, "api: AddComment failed for issue %s", issueKey)
		return fmt.Errorf("add comment to %s: %w", issueKey, err)
	}
	return nil
}

// attachmentWire is the raw attachment metadata payload.
type attachmentWire struct {
	ID       json.RawMessage `json:"id"`
	Name     json.RawMessage `json:"name"`
	Content  string          `json:"content"`
	Mimetype string          `json:"mimetype"`
	MimeType string          `json:"mimeType"`
}

// GetAttachments fetches attachment metadata for an issue.
func (c *Client) GetAttachments(ctx context.Context, issueKey string) ([]Attachment, error) {
	var wire []attachmentWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("issues/"+issueKey+"/attachments"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetAttachments failed for issue %s", issueKey)
		return nil, fmt.Errorf("get attachments for %s: %w", issueKey, err)
	}

	attachments := make([]Attachment, 0, len(wire))
	for _, w := range wire {
		mime := w.Mimetype
		if mime == "" {
			mime = w.MimeType
		}
		attachments = append(attachments, Attachment{
			ID:       coerceScalar(w.ID),
			Name:     coerceScalar(w.Name),
			URL:      w.Content,
			MimeType: mime,
		})
	}
	return attachments, nil
}

// transitionWire is the raw workflow transition payload.
type transitionWire struct {
	ID      json.RawMessage `json:"id"`
	Name    json.RawMessage `json:"name"`
	Display json.RawMessage `json:"display"`
	To      *entityRefWire  `json:"to"`
	Status  *entityRefWire  `json:"status"`
}

// GetTransitions fetches the workflow transitions available for an issue.
func (c *Client) GetTransitions(ctx context.Context, issueKey string) ([]Transition, error) {
	var wire []transitionWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("issues/"+issueKey+"/transitions"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetTransitions failed for issue %s", issueKey)
		return nil, fmt.Errorf("get transitions for %s: %w", issueKey, err)
	}

	transitions := make([]Transition, 0, len(wire))
	for _, w := range wire {
		name := coerceScalar(w.Display)
		if name == "" {
			name = coerceScalar(w.Name)
		}
		transition := Transition{
			ID:   coerceScalar(w.ID),
			Name: name,
		}
		destination := w.To
		if destination == nil {
			destination = w.Status
		}
		if destination != nil {
			ref := destination.ref
			transition.ToStatus = &ref
		}
		transitions = append(transitions, transition)
	}
	return transitions, nil
}

// transitionExecuteRequest is the body of the transition execute endpoint.
type transitionExecuteRequest struct {
	Comment    string `json:"comment,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// ExecuteTransition moves an issue through the given workflow transition,
// optionally attaching a comment and a resolution.
func (c *Client) ExecuteTransition(ctx context.Context, issueKey, transitionID, comment, resolution string) error {
	rawURL := c.urlFor(fmt.Sprintf("issues/%s/transitions/%s/_execute", issueKey, transitionID))
	body := transitionExecuteRequest{Comment: comment, Resolution: resolution}
	if _, err := c.do(ctx, http.MethodPost, rawURL, body, nil); err != nil {
		logger.ErrorWithErr(err, "api: ExecuteTransition failed for issue %s transition %s", issueKey, transitionID)
		return fmt.Errorf("execute transition %s on %s: %w", transitionID, issueKey, err)
	}
	return nil
}

// worklogWire is the raw worklog entry payload.
type worklogWire struct {
	ID        json.RawMessage `json:"id"`
	Start     string          `json:"start"`
	Duration  string          `json:"duration"`
	Comment   string          `json:"comment"`
	CreatedBy *entityRefWire  `json:"createdBy"`
}

// GetWorklogs fetches all worklog entries of an issue.
func (c *Client) GetWorklogs(ctx context.Context, issueKey string) ([]Worklog, error) {
	var wire []worklogWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("issues/"+issueKey+"/worklog"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetWorklogs failed for issue %s", issueKey)
		return nil, fmt.Errorf("get worklogs for %s: %w", issueKey, err)
	}

	worklogs := make([]Worklog, 0, len(wire))
	for _, w := range wire {
		author := ""
		if w.CreatedBy != nil {
			author = w.CreatedBy.ref.Display
		}
		duration, _ := parseISODuration(w.Duration, c.workdayHours)
		worklogs = append(worklogs, Worklog{
			ID:              coerceScalar(w.ID),
			Date:            w.Start,
			DurationSeconds: duration,
			Comment:         w.Comment,
			Author:          author,
		})
	}
	return worklogs, nil
}

// worklogCreateRequest is the body of the worklog create endpoint.
type worklogCreateRequest struct {
	Start    string `json:"start"`
	Duration string `json:"duration"`
	Comment  string `json:"comment,omitempty"`
}

// AddWorklog records a work entry starting now with the given duration.
func (c *Client) AddWorklog(ctx context.Context, issueKey string, durationSeconds int64, comment string) error {
	body := worklogCreateRequest{
		Start:    time.Now().UTC().Format(time.RFC3339),
		Duration: formatISODuration(durationSeconds),
		Comment:  strings.TrimSpace(comment),
	}
	if _, err := c.do(ctx, http.MethodPost, c.urlFor("issues/"+issueKey+"/worklog"), body, nil); err != nil {
		logger.ErrorWithErr(err, "api: AddWorklog failed for issue %s", issueKey)
		return fmt.Errorf("add worklog to %s: %w", issueKey, err)
	}
	return nil
}

// checklistItemWire is the raw checklist item payload.
type checklistItemWire struct {
	ID       json.RawMessage `json:"id"`
	Text     string          `json:"text"`
	Checked  bool            `json:"checked"`
	Assignee *entityRefWire  `json:"assignee"`
	Deadline *struct {
		Date string `json:"date"`
	} `json:"deadline"`
}

func (w checklistItemWire) toItem() ChecklistItem {
	item := ChecklistItem{
		ID:      coerceScalar(w.ID),
		Text:    w.Text,
		Checked: w.Checked,
	}
	if w.Assignee != nil {
		item.Assignee = w.Assignee.ref.Display
	}
	if w.Deadline != nil {
		item.Deadline = w.Deadline.Date
	}
	return item
}

// GetChecklist fetches the checklist items of an issue. A 404 means the
// issue has no checklist and yields an empty list.
func (c *Client) GetChecklist(ctx context.Context, issueKey string) ([]ChecklistItem, error) {
	var wire []checklistItemWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("issues/"+issueKey+"/checklistItems"), nil, &wire); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return []ChecklistItem{}, nil
		}
		logger.ErrorWithErr(err, "api: GetChecklist failed for issue %s", issueKey)
		return nil, fmt.Errorf("get checklist for %s: %w", issueKey, err)
	}

	items := make([]ChecklistItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.toItem())
	}
	return items, nil
}

// AddChecklistItem appends an item to an issue's checklist, creating the
// checklist when absent.
func (c *Client) AddChecklistItem(ctx context.Context, issueKey string, input ChecklistItemInput) error {
	if _, err := c.do(ctx, http.MethodPost, c.urlFor("issues/"+issueKey+"/checklistItems"), input, nil); err != nil {
		logger.ErrorWithErr(err, "api: AddChecklistItem failed for issue %s", issueKey)
		return fmt.Errorf("add checklist item to %s: %w", issueKey, err)
	}
	return nil
}

// EditChecklistItem updates a single checklist item.
func (c *Client) EditChecklistItem(ctx context.Context, issueKey, itemID string, input ChecklistItemInput) error {
	rawURL := c.urlFor(fmt.Sprintf("issues/%s/checklistItems/%s", issueKey, itemID))
	if _, err := c.do(ctx, http.MethodPatch, rawURL, input, nil); err != nil {
		logger.ErrorWithErr(err, "api: EditChecklistItem failed for issue %s item %s", issueKey, itemID)
		return fmt.Errorf("edit checklist item %s on %s: %w", itemID, issueKey, err)
	}
	return nil
}

// DeleteChecklistItem removes a single checklist item.
func (c *Client) DeleteChecklistItem(ctx context.Context, issueKey, itemID string) error {
	rawURL := c.urlFor(fmt.Sprintf("issues/%s/checklistItems/%s", issueKey, itemID))
	if _, err := c.do(ctx, http.MethodDelete, rawURL, nil, nil); err != nil {
		logger.ErrorWithErr(err, "api: DeleteChecklistItem failed for issue %s item %s", issueKey, itemID)
		return fmt.Errorf("delete checklist item %s on %s: %w", itemID, issueKey, err)
	}
	return nil
}

// DeleteChecklist removes the whole checklist of an issue.
func (c *Client) DeleteChecklist(ctx context.Context, issueKey string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.urlFor("issues/"+issueKey+"/checklistItems"), nil, nil); err != nil {
		logger.ErrorWithErr(err, "api: DeleteChecklist failed for issue %s", issueKey)
		return fmt.Errorf("delete checklist on %s: %w", issueKey, err)
	}
	return nil
}

// entityListWire decodes catalog entries.
type entityListWire []entityRefWire

func (w entityListWire) toRefs() []EntityRef {
	refs := make([]EntityRef, 0, len(w))
	for _, e := range w {
		refs = append(refs, e.ref)
	}
	return refs
}

// GetStatuses fetches the status catalog.
func (c *Client) GetStatuses(ctx context.Context) ([]EntityRef, error) {
	var wire entityListWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("statuses"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetStatuses failed")
		return nil, fmt.Errorf("get statuses: %w", err)
	}
	return wire.toRefs(), nil
}

// GetResolutions fetches the resolution catalog.
func (c *Client) GetResolutions(ctx context.Context) ([]EntityRef, error) {
	var wire entityListWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("resolutions"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetResolutions failed")
		return nil, fmt.Errorf("get resolutions: %w", err)
	}
	return wire.toRefs(), nil
}

// GetQueues fetches the full queue directory, traversing the paged
// endpoint.
func (c *Client) GetQueues(ctx context.Context) ([]EntityRef, error) {
	return c.directoryPages(ctx, "queues")
}

// GetProjects fetches the full project directory, traversing the paged
// endpoint.
func (c *Client) GetProjects(ctx context.Context) ([]EntityRef, error) {
	return c.directoryPages(ctx, "projects")
}

// directoryPages walks a paged directory endpoint until it returns a short
// page or the page limit is reached.
func (c *Client) directoryPages(ctx context.Context, path string) ([]EntityRef, error) {
	var all []EntityRef
	for page := 1; page <= directoryPageLimit; page++ {
		params := url.Values{}
		params.Set("perPage", strconv.Itoa(directoryPageSize))
		params.Set("page", strconv.Itoa(page))

		var wire entityListWire
		if _, err := c.do(ctx, http.MethodGet, c.urlFor(path)+"?"+params.Encode(), nil, &wire); err != nil {
			logger.ErrorWithErr(err, "api: directory fetch failed path=%s page=%d", path, page)
			return nil, fmt.Errorf("get %s: %w", path, err)
		}

		all = append(all, wire.toRefs()...)
		if len(wire) < directoryPageSize {
			break
		}
	}
	return all, nil
}

// userWire is the raw user directory payload.
type userWire struct {
	Display string `json:"display"`
	Login   string `json:"login"`
	Email   string `json:"email"`
}

func (w userWire) toProfile() UserProfile {
	return UserProfile{Display: w.Display, Login: w.Login, Email: w.Email}
}

// GetUsers fetches the full user directory, traversing the paged endpoint.
func (c *Client) GetUsers(ctx context.Context) ([]UserProfile, error) {
	var all []UserProfile
	for page := 1; page <= directoryPageLimit; page++ {
		params := url.Values{}
		params.Set("perPage", strconv.Itoa(directoryPageSize))
		params.Set("page", strconv.Itoa(page))

		var wire []userWire
		if _, err := c.do(ctx, http.MethodGet, c.urlFor("users")+"?"+params.Encode(), nil, &wire); err != nil {
			logger.ErrorWithErr(err, "api: GetUsers failed page=%d", page)
			return nil, fmt.Errorf("get users: %w", err)
		}

		for _, w := range wire {
			all = append(all, w.toProfile())
		}
		if len(wire) < directoryPageSize {
			break
		}
	}
	return all, nil
}

// GetMyself fetches the profile of the authenticated user.
func (c *Client) GetMyself(ctx context.Context) (UserProfile, error) {
	var wire userWire
	if _, err := c.do(ctx, http.MethodGet, c.urlFor("myself"), nil, &wire); err != nil {
		logger.ErrorWithErr(err, "api: GetMyself failed")
		return UserProfile{}, fmt.Errorf("get myself: %w", err)
	}
	return wire.toProfile(), nil
}
