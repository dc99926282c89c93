package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

// ---- paper repo ----

type fakePaperRepo struct {
	papers map[uuid.UUID]*types.Paper
}

func newFakePaperRepo() *fakePaperRepo {
	return &fakePaperRepo{papers: map[uuid.UUID]*types.Paper{}}
}

func (r *fakePaperRepo) Create(ctx context.Context, tx *gorm.DB, papers []*types.Paper) ([]*types.Paper, error) {
	for _, p := range papers {
		cp := *p
		r.papers[p.ID] = &cp
	}
	return papers, nil
}

func (r *fakePaperRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, paperID uuid.UUID) (*types.Paper, error) {
	p, ok := r.papers[paperID]
	if !ok || p.OrganizationID != orgID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaperRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Paper, error) {
	var out []*types.Paper
	for _, p := range r.papers {
		if p.OrganizationID == orgID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func applyPaperUpdates(p *types.Paper, updates map[string]interface{}) {
	for key, val := range updates {
		switch key {
		case "title":
			p.Title = val.(string)
		case "description":
			p.Description = val.(string)
		case "status":
			p.Status = val.(string)
		case "sections":
			p.Sections = val.(datatypes.JSON)
		case "total_marks":
			p.TotalMarks = val.(int)
		case "total_time_minutes":
			p.TotalTimeMinutes = val.(int)
		case "layout_id":
			id := val.(uuid.UUID)
			p.LayoutID = &id
		case "version":
			if v, ok := val.(int); ok {
				p.Version = v
			} else if _, ok := val.(clause.Expr); ok {
				p.Version++
			}
		}
	}
	p.UpdatedAt = time.Now()
}

func (r *fakePaperRepo) UpdateByVersion(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	p, ok := r.papers[paperID]
	if !ok || p.Version != expectedVersion {
		return false, nil
	}
	applyPaperUpdates(p, updates)
	return true, nil
}

func (r *fakePaperRepo) UpdateByStatus(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	p, ok := r.papers[paperID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range allowedStatuses {
		if p.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	applyPaperUpdates(p, updates)
	return true, nil
}

func (r *fakePaperRepo) SoftDelete(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) error {
	delete(r.papers, paperID)
	return nil
}

// ---- question repo ----

type fakeQuestionRepo struct {
	questions map[uuid.UUID]*types.Question
	usage     map[uuid.UUID]int
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		questions: map[uuid.UUID]*types.Question{},
		usage:     map[uuid.UUID]int{},
	}
}

func (r *fakeQuestionRepo) add(qs ...*types.Question) {
	for _, q := range qs {
		r.questions[q.ID] = q
	}
}

func (r *fakeQuestionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, questionIDs []uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	for _, id := range questionIDs {
		if q, ok := r.questions[id]; ok && q.OrganizationID == orgID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) Search(ctx context.Context, tx *gorm.DB, filter repos.QuestionFilter) ([]*types.Question, error) {
	excluded := map[uuid.UUID]bool{}
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var out []*types.Question
	for _, q := range r.questions {
		if q.OrganizationID != filter.OrganizationID || q.Archived || excluded[q.ID] {
			continue
		}
		if filter.ApprovedOnly && q.ApprovalStatus != types.ApprovalStatusApproved {
			continue
		}
		if len(filter.Types) > 0 && !containsString(filter.Types, q.Type) {
			continue
		}
		if len(filter.Difficulties) > 0 && !containsString(filter.Difficulties, q.Difficulty) {
			continue
		}
		if len(filter.TopicIDs) > 0 && !containsUUID(filter.TopicIDs, q.TopicID) {
			continue
		}
		if filter.NotUsedSince != nil && q.LastUsedAt != nil && !q.LastUsedAt.Before(*filter.NotUsedSince) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount < out[j].UsageCount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeQuestionRepo) AdjustUsage(ctx context.Context, tx *gorm.DB, questionID uuid.UUID, delta int) error {
	r.usage[questionID] += delta
	if q, ok := r.questions[questionID]; ok {
		q.UsageCount += delta
		if q.UsageCount < 0 {
			q.UsageCount = 0
		}
		if delta > 0 {
			now := time.Now()
			q.LastUsedAt = &now
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsUUID(haystack []uuid.UUID, needle uuid.UUID) bool {
	for _, id := range haystack {
		if id == needle {
			return true
		}
	}
	return false
}

// ---- artifact repo ----

type fakeArtifactRepo struct {
	byPaper map[uuid.UUID][]*types.PaperArtifact
}

func newFakeArtifactRepo() *fakeArtifactRepo {
	return &fakeArtifactRepo{byPaper: map[uuid.UUID][]*types.PaperArtifact{}}
}

func (r *fakeArtifactRepo) ListByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) ([]*types.PaperArtifact, error) {
	return r.byPaper[paperID], nil
}

func (r *fakeArtifactRepo) GetByPaperAndType(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, artifactType string) (*types.PaperArtifact, error) {
	for _, a := range r.byPaper[paperID] {
		if a.Type == artifactType {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeArtifactRepo) ReplaceForPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID, artifacts []*types.PaperArtifact) error {
	r.byPaper[paperID] = artifacts
	return nil
}

func (r *fakeArtifactRepo) DeleteByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) error {
	delete(r.byPaper, paperID)
	return nil
}

// ---- render job repo ----

type fakeJobRepo struct {
	mu         sync.Mutex
	jobs       map[uuid.UUID]*types.RenderJob
	heartbeats map[uuid.UUID]int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:       map[uuid.UUID]*types.RenderJob{},
		heartbeats: map[uuid.UUID]int{},
	}
}

func (r *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.RenderJob) ([]*types.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		cp := *j
		r.jobs[j.ID] = &cp
	}
	return jobs, nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *fakeJobRepo) GetLatestByPaper(ctx context.Context, tx *gorm.DB, paperID uuid.UUID) (*types.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *types.RenderJob
	for _, j := range r.jobs {
		if j.PaperID != paperID {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Status == types.RenderJobStatusQueued {
			j.Status = types.RenderJobStatusRunning
			j.Attempts++
			now := time.Now()
			j.LockedAt = &now
			j.HeartbeatAt = &now
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	for key, val := range updates {
		switch key {
		case "status":
			j.Status = val.(string)
		case "error":
			j.Error = val.(string)
		case "attempts":
			j.Attempts = val.(int)
		case "last_error_at":
			ts := val.(time.Time)
			j.LastErrorAt = &ts
		case "locked_at":
			j.LockedAt = nil
		}
	}
	return nil
}

func (r *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		now := time.Now()
		j.HeartbeatAt = &now
		r.heartbeats[id]++
	}
	return nil
}

func (r *fakeJobRepo) heartbeatCount(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heartbeats[id]
}

// ---- blueprint + layout repos ----

type fakeBlueprintRepo struct {
	blueprints map[uuid.UUID]*types.Blueprint
}

func newFakeBlueprintRepo() *fakeBlueprintRepo {
	return &fakeBlueprintRepo{blueprints: map[uuid.UUID]*types.Blueprint{}}
}

func (r *fakeBlueprintRepo) Create(ctx context.Context, tx *gorm.DB, blueprints []*types.Blueprint) ([]*types.Blueprint, error) {
	for _, b := range blueprints {
		r.blueprints[b.ID] = b
	}
	return blueprints, nil
}

func (r *fakeBlueprintRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, blueprintID uuid.UUID) (*types.Blueprint, error) {
	b, ok := r.blueprints[blueprintID]
	if !ok || b.OrganizationID != orgID {
		return nil, nil
	}
	return b, nil
}

func (r *fakeBlueprintRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.Blueprint, error) {
	var out []*types.Blueprint
	for _, b := range r.blueprints {
		if b.OrganizationID == orgID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeLayoutRepo struct {
	layouts map[uuid.UUID]*types.PaperLayout
}

func newFakeLayoutRepo() *fakeLayoutRepo {
	return &fakeLayoutRepo{layouts: map[uuid.UUID]*types.PaperLayout{}}
}

func (r *fakeLayoutRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, layoutID uuid.UUID) (*types.PaperLayout, error) {
	l, ok := r.layouts[layoutID]
	if !ok || l.OrganizationID != orgID {
		return nil, nil
	}
	return l, nil
}

func (r *fakeLayoutRepo) GetDefault(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.PaperLayout, error) {
	for _, l := range r.layouts {
		if l.OrganizationID == orgID && l.IsDefault {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLayoutRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.PaperLayout, error) {
	var out []*types.PaperLayout
	for _, l := range r.layouts {
		if l.OrganizationID == orgID {
			out = append(out, l)
		}
	}
	return out, nil
}

// ---- bucket ----

type fakeBucket struct {
	mu              sync.Mutex
	uploads         map[string]int
	uploadErr       error
	deletedPrefixes []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: map[string]int{}}
}

func (b *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) (int64, error) {
	if b.uploadErr != nil {
		return 0, b.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.uploads[key] = len(data)
	b.mu.Unlock()
	return int64(len(data)), nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.uploads, key)
	return nil
}

func (b *fakeBucket) DeletePrefix(ctx context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletedPrefixes = append(b.deletedPrefixes, prefix)
	for key := range b.uploads {
		if strings.HasPrefix(key, prefix) {
			delete(b.uploads, key)
		}
	}
	return nil
}

func (b *fakeBucket) SignedURL(key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

// ---- renderer / pipeline / events ----

type fakeRenderer struct {
	mu      sync.Mutex
	renders int
	err     error
}

func (f *fakeRenderer) RenderPDF(ctx context.Context, htmlDoc string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.renders++
	f.mu.Unlock()
	return []byte("%PDF-fake"), nil
}

func (f *fakeRenderer) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

func (f *fakeRenderer) Close() {}

type fakePipeline struct {
	mu     sync.Mutex
	err    error
	result *RenderResult
	delay  time.Duration
	calls  int
}

func (f *fakePipeline) GeneratePaperPDFs(ctx context.Context, orgID, paperID uuid.UUID) (*RenderResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &RenderResult{TotalBytes: 1024}, nil
}

func (f *fakePipeline) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEvents struct {
	mu     sync.Mutex
	events []JobEvent
}

func (f *fakeEvents) Publish(ctx context.Context, event JobEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEvents) Close() error { return nil }
