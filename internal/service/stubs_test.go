package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/repository"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	"github.com/noah-isme/hazmat-api/pkg/mailer"
)

var (
	submitter = workflow.Actor{ID: "u-1", Name: "Sam Submitter", Role: models.RoleUser}
	stranger  = workflow.Actor{ID: "u-2", Name: "Other User", Role: models.RoleUser}
	admin     = workflow.Actor{ID: "a-1", Name: "Ada Admin", Role: models.RoleAdmin}
	hod       = workflow.Actor{ID: "h-1", Name: "Hal HOD", Role: models.RoleHOD}

	fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
)

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditStub) actions() []string {
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type notifierStub struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *notifierStub) Notify(ctx context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

type hazardClassStub struct {
	classes map[string]models.HazardClass
	seeded  []compatibility.ClassInfo
}

func newHazardClassStub() *hazardClassStub {
	stub := &hazardClassStub{classes: make(map[string]models.HazardClass)}
	for _, info := range compatibility.Catalog() {
		id := "hc-" + string(info.Code)
		stub.classes[id] = models.HazardClass{ID: id, Code: info.Code, Name: info.Name}
	}
	return stub
}

func (h *hazardClassStub) List(ctx context.Context) ([]models.HazardClass, error) {
	out := make([]models.HazardClass, 0, len(h.classes))
	for _, c := range h.classes {
		out = append(out, c)
	}
	return out, nil
}

func (h *hazardClassStub) FindByID(ctx context.Context, id string) (*models.HazardClass, error) {
	c, ok := h.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (h *hazardClassStub) FindByIDs(ctx context.Context, ids []string) ([]models.HazardClass, error) {
	out := make([]models.HazardClass, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.classes[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (h *hazardClassStub) EnsureCatalog(ctx context.Context, catalog []compatibility.ClassInfo) (int, error) {
	h.seeded = catalog
	return len(catalog), nil
}

type containerRepoStub struct {
	containers  map[string]*models.Container
	details     map[string]*models.ContainerDetail
	transitions []models.ContainerTransition
	filter      models.ContainerFilter
	summaries   []models.ContainerSummary
	attachments []models.Attachment
	// stale, when set, is what FindByID returns instead of the stored row.
	stale map[string]models.Container
	// loseRace makes the next conditional write find no matching row.
	loseRace   bool
	openDelete bool
	createErr  error
}

func newContainerRepoStub() *containerRepoStub {
	return &containerRepoStub{
		containers: make(map[string]*models.Container),
		details:    make(map[string]*models.ContainerDetail),
	}
}

func (r *containerRepoStub) put(c models.Container) {
	r.containers[c.ID] = &c
	r.details[c.ID] = &models.ContainerDetail{Container: c}
}

func (r *containerRepoStub) Create(ctx context.Context, detail *models.ContainerDetail) error {
	if r.createErr != nil {
		return r.createErr
	}
	c := detail.Container
	r.containers[detail.ID] = &c
	copied := *detail
	r.details[detail.ID] = &copied
	return nil
}

func (r *containerRepoStub) Resubmit(ctx context.Context, detail *models.ContainerDetail, from models.ContainerStatus) error {
	stored, ok := r.containers[detail.ID]
	if !ok || r.loseRace || stored.Status != from {
		return sql.ErrNoRows
	}
	c := detail.Container
	r.containers[detail.ID] = &c
	copied := *detail
	r.details[detail.ID] = &copied
	return nil
}

func (r *containerRepoStub) FindByID(ctx context.Context, id string) (*models.Container, error) {
	if snapshot, ok := r.stale[id]; ok {
		return &snapshot, nil
	}
	c, ok := r.containers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (r *containerRepoStub) GetDetail(ctx context.Context, id string) (*models.ContainerDetail, error) {
	d, ok := r.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *d
	copied.Container = *r.containers[id]
	return &copied, nil
}

func (r *containerRepoStub) List(ctx context.Context, filter models.ContainerFilter) ([]models.Container, int, error) {
	r.filter = filter
	out := make([]models.Container, 0, len(r.containers))
	for _, c := range r.containers {
		if filter.SubmitterID != "" && c.SubmitterID != filter.SubmitterID {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *containerRepoStub) ListSummaries(ctx context.Context, filter models.ContainerFilter) ([]models.ContainerSummary, error) {
	r.filter = filter
	return r.summaries, nil
}

func (r *containerRepoStub) Transition(ctx context.Context, t models.ContainerTransition) error {
	c, ok := r.containers[t.ContainerID]
	if !ok || r.loseRace || c.Status != t.From {
		return sql.ErrNoRows
	}
	c.Status = t.To
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *containerRepoStub) DeleteCascade(ctx context.Context, id string) ([]models.Attachment, error) {
	if _, ok := r.containers[id]; !ok {
		return nil, sql.ErrNoRows
	}
	if r.openDelete {
		return nil, repository.ErrOpenDeletionRequest
	}
	delete(r.containers, id)
	delete(r.details, id)
	return r.attachments, nil
}

type fileRemoverStub struct {
	deleted []string
	err     error
}

func (f *fileRemoverStub) Delete(name string) error {
	f.deleted = append(f.deleted, name)
	return f.err
}

type userDirectoryStub struct {
	users  map[string]models.User
	byRole map[models.UserRole][]models.User
	err    error
}

func (u *userDirectoryStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	user, ok := u.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

func (u *userDirectoryStub) ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.byRole[role], nil
}

type mailerStub struct {
	mu    sync.Mutex
	sent  []mailer.Message
	fails int
}

func (m *mailerStub) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailerStub) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}
