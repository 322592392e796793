package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codecraft-io/codecraft/internal/config"
	mq "github.com/codecraft-io/codecraft/internal/infra/queue"
	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/codecraft-io/codecraft/internal/modules/repo"
	"github.com/codecraft-io/codecraft/internal/pkg/archive"
	"github.com/codecraft-io/codecraft/internal/pkg/editorfs"
	"github.com/codecraft-io/codecraft/internal/pkg/paging"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type ProjectService interface {
	Create(ctx context.Context, in CreateProjectInput) (*model.Project, error)
	Get(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (*repo.ProjectAggregate, error)
	List(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error)
	Delete(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) error
	ReplaceFiles(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID, files map[string]string) error
	EditorFileSet(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (map[string]editorfs.EditorFile, error)
	Export(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (*ExportOutput, error)
}

type projectService struct {
	r   repo.ProjectRepo
	log *zap.Logger
	mq  *amqp.Connection
	cfg *config.Config
}

func NewProjectService(r repo.ProjectRepo, log *zap.Logger, mqConn *amqp.Connection, cfg *config.Config) ProjectService {
	return &projectService{r: r, log: log, mq: mqConn, cfg: cfg}
}

type CreateProjectInput struct {
	OwnerID     uuid.UUID
	Name        string
	Description string
	// Files is the editor-shaped file map; may be empty for a blank project.
	Files map[string]string
}

type ProjectCreatedEvent struct {
	ProjectID uuid.UUID `json:"project_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
}

func (s *projectService) Create(ctx context.Context, in CreateProjectInput) (*model.Project, error) {
	if in.Name == "" {
		return nil, errors.New("project name is empty")
	}

	p := &model.Project{
		OwnerID:     in.OwnerID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := s.r.Create(ctx, p, editorfs.FromEditorFileSet(in.Files)); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, p)
	return p, nil
}

func (s *projectService) publishCreated(ctx context.Context, p *model.Project) {
	if s.mq == nil {
		return
	}
	pub, err := mq.NewPublisher(s.mq, s.log)
	if err != nil {
		s.log.Warn("create project event publisher", zap.Error(err))
		return
	}
	defer pub.Close()
	if err := pub.PublishJSON(ctx, s.cfg.RabbitMQ.ExchangeName, s.cfg.RabbitMQ.RoutingKey.ProjectCreated, ProjectCreatedEvent{
		ProjectID: p.ID,
		OwnerID:   p.OwnerID,
	}); err != nil {
		s.log.Warn("publish project created event", zap.Error(err))
	}
}

// getOwned loads the aggregate and enforces ownership before anything else
// touches it.
func (s *projectService) getOwned(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (*repo.ProjectAggregate, error) {
	agg, err := s.r.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if agg.Project.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return agg, nil
}

func (s *projectService) Get(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (*repo.ProjectAggregate, error) {
	return s.getOwned(ctx, projectID, ownerID)
}

type ListProjectsInput struct {
	OwnerID  uuid.UUID `json:"owner_id"`
	Limit    int       `json:"limit"` // 0 means no limit (return all)
	Cursor   string    `json:"cursor"`
	TimeDesc bool      `json:"time_desc"`
}

type ListProjectsOutput struct {
	Items      []*model.Project `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

// List returns the owner's projects, newest created first by default.
func (s *projectService) List(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error) {
	if in.Limit == 0 {
		projects, err := s.r.ListByOwner(ctx, in.OwnerID, time.Time{}, uuid.Nil, 0, in.TimeDesc)
		if err != nil {
			return nil, err
		}
		return &ListProjectsOutput{
			Items:   projects,
			HasMore: false,
		}, nil
	}

	// Parse cursor (createdAt, id); an empty cursor indicates starting from the latest
	var afterT time.Time
	var afterID uuid.UUID
	var err error
	if in.Cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
	}

	// Query limit+1 is used to determine has_more
	projects, err := s.r.ListByOwner(ctx, in.OwnerID, afterT, afterID, in.Limit+1, in.TimeDesc)
	if err != nil {
		return nil, err
	}

	out := &ListProjectsOutput{
		Items:   projects,
		HasMore: false,
	}
	if len(projects) > in.Limit {
		out.HasMore = true
		out.Items = projects[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}

	return out, nil
}

func (s *projectService) Delete(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) error {
	if _, err := s.getOwned(ctx, projectID, ownerID); err != nil {
		return err
	}
	return s.r.Delete(ctx, projectID)
}

func (s *projectService) ReplaceFiles(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID, files map[string]string) error {
	if _, err := s.getOwned(ctx, projectID, ownerID); err != nil {
		return err
	}
	return s.r.ReplaceFiles(ctx, projectID, editorfs.FromEditorFileSet(files))
}

func (s *projectService) EditorFileSet(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (map[string]editorfs.EditorFile, error) {
	agg, err := s.getOwned(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	return editorfs.ToEditorFileSet(agg.Files), nil
}

type ExportOutput struct {
	Filename string
	Data     []byte
}

func (s *projectService) Export(ctx context.Context, projectID uuid.UUID, ownerID uuid.UUID) (*ExportOutput, error) {
	agg, err := s.getOwned(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(agg.Files))
	for _, f := range agg.Files {
		files[f.Path] = f.Content
	}

	data, err := archive.Export(files, agg.Project.Name)
	if err != nil {
		return nil, fmt.Errorf("export project %s: %w", projectID, err)
	}

	return &ExportOutput{
		Filename: archive.Filename(agg.Project.Name),
		Data:     data,
	}, nil
}
