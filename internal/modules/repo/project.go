package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrOwnerNotFound   = errors.New("project owner not found")
	ErrInvalidRole     = errors.New("chat message role must be 'user' or 'assistant'")
)

// ProjectAggregate is a project loaded with its full workspace: files in
// insertion order and chat messages ascending by (timestamp, id).
type ProjectAggregate struct {
	Project  model.Project       `json:"project"`
	Files    []model.ProjectFile `json:"files"`
	Messages []model.ChatMessage `json:"messages"`
}

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project, files []model.ProjectFile) error
	Get(ctx context.Context, id uuid.UUID) (*ProjectAggregate, error)
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.Project, error)
	Rename(ctx context.Context, projectID uuid.UUID, name string) error
	ReplaceFiles(ctx context.Context, projectID uuid.UUID, files []model.ProjectFile) error
	MergeFiles(ctx context.Context, projectID uuid.UUID, files []model.ProjectFile) error
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	AppendMessages(ctx context.Context, msgs []*model.ChatMessage) error
	Delete(ctx context.Context, projectID uuid.UUID) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project, files []model.ProjectFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ownerCount int64
		if err := tx.Model(&model.User{}).Where("id = ?", p.OwnerID).Count(&ownerCount).Error; err != nil {
			return fmt.Errorf("check owner: %w", err)
		}
		if ownerCount == 0 {
			return ErrOwnerNotFound
		}

		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		if len(files) > 0 {
			for i := range files {
				files[i].ProjectID = p.ID
			}
			if err := tx.Create(&files).Error; err != nil {
				return fmt.Errorf("create project files: %w", err)
			}
		}
		return nil
	})
}

func (r *projectRepo) Get(ctx context.Context, id uuid.UUID) (*ProjectAggregate, error) {
	var agg ProjectAggregate

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&agg.Project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&agg.Files).Error; err != nil {
		return nil, fmt.Errorf("load project files: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		Order("timestamp ASC, id ASC").
		Find(&agg.Messages).Error; err != nil {
		return nil, fmt.Errorf("load chat messages: %w", err)
	}

	return &agg, nil
}

func (r *projectRepo) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.Project, error) {
	q := r.db.WithContext(ctx).Where("projects.owner_id = ?", ownerID)

	// Apply cursor-based pagination filter if cursor is provided
	if !afterCreatedAt.IsZero() && afterID != uuid.Nil {
		comparisonOp := ">"
		if timeDesc {
			comparisonOp = "<"
		}
		q = q.Where(
			"(projects.created_at "+comparisonOp+" ?) OR (projects.created_at = ? AND projects.id "+comparisonOp+" ?)",
			afterCreatedAt, afterCreatedAt, afterID,
		)
	}

	orderBy := "projects.created_at ASC, projects.id ASC"
	if timeDesc {
		orderBy = "projects.created_at DESC, projects.id DESC"
	}

	var projects []*model.Project
	query := q.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return projects, query.Find(&projects).Error
}

func (r *projectRepo) Rename(ctx context.Context, projectID uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]interface{}{"name": name, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// ReplaceFiles swaps the project's entire file set in one transaction:
// delete everything, insert the new set, bump the project's updated_at.
// Calling it twice with the same set leaves the same content behind.
func (r *projectRepo) ReplaceFiles(ctx context.Context, projectID uuid.UUID, files []model.ProjectFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectFile{}).Error; err != nil {
			return fmt.Errorf("delete project files: %w", err)
		}

		if len(files) > 0 {
			for i := range files {
				files[i].ID = uuid.Nil
				files[i].ProjectID = projectID
			}
			if err := tx.Create(&files).Error; err != nil {
				return fmt.Errorf("insert project files: %w", err)
			}
		}

		return touchProject(tx, projectID)
	})
}

// MergeFiles upserts only the provided paths, leaving every other file
// untouched. Used for chat follow-up turns where the generator returns a
// partial file set.
func (r *projectRepo) MergeFiles(ctx context.Context, projectID uuid.UUID, files []model.ProjectFile) error {
	if len(files) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		for i := range files {
			files[i].ID = uuid.Nil
			files[i].ProjectID = projectID
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "language", "updated_at"}),
		}).Create(&files).Error; err != nil {
			return fmt.Errorf("merge project files: %w", err)
		}

		return touchProject(tx, projectID)
	})
}

func (r *projectRepo) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return r.AppendMessages(ctx, []*model.ChatMessage{msg})
}

// AppendMessages inserts a batch of chat messages in one transaction so a
// user/assistant pair lands adjacently or not at all.
func (r *projectRepo) AppendMessages(ctx context.Context, msgs []*model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	for _, m := range msgs {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			return fmt.Errorf("%w: got %q", ErrInvalidRole, m.Role)
		}
	}

	projectID := msgs[0].ProjectID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		for _, m := range msgs {
			if m.Timestamp.IsZero() {
				m.Timestamp = time.Now()
			}
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("append chat message: %w", err)
			}
		}

		return touchProject(tx, projectID)
	})
}

// Delete removes the project and its children. Children go first so the
// parent row never outlives a failed child delete.
func (r *projectRepo) Delete(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectFile{}).Error; err != nil {
			return fmt.Errorf("delete project files: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}
		if err := tx.Where("id = ?", projectID).Delete(&model.Project{}).Error; err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}

func lockProject(tx *gorm.DB, projectID uuid.UUID) error {
	var p model.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", projectID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProjectNotFound
	}
	return err
}

func touchProject(tx *gorm.DB, projectID uuid.UUID) error {
	return tx.Model(&model.Project{}).
		Where("id = ?", projectID).
		Update("updated_at", time.Now()).Error
}
