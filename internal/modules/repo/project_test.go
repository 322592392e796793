package repo

import (
	"context"
	"testing"
	"time"

	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupProjectTestDB creates a test database connection for project tests
func setupProjectTestDB(t *testing.T) *gorm.DB {
	// Skip if no test database is configured
	dsn := "host=localhost user=codecraft password=helloworld dbname=codecraft port=15432 sslmode=disable"
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skip("Test database not available, skipping integration tests")
		return nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectFile{},
		&model.ChatMessage{},
	)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *model.User {
	u := &model.User{
		ID:      uuid.New(),
		Subject: "user_" + uuid.NewString(),
		Email:   "test@codecraft.dev",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func cleanupProjectTestDB(t *testing.T, db *gorm.DB, ownerID uuid.UUID) {
	// Clean up in reverse order of foreign key dependencies
	db.Exec("DELETE FROM chat_messages WHERE project_id IN (SELECT id FROM projects WHERE owner_id = ?)", ownerID)
	db.Exec("DELETE FROM project_files WHERE project_id IN (SELECT id FROM projects WHERE owner_id = ?)", ownerID)
	db.Exec("DELETE FROM projects WHERE owner_id = ?", ownerID)
	db.Exec("DELETE FROM users WHERE id = ?", ownerID)
}

func TestProjectRepo_CreateAndGet(t *testing.T) {
	db := setupProjectTestDB(t)
	if db == nil {
		return
	}

	repo := NewProjectRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, db)
	defer cleanupProjectTestDB(t, db, owner.ID)

	project := &model.Project{OwnerID: owner.ID, Name: "landing page"}
	files := []model.ProjectFile{
		{Path: "index.html", Content: "<html></html>", Language: "html"},
		{Path: "app.js", Content: "console.log(1)", Language: "javascript"},
	}
	require.NoError(t, repo.Create(ctx, project, files))

	agg, err := repo.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "landing page", agg.Project.Name)
	require.Len(t, agg.Files, 2)
	assert.Empty(t, agg.Messages)

	t.Run("missing owner is rejected", func(t *testing.T) {
		err := repo.Create(ctx, &model.Project{OwnerID: uuid.New(), Name: "orphan"}, nil)
		assert.ErrorIs(t, err, ErrOwnerNotFound)
	})

	t.Run("unknown project id returns sentinel", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestProjectRepo_MessageOrdering(t *testing.T) {
	db := setupProjectTestDB(t)
	if db == nil {
		return
	}

	repo := NewProjectRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, db)
	defer cleanupProjectTestDB(t, db, owner.ID)

	project := &model.Project{OwnerID: owner.ID, Name: "chat order"}
	require.NoError(t, repo.Create(ctx, project, nil))

	// Insert out of submit order; the aggregate must come back sorted by the
	// submit-time timestamp.
	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.AppendMessage(ctx, &model.ChatMessage{
		ProjectID: project.ID, Role: model.RoleAssistant, Content: "second", Timestamp: base.Add(2 * time.Minute),
	}))
	require.NoError(t, repo.AppendMessage(ctx, &model.ChatMessage{
		ProjectID: project.ID, Role: model.RoleUser, Content: "first", Timestamp: base,
	}))
	require.NoError(t, repo.AppendMessage(ctx, &model.ChatMessage{
		ProjectID: project.ID, Role: model.RoleUser, Content: "third", Timestamp: base.Add(5 * time.Minute),
	}))

	agg, err := repo.Get(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, agg.Messages, 3)
	assert.Equal(t, "first", agg.Messages[0].Content)
	assert.Equal(t, "second", agg.Messages[1].Content)
	assert.Equal(t, "third", agg.Messages[2].Content)

	t.Run("invalid role is rejected before insert", func(t *testing.T) {
		err := repo.AppendMessage(ctx, &model.ChatMessage{
			ProjectID: project.ID, Role: "system", Content: "nope", Timestamp: time.Now(),
		})
		assert.ErrorIs(t, err, ErrInvalidRole)

		agg, getErr := repo.Get(ctx, project.ID)
		require.NoError(t, getErr)
		assert.Len(t, agg.Messages, 3, "rejected message must not be stored")
	})
}

func TestProjectRepo_ReplaceFiles(t *testing.T) {
	db := setupProjectTestDB(t)
	if db == nil {
		return
	}

	repo := NewProjectRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, db)
	defer cleanupProjectTestDB(t, db, owner.ID)

	project := &model.Project{OwnerID: owner.ID, Name: "replace"}
	require.NoError(t, repo.Create(ctx, project, []model.ProjectFile{
		{Path: "old.html", Content: "old", Language: "html"},
	}))

	before, err := repo.GetProject(ctx, project.ID)
	require.NoError(t, err)

	newSet := []model.ProjectFile{
		{Path: "index.html", Content: "<html></html>", Language: "html"},
		{Path: "app.js", Content: "console.log(1)", Language: "javascript"},
	}
	require.NoError(t, repo.ReplaceFiles(ctx, project.ID, newSet))

	agg, err := repo.Get(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, agg.Files, 2)
	paths := []string{agg.Files[0].Path, agg.Files[1].Path}
	assert.NotContains(t, paths, "old.html")
	assert.True(t, agg.Project.UpdatedAt.After(before.UpdatedAt), "replace must bump updated_at")

	t.Run("replace is idempotent", func(t *testing.T) {
		again := []model.ProjectFile{
			{Path: "index.html", Content: "<html></html>", Language: "html"},
			{Path: "app.js", Content: "console.log(1)", Language: "javascript"},
		}
		require.NoError(t, repo.ReplaceFiles(ctx, project.ID, again))

		agg, err := repo.Get(ctx, project.ID)
		require.NoError(t, err)
		require.Len(t, agg.Files, 2)
		for _, f := range agg.Files {
			if f.Path == "index.html" {
				assert.Equal(t, "<html></html>", f.Content)
			}
		}
	})

	t.Run("replace with empty set clears the workspace", func(t *testing.T) {
		require.NoError(t, repo.ReplaceFiles(ctx, project.ID, nil))
		agg, err := repo.Get(ctx, project.ID)
		require.NoError(t, err)
		assert.Empty(t, agg.Files)
	})
}

func TestProjectRepo_MergeFiles(t *testing.T) {
	db := setupProjectTestDB(t)
	if db == nil {
		return
	}

	repo := NewProjectRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, db)
	defer cleanupProjectTestDB(t, db, owner.ID)

	project := &model.Project{OwnerID: owner.ID, Name: "merge"}
	require.NoError(t, repo.Create(ctx, project, []model.ProjectFile{
		{Path: "index.html", Content: "v1", Language: "html"},
		{Path: "styles.css", Content: "body{}", Language: "css"},
	}))

	require.NoError(t, repo.MergeFiles(ctx, project.ID, []model.ProjectFile{
		{Path: "index.html", Content: "v2", Language: "html"},
		{Path: "app.js", Content: "console.log(1)", Language: "javascript"},
	}))

	agg, err := repo.Get(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, agg.Files, 3, "untouched paths must survive a merge")

	byPath := make(map[string]string)
	for _, f := range agg.Files {
		byPath[f.Path] = f.Content
	}
	assert.Equal(t, "v2", byPath["index.html"])
	assert.Equal(t, "body{}", byPath["styles.css"])
	assert.Equal(t, "console.log(1)", byPath["app.js"])
}

func TestProjectRepo_ListByOwner(t *testing.T) {
	db := setupProjectTestDB(t)
	if db == nil {
		return
	}

	repo := NewProjectRepo(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	defer cleanupProjectTestDB(t, db, alice.ID)
	defer cleanupProjectTestDB(t, db, bob.ID)

	for _, name := range []string{"a1", "a2", "a3"} {
		require.NoError(t, repo.Create(ctx, &model.Project{OwnerID: alice.ID, Name: name}, nil))
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, repo.Create(ctx, &model.Project{OwnerID: bob.ID, Name: "b1"}, nil))

	projects, err := repo.ListByOwner(ctx, alice.ID, time.Time{}, uuid.Nil, 0, true)
	require.NoError(t, err)
	require.Len(t, projects, 3, "other owners' projects must never leak")
	assert.Equal(t, "a3", projects[0].Name, "most recent first")
	assert.Equal(t, "a1", projects[2].Name)

	t.Run("cursor pagination walks the full list", func(t *testing.T) {
		page1, err := repo.ListByOwner(ctx, alice.ID, time.Time{}, uuid.Nil, 2, true)
		require.NoError(t, err)
		require.Len(t, page1, 2)

		last := page1[len(page1)-1]
		page2, err := repo.ListByOwner(ctx, alice.ID, last.CreatedAt, last.ID, 2, true)
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, "a1", page2[0].Name)
	})
}

func TestProjectRepo_Delete(t *testing.T) {
	db := setupProjectTestDB(t)
	if db == nil {
		return
	}

	repo := NewProjectRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, db)
	defer cleanupProjectTestDB(t, db, owner.ID)

	project := &model.Project{OwnerID: owner.ID, Name: "doomed"}
	require.NoError(t, repo.Create(ctx, project, []model.ProjectFile{
		{Path: "index.html", Content: "<html></html>", Language: "html"},
	}))
	require.NoError(t, repo.AppendMessage(ctx, &model.ChatMessage{
		ProjectID: project.ID, Role: model.RoleUser, Content: "hi", Timestamp: time.Now(),
	}))

	require.NoError(t, repo.Delete(ctx, project.ID))

	_, err := repo.Get(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	var fileCount, msgCount int64
	db.Model(&model.ProjectFile{}).Where("project_id = ?", project.ID).Count(&fileCount)
	db.Model(&model.ChatMessage{}).Where("project_id = ?", project.ID).Count(&msgCount)
	assert.Zero(t, fileCount)
	assert.Zero(t, msgCount)

	t.Run("deleting a missing project returns sentinel", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), ErrProjectNotFound)
	})
}
