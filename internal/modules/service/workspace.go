package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codecraft-io/codecraft/internal/config"
	"github.com/codecraft-io/codecraft/internal/infra/genai"
	mq "github.com/codecraft-io/codecraft/internal/infra/queue"
	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/codecraft-io/codecraft/internal/modules/repo"
	"github.com/codecraft-io/codecraft/internal/pkg/editorfs"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Workspace states derived from storage plus the generation lock.
const (
	StatusEmpty      = "empty"
	StatusGenerating = "generating"
	StatusReady      = "ready"
)

const untitledProjectName = "Untitled Project"

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock reacquired by another request is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type WorkspaceService interface {
	Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error)
	ChatTurn(ctx context.Context, in ChatTurnInput) (*ChatTurnOutput, error)
	InFlight(ctx context.Context, projectID uuid.UUID) (bool, error)
	Status(ctx context.Context, agg *repo.ProjectAggregate) (string, error)
}

type workspaceService struct {
	r   repo.ProjectRepo
	gen genai.Generator
	rdb *redis.Client
	log *zap.Logger
	mq  *amqp.Connection
	cfg *config.Config
}

func NewWorkspaceService(r repo.ProjectRepo, gen genai.Generator, rdb *redis.Client, log *zap.Logger, mqConn *amqp.Connection, cfg *config.Config) WorkspaceService {
	return &workspaceService{r: r, gen: gen, rdb: rdb, log: log, mq: mqConn, cfg: cfg}
}

func lockKey(projectID uuid.UUID) string {
	return "genlock:" + projectID.String()
}

func (s *workspaceService) lockTTL() time.Duration {
	if s.cfg.Generator.LockTTLSec <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(s.cfg.Generator.LockTTLSec) * time.Second
}

// acquireLock takes the per-project generation lock. At most one generation
// runs per project; a concurrent caller gets ErrGenerationInFlight instead of
// queueing.
func (s *workspaceService) acquireLock(ctx context.Context, projectID uuid.UUID) (string, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, lockKey(projectID), token, s.lockTTL()).Result()
	if err != nil {
		return "", fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return "", ErrGenerationInFlight
	}
	return token, nil
}

func (s *workspaceService) releaseLock(ctx context.Context, projectID uuid.UUID, token string) {
	if err := releaseScript.Run(ctx, s.rdb, []string{lockKey(projectID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("release generation lock",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
	}
}

func (s *workspaceService) InFlight(ctx context.Context, projectID uuid.UUID) (bool, error) {
	n, err := s.rdb.Exists(ctx, lockKey(projectID)).Result()
	if err != nil {
		return false, fmt.Errorf("check generation lock: %w", err)
	}
	return n > 0, nil
}

// Status derives the workspace state for an already-loaded aggregate.
func (s *workspaceService) Status(ctx context.Context, agg *repo.ProjectAggregate) (string, error) {
	inFlight, err := s.InFlight(ctx, agg.Project.ID)
	if err != nil {
		return "", err
	}
	if inFlight {
		return StatusGenerating, nil
	}
	if len(agg.Files) == 0 {
		return StatusEmpty, nil
	}
	return StatusReady, nil
}

type GenerateInput struct {
	OwnerID uuid.UUID
	Prompt  string
}

type GenerateOutput struct {
	Project     *model.Project      `json:"project"`
	Explanation string              `json:"explanation"`
	Files       []model.ProjectFile `json:"files"`
}

type ChatTurnEvent struct {
	ProjectID          uuid.UUID `json:"project_id"`
	UserMessageID      uuid.UUID `json:"user_message_id"`
	AssistantMessageID uuid.UUID `json:"assistant_message_id"`
}

// Generate creates a project from a prompt. The file set is written
// wholesale, the project is renamed to the generator's title, and the
// user/assistant turn pair is appended adjacently with the user message
// stamped at submit time. On generator failure the project stays empty and
// nothing is appended.
func (s *workspaceService) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	project := &model.Project{
		OwnerID: in.OwnerID,
		Name:    untitledProjectName,
	}
	if err := s.r.Create(ctx, project, nil); err != nil {
		return nil, err
	}
	s.publishProjectCreated(ctx, project)

	token, err := s.acquireLock(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, project.ID, token)

	submittedAt := time.Now()

	result, err := s.gen.GenerateProject(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	files := generatedToFiles(result.Files)
	if err := s.r.ReplaceFiles(ctx, project.ID, files); err != nil {
		return nil, err
	}

	if result.ProjectTitle != "" {
		if err := s.r.Rename(ctx, project.ID, result.ProjectTitle); err != nil {
			return nil, err
		}
		project.Name = result.ProjectTitle
	}

	userMsg, assistantMsg := turnPair(project.ID, in.OwnerID, prompt, result.Explanation, submittedAt)
	if err := s.r.AppendMessages(ctx, []*model.ChatMessage{userMsg, assistantMsg}); err != nil {
		return nil, err
	}

	s.publishChatTurn(ctx, project.ID, userMsg.ID, assistantMsg.ID)

	return &GenerateOutput{
		Project:     project,
		Explanation: result.Explanation,
		Files:       files,
	}, nil
}

type ChatTurnInput struct {
	ProjectID uuid.UUID
	OwnerID   uuid.UUID
	Message   string
}

type ChatTurnOutput struct {
	UserMessage      *model.ChatMessage `json:"user_message"`
	AssistantMessage *model.ChatMessage `json:"assistant_message"`
	UpdatedPaths     []string           `json:"updated_paths"`
}

// ChatTurn runs a follow-up generation against an existing project. Only the
// paths the generator returns are merged; the rest of the workspace is left
// alone. On failure nothing is merged and nothing is appended.
func (s *workspaceService) ChatTurn(ctx context.Context, in ChatTurnInput) (*ChatTurnOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	agg, err := s.r.Get(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if agg.Project.OwnerID != in.OwnerID {
		return nil, ErrNotOwner
	}

	token, err := s.acquireLock(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, in.ProjectID, token)

	submittedAt := time.Now()

	ctxFiles := make([]genai.ContextFile, 0, len(agg.Files))
	for _, f := range agg.Files {
		ctxFiles = append(ctxFiles, genai.ContextFile{Path: f.Path, Content: f.Content})
	}
	history := make([]genai.HistoryTurn, 0, len(agg.Messages))
	for _, m := range agg.Messages {
		history = append(history, genai.HistoryTurn{Role: m.Role, Content: m.Content})
	}

	result, err := s.gen.ContinueProject(ctx, message, ctxFiles, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	files := generatedToFiles(result.Files)
	if err := s.r.MergeFiles(ctx, in.ProjectID, files); err != nil {
		return nil, err
	}

	userMsg, assistantMsg := turnPair(in.ProjectID, in.OwnerID, message, result.Explanation, submittedAt)
	if err := s.r.AppendMessages(ctx, []*model.ChatMessage{userMsg, assistantMsg}); err != nil {
		return nil, err
	}

	s.publishChatTurn(ctx, in.ProjectID, userMsg.ID, assistantMsg.ID)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}

	return &ChatTurnOutput{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		UpdatedPaths:     paths,
	}, nil
}

func (s *workspaceService) publishProjectCreated(ctx context.Context, p *model.Project) {
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

func (s *workspaceService) publishChatTurn(ctx context.Context, projectID, userMsgID, assistantMsgID uuid.UUID) {
	if s.mq == nil {
		return
	}
	pub, err := mq.NewPublisher(s.mq, s.log)
	if err != nil {
		s.log.Warn("chat turn event publisher", zap.Error(err))
		return
	}
	defer pub.Close()
	if err := pub.PublishJSON(ctx, s.cfg.RabbitMQ.ExchangeName, s.cfg.RabbitMQ.RoutingKey.ChatTurn, ChatTurnEvent{
		ProjectID:          projectID,
		UserMessageID:      userMsgID,
		AssistantMessageID: assistantMsgID,
	}); err != nil {
		s.log.Warn("publish chat turn event", zap.Error(err))
	}
}

func generatedToFiles(in []genai.GeneratedFile) []model.ProjectFile {
	out := make([]model.ProjectFile, 0, len(in))
	for _, f := range in {
		path := editorfs.StorePath(f.Path)
		if path == "" {
			continue
		}
		out = append(out, model.ProjectFile{
			Path:     path,
			Content:  f.Content,
			Language: editorfs.InferLanguage(path),
		})
	}
	return out
}

// turnPair builds the adjacent user/assistant messages for one exchange. The
// user timestamp is the submit time; the assistant timestamp is strictly
// after it so ascending reads keep the pair ordered.
func turnPair(projectID, authorID uuid.UUID, prompt, explanation string, submittedAt time.Time) (*model.ChatMessage, *model.ChatMessage) {
	if explanation == "" {
		explanation = "Done. Your project has been updated."
	}
	assistantAt := time.Now()
	if !assistantAt.After(submittedAt) {
		assistantAt = submittedAt.Add(time.Millisecond)
	}
	user := &model.ChatMessage{
		ProjectID: projectID,
		Role:      model.RoleUser,
		Content:   prompt,
		Timestamp: submittedAt,
		AuthorID:  &authorID,
	}
	assistant := &model.ChatMessage{
		ProjectID: projectID,
		Role:      model.RoleAssistant,
		Content:   explanation,
		Timestamp: assistantAt,
	}
	return user, assistant
}
