package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"wassistant/internal/assistant"
	"wassistant/internal/middleware"
)

// Apology is the reply sent whenever a turn fails.
const Apology = "Sorry, I'm having trouble analyzing the image or responding right now. Please try again later."

const visionPromptTemplate = "You are a helpful WhatsApp assistant with vision capabilities chatting with %s. " +
	"Analyze images and answer questions about them. " +
	"Keep responses concise and friendly for WhatsApp. Use emojis appropriately."

// VisionSystemPrompt is the system prompt for an image turn from name.
func VisionSystemPrompt(name string) string {
	return fmt.Sprintf(visionPromptTemplate, name)
}

// ThreadResolver maps a user to their conversation thread.
type ThreadResolver interface {
	Resolve(ctx context.Context, userID, displayName string) (assistant.Thread, error)
}

// Conversation posts a message to a thread and waits for the reply.
type Conversation interface {
	SendAndAwait(ctx context.Context, thread assistant.Thread, text, displayName string) (string, error)
}

// ReplyObserver is told about every finished turn. err is nil on success.
type ReplyObserver interface {
	ReplyFinished(path Path, err error)
}

type Path string

const (
	PathText  Path = "text"
	PathImage Path = "image"
)

// Request is one inbound WhatsApp message.
type Request struct {
	Body      string
	UserID    string
	Name      string
	ImagePath string
}

type Result struct {
	Text   string
	Path   Path
	TurnID string
	// ThreadID is set on the text path only.
	ThreadID string
	// ImageIssue is set when an image was supplied but could not be used and
	// the turn fell back to the text path.
	ImageIssue Kind
}

type Service struct {
	resolver     ThreadResolver
	conversation Conversation
	vision       VisionAdapter
	mws          *middleware.Chain
	observer     ReplyObserver
	logger       *slog.Logger
	maxTokens    int
	turnTimeout  time.Duration
}

type ServiceOption func(*Service)

func WithVision(adapter VisionAdapter) ServiceOption {
	return func(s *Service) {
		s.vision = adapter
	}
}

func WithMiddlewareChain(chain *middleware.Chain) ServiceOption {
	return func(s *Service) {
		s.mws = chain
	}
}

func WithReplyObserver(o ReplyObserver) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithVisionMaxTokens caps image completions. Zero keeps the adapter default.
func WithVisionMaxTokens(n int) ServiceOption {
	return func(s *Service) {
		s.maxTokens = n
	}
}

// WithTurnTimeout bounds a whole turn. Zero means no bound beyond the
// caller's context.
func WithTurnTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.turnTimeout = d
	}
}

func NewService(resolver ThreadResolver, conversation Conversation, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:     resolver,
		conversation: conversation,
		logger:       slog.Default().With("component", "chat"),
		maxTokens:    500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateResponse runs the text flow for body and returns the assistant's
// reply. Errors are returned to the caller.
func (s *Service) GenerateResponse(ctx context.Context, body, userID, name string) (string, error) {
	res, err := s.Reply(ctx, Request{Body: body, UserID: userID, Name: name})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// RespondWithOptionalImage replies to body, analysing the image at imagePath
// when there is one. It never fails: any error is logged and the Apology is
// returned instead.
func (s *Service) RespondWithOptionalImage(ctx context.Context, body, userID, name, imagePath string) string {
	res, err := s.Reply(ctx, Request{Body: body, UserID: userID, Name: name, ImagePath: imagePath})
	if err == nil {
		return res.Text
	}

	logger := s.logger.With("wa_id", userID, "name", name)
	var re *ReplyError
	if !errors.As(err, &re) {
		re = &ReplyError{Kind: classify(err), Err: err}
	}
	switch re.Kind {
	case KindCanceled:
		logger.Warn("turn canceled", "error", re.Err)
	case KindRunFailed:
		logger.Error("assistant run failed", "error", re.Err, "rate_limited", assistant.IsRateLimited(re.Err))
	case KindPollExhausted:
		logger.Error("assistant run did not finish in time", "error", re.Err)
	case KindEmptyReply:
		logger.Error("assistant returned no text", "error", re.Err)
	case KindStore:
		logger.Error("thread store failure", "error", re.Err)
	default:
		logger.Error("error in response generation", "kind", re.Kind, "error", re.Err,
			"rate_limited", assistant.IsRateLimited(re.Err))
	}
	return Apology
}

// Reply runs one turn. With a readable ImagePath the turn is answered by the
// vision adapter in a single completion and no thread is touched. Otherwise,
// including when the image is missing or unreadable, the turn goes through
// the user's assistant thread.
func (s *Service) Reply(ctx context.Context, req Request) (Result, error) {
	res := Result{TurnID: uuid.NewString(), Path: PathText}
	logger := s.logger.With("turn_id", res.TurnID, "wa_id", req.UserID, "name", req.Name)

	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	var imageB64 string
	if req.ImagePath != "" {
		imageB64, res.ImageIssue = s.loadImage(logger, req.ImagePath)
		if res.ImageIssue == "" {
			res.Path = PathImage
		}
	}

	text, err := s.run(ctx, logger, req, res.Path, imageB64, &res)
	if s.observer != nil {
		s.observer.ReplyFinished(res.Path, err)
	}
	if err != nil {
		return res, err
	}
	res.Text = text
	return res, nil
}

func (s *Service) loadImage(logger *slog.Logger, path string) (string, Kind) {
	if s.vision == nil {
		logger.Warn("image supplied but no vision adapter configured", "path", path)
		return "", KindImageMissing
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("image not found, answering text only", "path", path, "error", err)
		return "", KindImageMissing
	}
	b64, ok := EncodeImageToBase64(path)
	if !ok {
		logger.Warn("image could not be encoded, answering text only", "path", path)
		return "", KindImageEncode
	}
	return b64, ""
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, req Request, path Path, imageB64 string, res *Result) (string, error) {
	text, short, err := s.dispatch(ctx, middleware.EventBeforeAssistantRequest, req, req.Body, path == PathImage)
	if err != nil {
		return "", err
	}
	if short {
		logger.Info("middleware answered turn")
		return text, nil
	}

	var reply string
	if path == PathImage {
		logger.Info("processing image message", "path", req.ImagePath)
		reply, err = s.visionReply(ctx, req, text, imageB64)
	} else {
		reply, err = s.textReply(ctx, logger, req, text, res)
	}
	if err != nil {
		return "", wrap(err)
	}

	reply, _, err = s.dispatch(ctx, middleware.EventBeforeUserReply, req, reply, path == PathImage)
	if err != nil {
		return "", err
	}
	logger.Info("generated reply", "path", path, "chars", len(reply))
	return reply, nil
}

func (s *Service) textReply(ctx context.Context, logger *slog.Logger, req Request, text string, res *Result) (string, error) {
	thread, err := s.resolver.Resolve(ctx, req.UserID, req.Name)
	if err != nil {
		return "", err
	}
	res.ThreadID = thread.ID
	logger.Debug("thread resolved", "thread_id", thread.ID)
	return s.conversation.SendAndAwait(ctx, thread, text, req.Name)
}

func (s *Service) visionReply(ctx context.Context, req Request, text, imageB64 string) (string, error) {
	parts := make([]ContentPart, 0, 2)
	if text != "" {
		parts = append(parts, TextContent(text))
	}
	parts = append(parts, ImageContent(imageB64, imageMIMEType(req.ImagePath)))

	return s.vision.Complete(ctx, CompletionRequest{
		SystemPrompt: VisionSystemPrompt(req.Name),
		Parts:        parts,
		MaxTokens:    s.maxTokens,
	})
}

// dispatch runs the middleware chain for one event. short reports that a
// middleware cancelled with replacement text, which then becomes the reply.
func (s *Service) dispatch(ctx context.Context, name middleware.EventName, req Request, text string, hasImage bool) (out string, short bool, err error) {
	if s.mws == nil {
		return text, false, nil
	}
	e := &middleware.Event{
		Name:     name,
		UserID:   req.UserID,
		UserName: req.Name,
		HasImage: hasImage,
		Context:  map[string]any{},
	}
	if name == middleware.EventBeforeUserReply {
		e.ReplyText = text
	} else {
		e.UserText = text
	}

	results, err := s.mws.Dispatch(ctx, e)
	if err != nil {
		return "", false, wrap(fmt.Errorf("middleware: %w", err))
	}
	updated, replaced, canceled := applyTextDecisions(text, results)
	if canceled == nil {
		return updated, false, nil
	}
	if replaced && strings.TrimSpace(updated) != "" {
		return updated, true, nil
	}
	reason := canceled.Reason
	if strings.TrimSpace(reason) == "" {
		reason = string(name)
	}
	return "", false, &ReplyError{Kind: KindCanceled, Err: fmt.Errorf("%w: %s", ErrCanceledByMiddleware, reason)}
}

// applyTextDecisions returns initial unchanged unless a middleware replaced it.
func applyTextDecisions(initial string, results []middleware.DecisionResult) (text string, replaced bool, canceled *middleware.Decision) {
	text = initial
	for _, r := range results {
		dec := r.Decision
		if dec.ReplaceText != nil {
			text = *dec.ReplaceText
			replaced = true
		}
		if dec.Cancel {
			return text, replaced, &dec
		}
	}
	return text, replaced, nil
}
