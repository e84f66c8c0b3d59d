package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
	"github.com/iota-uz/ledgerdesk/pkg/cache"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
)

const analysisSystemPrompt = `You review the paperwork a UK accountancy client has supplied.
Given a task and the list of documents on file, decide whether the documents are sufficient to complete the task.
Reply with a single JSON object and nothing else:
{"sufficient": true|false, "missing": ["short description of each missing item"], "summary": "one or two sentences"}`

// Completer is a chat model that answers one prompt.
type Completer interface {
	Enabled() bool
	Model() string
	Complete(ctx context.Context, system, user string) (string, error)
}

type AnalysisService struct {
	documents *DocumentService
	completer Completer
	cache     cache.Cache
}

// NewAnalysisService accepts a nil cache, in which case every analysis hits
// the model.
func NewAnalysisService(documents *DocumentService, completer Completer, c cache.Cache) *AnalysisService {
	return &AnalysisService{documents: documents, completer: completer, cache: c}
}

// Analyze asks the model whether the client's documents cover dto.Task,
// quoting the readable part of the focus document.
func (s *AnalysisService) Analyze(ctx context.Context, documentID uuid.UUID, dto *document.AnalysisDTO) (*document.Analysis, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if s.completer == nil || !s.completer.Enabled() {
		return nil, document.ErrAnalysisOff
	}
	doc, data, err := s.documents.Download(ctx, documentID)
	if err != nil {
		return nil, err
	}
	all, err := s.documents.ListByClient(ctx, doc.ClientID)
	if err != nil {
		return nil, err
	}

	prompt := userPrompt(dto.Task, doc, excerpt(doc, data), all)
	key := cacheKey(s.completer.Model(), analysisSystemPrompt, prompt)
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"document_id": documentID,
		"model":       s.completer.Model(),
	})

	raw, cached := s.cached(ctx, key, logger)
	if !cached {
		raw, err = s.completer.Complete(ctx, analysisSystemPrompt, prompt)
		if err != nil {
			logger.WithError(err).Error("documents: analysis request failed")
			return nil, fmt.Errorf("%w: %w", document.ErrAnalysisFailed, err)
		}
	}

	v, err := parseVerdict(raw)
	if err != nil {
		logger.WithError(err).WithField("reply", raw).Warn("documents: unparseable analysis reply")
		return nil, fmt.Errorf("%w: %w", document.ErrAnalysisFailed, err)
	}
	if !cached && s.cache != nil {
		if err := s.cache.Set(ctx, key, raw); err != nil {
			logger.WithError(err).Warn("documents: failed to cache analysis")
		}
	}
	return &document.Analysis{
		DocumentID: documentID,
		Task:       dto.Task,
		Sufficient: v.Sufficient,
		Missing:    v.Missing,
		Summary:    v.Summary,
		Model:      s.completer.Model(),
		Cached:     cached,
	}, nil
}

func (s *AnalysisService) cached(ctx context.Context, key string, logger *logrus.Entry) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	v, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			logger.WithError(err).Warn("documents: analysis cache read failed")
		}
		return "", false
	}
	return v, true
}

func userPrompt(task string, focus *document.Document, text string, all []*document.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\nDocuments on file:\n", task)
	for _, d := range all {
		category := d.Category
		if category == "" {
			category = "uncategorised"
		}
		fmt.Fprintf(&b, "- %s (%s, %s, uploaded %s)\n", d.Filename, category, d.ContentType, d.UploadedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "\nFocus document: %s\n", focus.Filename)
	if text != "" {
		fmt.Fprintf(&b, "Content excerpt:\n%s\n", text)
	} else {
		b.WriteString("Content excerpt: not available for this file type.\n")
	}
	return b.String()
}

func cacheKey(model, system, user string) string {
	sum := md5.Sum([]byte(model + "\x00" + system + "\x00" + user))
	return "analysis:" + hex.EncodeToString(sum[:])
}

type verdict struct {
	Sufficient bool     `json:"sufficient"`
	Missing    []string `json:"missing"`
	Summary    string   `json:"summary"`
}

// parseVerdict reads the first JSON object in reply. Models sometimes wrap
// it in prose or a code fence.
func parseVerdict(reply string) (*verdict, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in reply")
	}
	var v verdict
	if err := json.Unmarshal([]byte(reply[start:end+1]), &v); err != nil {
		return nil, err
	}
	if v.Missing == nil {
		v.Missing = []string{}
	}
	v.Summary = strings.TrimSpace(v.Summary)
	return &v, nil
}
