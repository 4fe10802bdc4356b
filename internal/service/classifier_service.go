package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	"github.com/noah-isme/feeline-api/pkg/llm"
)

type completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

type pendingChecker interface {
	HasPending(sender string) bool
}

var (
	yesWords = map[string]struct{}{"yes": {}, "y": {}, "confirm": {}, "ok": {}, "proceed": {}}
	noWords  = map[string]struct{}{"no": {}, "n": {}, "cancel": {}, "stop": {}, "abort": {}}
)

// ClassifierService assigns a high-level operation to each inbound message.
// While the sender has a write awaiting confirmation, replies are resolved
// deterministically without touching the language model.
type ClassifierService struct {
	llm     completer
	pending pendingChecker
	model   string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewClassifierService constructs the service.
func NewClassifierService(llmClient completer, pending pendingChecker, model string, logger *zap.Logger) *ClassifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassifierService{llm: llmClient, pending: pending, model: model, logger: logger}
}

// SetMetrics attaches the metrics collector. Safe to skip.
func (s *ClassifierService) SetMetrics(m *MetricsService) { s.metrics = m }

const classifierPrompt = `Classify this message and return ONLY a JSON object with operation and confidence:

Message: %q

Return format (no markdown, no extra text):
{"operation": "CREATE|READ|UPDATE|DELETE|REMIND_ALL|REMIND_SPECIFIC", "confidence": 0.85, "student_id": ""}

Examples:
- "Show me details of Rahul" -> {"operation": "READ", "confidence": 0.9}
- "Add new student" -> {"operation": "CREATE", "confidence": 0.9}
- "Update phone number" -> {"operation": "UPDATE", "confidence": 0.85}
- "Delete student STU123" -> {"operation": "DELETE", "confidence": 0.9}
- "Send reminder to all parents" -> {"operation": "REMIND_ALL", "confidence": 0.9}
- "Remind STU123" -> {"operation": "REMIND_SPECIFIC", "confidence": 0.9, "student_id": "STU123"}`

// Classify resolves the operation for one message from one sender.
func (s *ClassifierService) Classify(ctx context.Context, text, sender string) models.Classification {
	if s.pending != nil && s.pending.HasPending(sender) {
		return models.Classification{Operation: resolveConfirmationWord(text), Confidence: 1.0}
	}

	start := time.Now()
	content, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Prompt:      fmt.Sprintf(classifierPrompt, text),
		Temperature: 0.1,
		MaxTokens:   200,
	})
	s.metrics.ObserveLLMCall("classify", time.Since(start))
	if err != nil {
		s.logger.Warn("classification failed, defaulting to read", zap.Error(err))
		return models.Classification{Operation: models.OpRead, Confidence: 0.5}
	}

	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		s.logger.Warn("classifier returned no JSON, defaulting to read", zap.String("content", content))
		return models.Classification{Operation: models.OpRead, Confidence: 0.5}
	}

	var classification models.Classification
	if err := json.Unmarshal([]byte(jsonStr), &classification); err != nil {
		s.logger.Warn("classifier JSON invalid, defaulting to read", zap.Error(err))
		return models.Classification{Operation: models.OpRead, Confidence: 0.5}
	}
	if !knownOperation(classification.Operation) {
		s.logger.Warn("classifier returned unknown operation, defaulting to read",
			zap.String("operation", string(classification.Operation)))
		return models.Classification{Operation: models.OpRead, Confidence: 0.5}
	}
	return classification
}

func resolveConfirmationWord(text string) models.Operation {
	word := strings.ToLower(strings.TrimSpace(text))
	if _, ok := yesWords[word]; ok {
		return models.OpConfirmYes
	}
	if _, ok := noWords[word]; ok {
		return models.OpConfirmNo
	}
	return models.OpConfirmInvalid
}

func knownOperation(op models.Operation) bool {
	switch op {
	case models.OpCreate, models.OpRead, models.OpUpdate, models.OpDelete,
		models.OpRemindAll, models.OpRemindSpecific:
		return true
	}
	return false
}
