package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/llm"
	"github.com/verdantiq/esg-engine/pkg/logging"
	"github.com/verdantiq/esg-engine/pkg/models"
	"github.com/verdantiq/esg-engine/pkg/prompts"
	"github.com/verdantiq/esg-engine/pkg/repositories"
)

// historyWindow is how many prior messages are included in the prompt.
const historyWindow = 10

// fallbackResponse is the deterministic assistant reply served whenever no
// usable completion was obtained.
const fallbackResponse = "I had trouble processing that input. Could you rephrase it, or tell me the activity, quantity and unit directly?"

// timeoutFallbackConfidence is the 0-1 confidence recorded on a turn whose
// completion timed out.
const timeoutFallbackConfidence = 0.5

// ExtractRequest is one conversational turn.
type ExtractRequest struct {
	SessionID       *uuid.UUID
	ReportingPeriod string
	Message         string
}

// ExtractResult is the outcome of one conversational turn.
type ExtractResult struct {
	SessionID    uuid.UUID                  `json:"session_id"`
	MessageID    uuid.UUID                  `json:"message_id"`
	Envelope     *models.ExtractionEnvelope `json:"envelope"`
	ProcessingMs int64                      `json:"processing_time_ms"`
	Degraded     bool                       `json:"degraded"`
}

// ExtractionService runs the conversational extraction pipeline: session
// resolution, prompt assembly, completion, envelope validation and audit
// persistence.
type ExtractionService interface {
	ProcessMessage(ctx context.Context, companyID, userID uuid.UUID, req *ExtractRequest) (*ExtractResult, error)
}

type extractionService struct {
	sessions   repositories.SessionRepository
	footprints repositories.FootprintRepository
	companies  repositories.CompanyRepository
	reference  ReferenceService
	gateway    *llm.Gateway
	logger     *zap.Logger
}

// NewExtractionService creates a new ExtractionService.
func NewExtractionService(
	sessions repositories.SessionRepository,
	footprints repositories.FootprintRepository,
	companies repositories.CompanyRepository,
	reference ReferenceService,
	gateway *llm.Gateway,
	logger *zap.Logger,
) ExtractionService {
	return &extractionService{
		sessions:   sessions,
		footprints: footprints,
		companies:  companies,
		reference:  reference,
		gateway:    gateway,
		logger:     logger.Named("extraction-service"),
	}
}

var _ ExtractionService = (*extractionService)(nil)

func (s *extractionService) ProcessMessage(ctx context.Context, companyID, userID uuid.UUID, req *ExtractRequest) (*ExtractResult, error) {
	start := time.Now()

	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}
	if req.ReportingPeriod == "" {
		req.ReportingPeriod = time.Now().Format("2006-01")
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	footprint, err := s.footprints.GetByCompanyPeriod(ctx, companyID, req.ReportingPeriod)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	session, err := s.resolveSession(ctx, companyID, userID, req, footprint)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.GetRecentMessages(ctx, session.ID, historyWindow)
	if err != nil {
		return nil, err
	}

	// The user message is audit data: it must survive even when the caller
	// cancels mid-turn, so persistence runs outside the request's
	// cancellation scope.
	persistCtx := context.WithoutCancel(ctx)
	userMsg := &models.Message{
		SessionID: session.ID,
		Role:      models.MessageRoleUser,
		Content:   req.Message,
	}
	if err := s.sessions.AppendMessage(persistCtx, userMsg); err != nil {
		return nil, err
	}

	prompt := prompts.BuildExtractionPrompt(company, footprint, history, req.Message)
	completion := s.gateway.Complete(ctx, prompt, prompts.ExtractionSystemMessage)

	// A cancelled turn keeps the user message but suppresses the response.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	envelope, degraded := s.buildEnvelope(ctx, completion, company, footprint)

	assistantMsg := &models.Message{
		SessionID:        session.ID,
		Role:             models.MessageRoleAssistant,
		Content:          envelope.AIResponse,
		ExtractedData:    envelope.ExtractedData,
		SourceMessageID:  &userMsg.ID,
		ValidationStatus: validationStatusFor(envelope),
		ProcessingMs:     time.Since(start).Milliseconds(),
	}
	if envelope.ExtractedData != nil {
		pct := envelope.ExtractedData.Confidence * 100
		assistantMsg.Confidence = &pct
	} else if completion.Degraded && completion.ErrorType == llm.ErrorTypeEndpoint {
		// Timed-out turns carry the fallback's mid confidence.
		pct := timeoutFallbackConfidence * 100
		assistantMsg.Confidence = &pct
	}
	if err := s.sessions.AppendMessage(persistCtx, assistantMsg); err != nil {
		return nil, err
	}

	s.logger.Info("extraction turn completed",
		zap.String("session_id", session.ID.String()),
		zap.String("message", logging.SanitizeContent(req.Message)),
		zap.Bool("degraded", degraded),
		zap.Bool("extracted", envelope.ExtractedData != nil),
		zap.Int64("processing_ms", assistantMsg.ProcessingMs))

	return &ExtractResult{
		SessionID:    session.ID,
		MessageID:    assistantMsg.ID,
		Envelope:     envelope,
		ProcessingMs: assistantMsg.ProcessingMs,
		Degraded:     degraded,
	}, nil
}

// resolveSession loads the referenced session or starts a fresh one. A
// terminal session rejects further turns.
func (s *extractionService) resolveSession(ctx context.Context, companyID, userID uuid.UUID, req *ExtractRequest, footprint *models.Footprint) (*models.Session, error) {
	if req.SessionID != nil {
		session, err := s.sessions.GetByID(ctx, *req.SessionID)
		if err != nil {
			return nil, err
		}
		if session.Status.IsTerminal() {
			return nil, apperrors.ErrSessionTerminal
		}
		return session, nil
	}

	session := &models.Session{
		CompanyID: companyID,
		CreatorID: userID,
		Status:    models.SessionStatusActive,
		Context:   map[string]any{"reporting_period": req.ReportingPeriod},
	}
	if footprint != nil {
		session.FootprintID = &footprint.ID
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// buildEnvelope turns a gateway result into a validated envelope, falling
// back to the deterministic response when the completion is unusable.
func (s *extractionService) buildEnvelope(ctx context.Context, completion llm.Result, company *models.Company, footprint *models.Footprint) (*models.ExtractionEnvelope, bool) {
	if completion.Degraded {
		return fallbackEnvelope(completion.ErrorType), true
	}

	envelope, err := llm.ParseJSONResponse[models.ExtractionEnvelope](completion.Content)
	if err != nil {
		s.logger.Warn("completion did not contain a parsable envelope", zap.Error(err))
		env := fallbackEnvelope(llm.ErrorTypeNone)
		env.AIResponse = "I couldn't process that into structured data. Could you restate the activity, quantity and unit?"
		return env, true
	}

	s.validateEnvelope(ctx, &envelope, company, footprint)
	return &envelope, false
}

// validateEnvelope applies the post-completion checks. The completion is
// untrusted: anything outside the contract is downgraded, never propagated.
func (s *extractionService) validateEnvelope(ctx context.Context, env *models.ExtractionEnvelope, company *models.Company, footprint *models.Footprint) {
	if env.ClarifyingQuestions == nil {
		env.ClarifyingQuestions = []string{}
	}
	if env.SuggestedActions == nil {
		env.SuggestedActions = []models.SuggestedAction{}
	}
	if env.Validation.Anomalies == nil {
		env.Validation.Anomalies = []string{}
	}
	if env.Validation.Warnings == nil {
		env.Validation.Warnings = []string{}
	}
	if env.Validation.Status == "" {
		env.Validation.Status = models.ExtractionOK
	}
	if env.AIResponse == "" {
		env.AIResponse = fallbackResponse
	}

	data := env.ExtractedData
	if data == nil {
		env.SuggestedActions = env.SuggestedActions[:0]
		return
	}

	if data.Confidence < 0 {
		data.Confidence = 0
	}
	if data.Confidence > 1 {
		data.Confidence = 1
	}

	if data.Scope < 1 || data.Scope > 3 {
		env.Validation.Status = models.ExtractionNeedsClarification
		env.ClarifyingQuestions = append(env.ClarifyingQuestions,
			"Which GHG scope does this activity belong to?")
		env.ExtractedData = nil
		env.SuggestedActions = env.SuggestedActions[:0]
		return
	}

	if data.CalculatedEmissions < 0 {
		env.Validation.Status = models.ExtractionWarning
		env.Validation.Anomalies = append(env.Validation.Anomalies,
			fmt.Sprintf("calculated emissions are negative (%.2f tCO2e)", data.CalculatedEmissions))
	}
	if footprint != nil {
		current := scopeTotalFor(footprint, data.Scope)
		if current > 0 && data.CalculatedEmissions > current*10 {
			env.Validation.Status = models.ExtractionWarning
			env.Validation.Anomalies = append(env.Validation.Anomalies,
				fmt.Sprintf("calculated emissions (%.2f tCO2e) exceed 10x the current scope %d total (%.2f tCO2e)",
					data.CalculatedEmissions, data.Scope, current))
		}
	}

	s.crossCheckFactor(ctx, env, company)

	valid := env.SuggestedActions[:0]
	for _, action := range env.SuggestedActions {
		if action.Type != "update_footprint" {
			continue
		}
		if !models.IsValidScopeField(action.Field) || !models.IsValidUpdateOperation(action.Operation) {
			continue
		}
		if action.Value < 0 {
			continue
		}
		// Footprint mutations always go through explicit confirmation.
		action.RequiresConfirmation = true
		valid = append(valid, action)
	}
	env.SuggestedActions = valid
}

// factorCrossCheckTolerance is the relative disagreement the reference
// factor cross-check tolerates before flagging the arithmetic.
const factorCrossCheckTolerance = 0.25

// crossCheckFactor recomputes the emissions from the reference factor table
// and flags a large disagreement with the model's arithmetic. Rows whose unit
// denominator does not match the extracted unit are skipped.
func (s *extractionService) crossCheckFactor(ctx context.Context, env *models.ExtractionEnvelope, company *models.Company) {
	data := env.ExtractedData
	activity := models.ActivityKind(data.ActivityType)
	if !models.IsValidActivityKind(activity) || data.Quantity <= 0 || data.Unit == "" {
		return
	}

	year := time.Now().Year()
	if t, err := time.Parse("2006-01", data.Period); err == nil {
		year = t.Year()
	}

	factor, err := s.reference.LookupFactor(ctx, activity, "", company.Region, year)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("reference factor lookup failed",
				zap.String("activity", string(activity)),
				zap.Error(err))
		}
		return
	}
	if factor.Value <= 0 || !strings.HasSuffix(factor.Unit, "/"+data.Unit) {
		return
	}

	expected := data.Quantity * factor.Value / 1000 // kgCO2e to tCO2e
	if expected == 0 {
		return
	}
	if math.Abs(data.CalculatedEmissions-expected)/expected > factorCrossCheckTolerance {
		env.Validation.Status = models.ExtractionWarning
		env.Validation.Warnings = append(env.Validation.Warnings,
			fmt.Sprintf("calculated emissions (%.2f tCO2e) disagree with the reference factor estimate (%.2f tCO2e)",
				data.CalculatedEmissions, expected))
	}
}

// fallbackEnvelope is the deterministic mock response. A timeout degrades to
// a warning with mid confidence; other failures stay status ok so the
// conversation continues naturally.
func fallbackEnvelope(errType llm.ErrorType) *models.ExtractionEnvelope {
	env := &models.ExtractionEnvelope{
		Validation: models.Validation{
			Status:    models.ExtractionOK,
			Anomalies: []string{},
			Warnings:  []string{},
		},
		AIResponse:          fallbackResponse,
		ClarifyingQuestions: []string{},
		SuggestedActions:    []models.SuggestedAction{},
	}
	if errType == llm.ErrorTypeEndpoint {
		env.Validation.Status = models.ExtractionWarning
		env.Validation.Warnings = append(env.Validation.Warnings, "assistant response timed out")
	}
	return env
}

func validationStatusFor(env *models.ExtractionEnvelope) models.ValidationStatus {
	switch env.Validation.Status {
	case models.ExtractionNeedsClarification, models.ExtractionWarning:
		return models.ValidationNeedsReview
	default:
		return models.ValidationPending
	}
}

func scopeTotalFor(fp *models.Footprint, scope int) float64 {
	switch scope {
	case 1:
		return fp.Scope1
	case 2:
		return fp.Scope2
	case 3:
		return fp.Scope3
	}
	return 0
}
