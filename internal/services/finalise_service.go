package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planease/engine/internal/intake/conditions"
	"github.com/planease/engine/internal/intake/documents"
	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/repository"
	"github.com/planease/engine/internal/storage"
	"github.com/planease/engine/internal/store"
	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

// FinaliseConfig is everything the finaliser needs to know about its
// environment. It is built once from pkg/config.
type FinaliseConfig struct {
	Bucket              string
	StagingPrefix       string
	PermanentPrefix     string
	RelocateConcurrency int
	// ClaimSessions guards the session with a conditional claim before a
	// project id is minted. Off restores plain check-then-act.
	ClaimSessions bool
	// ClaimTTL is how long an abandoned claim blocks other attempts.
	ClaimTTL time.Duration
}

// FinaliseResult describes a successful finalisation or a replay. On failure
// only Progress and Warnings are meaningful.
type FinaliseResult struct {
	ProjectID        string
	Counts           models.Counts
	AlreadyFinalised bool
	Warnings         []string
	Progress         []string
}

type FinaliseService interface {
	// Finalise materialises the session into a project owned by userID.
	// A second call for a finalised session returns the stored project id
	// without writing anything.
	Finalise(ctx context.Context, sessionID, userID string) (*FinaliseResult, error)
}

type finaliseService struct {
	repos      *repository.Repositories
	reconciler *documents.Reconciler
	cfg        FinaliseConfig

	now   func() time.Time
	newID func() string
}

func NewFinaliseService(repos *repository.Repositories, objects storage.ObjectStore, cfg FinaliseConfig) FinaliseService {
	rec := documents.NewReconciler(storage.NewRelocator(objects), documents.Options{
		Bucket:          cfg.Bucket,
		PermanentPrefix: cfg.PermanentPrefix,
		Concurrency:     cfg.RelocateConcurrency,
	})
	return &finaliseService{repos: repos, reconciler: rec, cfg: cfg, now: time.Now, newID: uuid.NewString}
}

var _ FinaliseService = (*finaliseService)(nil)

// intakeInput is the typed view of a session's step data.
type intakeInput struct {
	parsed        *models.ParsedConditions
	parsedRaw     map[string]any
	pkg           *models.CouncilConditionsStep
	documents     *models.DocumentsStep
	project       models.ProjectStep
	councilLookup *models.CouncilLookup
}

func (s *finaliseService) Finalise(ctx context.Context, sessionID, userID string) (*FinaliseResult, error) {
	log := logger.L().With(zap.String("session_id", sessionID), zap.String("user_id", userID))
	ctx = logger.WithContext(ctx, log)
	log.Info("finalise session start")

	tr := &trace{}
	res := &FinaliseResult{}
	fail := func(err error) (*FinaliseResult, error) {
		err = classify(err)
		log.Error("finalise session failed", zap.Error(err), zap.Strings("progress", tr.list()))
		res.Progress = tr.list()
		return res, err
	}

	sess, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fail(err)
	}
	tr.mark("session_loaded")

	if sess.Finalised {
		return s.replay(ctx, sess), nil
	}

	in, warnings, err := decodeInput(sess)
	if err != nil {
		return fail(err)
	}
	res.Warnings = append(res.Warnings, warnings...)
	tr.mark("input_decoded")

	claimID := ""
	if s.cfg.ClaimSessions {
		claimID = s.newID()
		winner, err := s.claim(ctx, sessionID, claimID)
		if err != nil {
			return fail(err)
		}
		if winner != nil {
			return s.replay(ctx, winner), nil
		}
		tr.mark("session_claimed")
		defer func() {
			if claimID != "" {
				s.release(ctx, sessionID, claimID)
			}
		}()
	}

	projectID := s.newID()
	log = log.With(zap.String("project_id", projectID))
	ctx = logger.WithContext(ctx, log)
	now := s.now().UTC()
	stamp := models.FormatTime(now)

	project := buildProject(sess, in, projectID, userID, stamp)
	if err := s.repos.Projects.Create(ctx, project); err != nil {
		return fail(err)
	}
	tr.mark("project_created")

	member := &models.Membership{
		MembershipID: s.newID(),
		ProjectID:    projectID,
		UserID:       userID,
		Role:         models.RoleOwner,
		Active:       true,
		CreatedAt:    stamp,
	}
	if err := s.repos.Members.Create(ctx, member); err != nil {
		return fail(err)
	}
	tr.mark("membership_created")

	records, numWarnings := conditions.Normalize(conditions.Flatten(in.parsed.Conditions))
	res.Warnings = append(res.Warnings, numWarnings...)
	rows := buildConditions(records, projectID, stamp, s.newID)
	if _, err := s.repos.Conditions.CreateMany(ctx, rows); err != nil {
		return fail(err)
	}
	for _, r := range rows {
		res.Counts.Conditions++
		if r.MaterialRequired {
			res.Counts.MaterialConditions++
		}
	}
	tr.mark("conditions_written:%d", len(rows))

	docs, docWarnings, err := s.reconcile(ctx, projectID, in)
	if err != nil {
		return fail(err)
	}
	res.Warnings = append(res.Warnings, docWarnings...)
	tr.mark("documents_reconciled:%d", len(docs))

	// created_at is the sort key, so rows stamped in the same instant are
	// spread one nanosecond apart.
	for i := range docs {
		docs[i].CreatedAt = models.FormatTime(now.Add(time.Duration(i)))
		res.Counts.AddDocument(docs[i].Source)
	}
	if _, err := s.repos.Documents.CreateMany(ctx, docs); err != nil {
		return fail(err)
	}
	tr.mark("documents_written:%d", len(docs))

	summary := buildSummary(project, res.Counts, stamp)
	if err := s.repos.Summaries.Save(ctx, summary); err != nil {
		return fail(err)
	}
	tr.mark("summary_written")

	update := store.UpdateInput{
		Set: map[string]any{
			"finalised":    true,
			"status":       models.SessionStatusFinalised,
			"project_id":   projectID,
			"finalised_at": stamp,
			"updated_at":   stamp,
		},
	}
	if claimID != "" {
		update.Remove = []string{"claim_id", "claimed_at"}
		update.Condition = store.Equal("claim_id", claimID)
	}
	if _, err := s.repos.Sessions.Update(ctx, sessionID, update); err != nil {
		return fail(err)
	}
	claimID = ""
	tr.mark("session_finalised")

	for _, w := range res.Warnings {
		log.Warn("finalise data quality", zap.String("warning", w))
	}
	log.Info("finalise session completed",
		zap.Int("conditions", res.Counts.Conditions),
		zap.Int("documents", res.Counts.Documents),
	)
	res.ProjectID = projectID
	res.Progress = tr.list()
	return res, nil
}

// replay reports an already finalised session. It only reads.
func (s *finaliseService) replay(ctx context.Context, sess *models.IntakeSession) *FinaliseResult {
	log := logger.FromContext(ctx)
	log.Info("session already finalised", zap.String("project_id", sess.ProjectID))

	res := &FinaliseResult{ProjectID: sess.ProjectID, AlreadyFinalised: true}
	if summary, err := s.repos.Summaries.GetByProject(ctx, sess.ProjectID); err == nil {
		res.Counts = summary.Counts
	} else {
		log.Debug("summary unavailable for replay", zap.Error(err))
	}
	return res
}

// claim marks the session as being finalised by claimID. It returns the
// session when another attempt already finished it.
func (s *finaliseService) claim(ctx context.Context, sessionID, claimID string) (*models.IntakeSession, error) {
	now := s.now().UTC()
	cutoff := models.FormatTime(now.Add(-s.cfg.ClaimTTL))

	_, err := s.repos.Sessions.Update(ctx, sessionID, store.UpdateInput{
		Set: map[string]any{
			"claim_id":   claimID,
			"claimed_at": models.FormatTime(now),
		},
		Condition: store.And(
			store.Or(store.AttributeNotExists("finalised"), store.Equal("finalised", false)),
			store.Or(store.AttributeNotExists("claim_id"), store.LessThan("claimed_at", cutoff)),
		),
	})
	if err == nil {
		return nil, nil
	}
	if !appErr.IsCode(err, appErr.CodeConditionCheckFailed) {
		return nil, err
	}

	current, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.Finalised {
		return current, nil
	}
	return nil, appErr.New(appErr.CodeFinaliseInProgress, "session is being finalised by another request").
		WithMeta("claimed_at", current.ClaimedAt)
}

// release drops a claim left by a failed attempt so a retry can proceed.
func (s *finaliseService) release(ctx context.Context, sessionID, claimID string) {
	_, err := s.repos.Sessions.Update(context.WithoutCancel(ctx), sessionID, store.UpdateInput{
		Remove:    []string{"claim_id", "claimed_at"},
		Condition: store.Equal("claim_id", claimID),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("release finalise claim failed", zap.Error(err))
	}
}

func (s *finaliseService) reconcile(ctx context.Context, projectID string, in *intakeInput) ([]models.Document, []string, error) {
	rule := documents.StagingRule{Bucket: s.cfg.Bucket, Prefix: s.cfg.StagingPrefix}
	uploads, warnings := documents.FromUploads(in.documents, in.pkg, rule)

	docs, err := s.reconciler.Reconcile(ctx, documents.Input{
		ProjectID: projectID,
		Council:   documents.FromCouncilLookup(in.councilLookup),
		Parser:    documents.FromParsed(in.parsed),
		Uploads:   uploads,
	})
	if err != nil {
		return nil, warnings, err
	}
	return docs, warnings, nil
}

func decodeInput(sess *models.IntakeSession) (*intakeInput, []string, error) {
	in := &intakeInput{}
	var warnings []string

	raw := sess.Step(models.StepCouncilConditions)
	if strings.TrimSpace(raw) != "" {
		var pkg models.CouncilConditionsStep
		if err := json.Unmarshal([]byte(raw), &pkg); err == nil && pkg.Parsed != nil {
			in.pkg = &pkg
			in.parsed = pkg.Parsed

			var envelope struct {
				Parsed map[string]any `json:"parsed"`
			}
			if err := json.Unmarshal([]byte(raw), &envelope); err == nil {
				in.parsedRaw = envelope.Parsed
			}
		}
	}
	if in.parsed == nil {
		return nil, nil, appErr.New(appErr.CodeMissingParsedConditions, "session has no parsed conditions")
	}

	if raw := sess.Step(models.StepDocuments); raw != "" {
		var step models.DocumentsStep
		if err := json.Unmarshal([]byte(raw), &step); err != nil {
			warnings = append(warnings, "documents step is not valid JSON; uploads ignored")
		} else {
			in.documents = &step
		}
	}
	if raw := sess.Step(models.StepProject); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.project); err != nil {
			warnings = append(warnings, "project step is not valid JSON; ignored")
		}
	}
	if sess.CouncilLookup != "" {
		var l models.CouncilLookup
		if err := json.Unmarshal([]byte(sess.CouncilLookup), &l); err != nil {
			warnings = append(warnings, "council lookup is not valid JSON; council documents ignored")
		} else {
			in.councilLookup = &l
		}
	}
	return in, warnings, nil
}

func buildProject(sess *models.IntakeSession, in *intakeInput, projectID, userID, stamp string) *models.Project {
	details := in.parsed.ApplicationDetails

	address := string(in.project.Address)
	if address == "" {
		address = string(details.AddressOfSite)
	}
	appNumber := sess.ApplicationNumber
	if appNumber == "" {
		appNumber = string(details.ApplicationNumber)
	}
	council := sess.CouncilCode
	if council == "" && in.pkg != nil {
		council = string(in.pkg.CouncilCode)
	}
	name := string(in.project.Name)
	if name == "" {
		name = address
	}
	if name == "" {
		name = appNumber
	}

	return &models.Project{
		ProjectID:         projectID,
		SessionID:         sess.SessionID,
		OwnerID:           userID,
		Name:              name,
		CouncilCode:       council,
		ApplicationNumber: appNumber,
		Address:           address,
		FileReference:     string(details.CouncilFileReference),
		PermitStage:       string(in.parsed.PermitInfo.Stage),
		Status:            models.ProjectStatusActive,
		ParsedConditions:  in.parsedRaw,
		CreatedBy:         userID,
		CreatedAt:         stamp,
		UpdatedAt:         stamp,
	}
}

func buildConditions(records []conditions.Record, projectID, stamp string, newID func() string) []models.Condition {
	rows := make([]models.Condition, len(records))
	for i, r := range records {
		rows[i] = models.Condition{
			ProjectID:           projectID,
			ConditionNumber:     r.Number,
			ConditionID:         newID(),
			ParentNumber:        r.ParentNumber,
			SectionTitle:        r.SectionTitle,
			Title:               r.Title,
			Description:         r.Description,
			Timing:              r.Timing,
			TimingSource:        r.TimingSource,
			TimingColumn:        r.TimingColumn,
			TimingInline:        r.TimingInline,
			MaterialRequired:    r.MaterialRequired,
			MaterialDescription: r.MaterialDescription,
			MaterialTiming:      r.MaterialTiming,
			Status:              models.ConditionStatusNew,
			Position:            i,
			CreatedAt:           stamp,
		}
	}
	return rows
}

func buildSummary(p *models.Project, counts models.Counts, stamp string) *models.ProjectSummary {
	return &models.ProjectSummary{
		Counts:            counts,
		ProjectID:         p.ProjectID,
		CouncilCode:       p.CouncilCode,
		ApplicationNumber: p.ApplicationNumber,
		Address:           p.Address,
		PermitStage:       p.PermitStage,
		UpdatedAt:         stamp,
	}
}

// classify maps any pipeline error onto the finalisation taxonomy.
func classify(err error) error {
	switch appErr.CodeOf(err) {
	case appErr.CodeNotFound,
		appErr.CodeMissingParsedConditions,
		appErr.CodeRelocationFailed,
		appErr.CodeBatchWriteExceededRetries,
		appErr.CodeConditionCheckFailed,
		appErr.CodeFinaliseInProgress:
		return err
	}
	switch {
	case errors.Is(err, storage.ErrRelocationFailed):
		return appErr.Wrap(err, appErr.CodeRelocationFailed, "document relocation failed")
	case errors.Is(err, store.ErrBatchRetriesExceeded):
		return appErr.Wrap(err, appErr.CodeBatchWriteExceededRetries, "batch write exceeded retries")
	default:
		return appErr.Wrap(err, appErr.CodeFinaliseFailed, "finalise failed")
	}
}
