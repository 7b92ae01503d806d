package repository

import "github.com/planease/engine/internal/store"

// Repositories bundles every repository over one item store.
type Repositories struct {
	Sessions   SessionRepository
	Projects   ProjectRepository
	Members    MembershipRepository
	Conditions ConditionRepository
	Documents  DocumentRepository
	Summaries  SummaryRepository
}

// New builds the repositories. policy governs batch-write retries.
func New(s store.ItemStore, t Tables, policy store.RetryPolicy) *Repositories {
	return &Repositories{
		Sessions:   NewSessionRepository(s, t.SessionSchema(), policy),
		Projects:   NewProjectRepository(s, t.ProjectSchema(), policy),
		Members:    NewMembershipRepository(s, t.MemberSchema(), policy),
		Conditions: NewConditionRepository(s, t.ConditionSchema(), policy),
		Documents:  NewDocumentRepository(s, t.DocumentSchema(), policy),
		Summaries:  NewSummaryRepository(s, t.SummarySchema(), policy),
	}
}
