package repository

import (
	"github.com/planease/engine/internal/store"
)

// Secondary index names.
const (
	IndexMembersByProject = "project_id-index"
	IndexMembersByUser    = "user_id-index"
	IndexSessionsByUser   = "user_id-index"
)

// Tables names the item-store tables the pipeline writes to.
type Tables struct {
	Sessions   string
	Projects   string
	Members    string
	Conditions string
	Documents  string
	Summaries  string
}

// DefaultTables are the production table names.
func DefaultTables() Tables {
	return Tables{
		Sessions:   "project_intake_sessions",
		Projects:   "projects",
		Members:    "project_members",
		Conditions: "project_conditions",
		Documents:  "project_documents",
		Summaries:  "project_summaries",
	}
}

func (t Tables) SessionSchema() store.Schema {
	return store.Schema{
		Table:        t.Sessions,
		PartitionKey: "session_id",
		Indexes:      []store.Index{{Name: IndexSessionsByUser, PartitionKey: "user_id", SortKey: "created_at"}},
	}
}

func (t Tables) ProjectSchema() store.Schema {
	return store.Schema{Table: t.Projects, PartitionKey: "project_id"}
}

func (t Tables) MemberSchema() store.Schema {
	return store.Schema{
		Table:        t.Members,
		PartitionKey: "membership_id",
		Indexes: []store.Index{
			{Name: IndexMembersByProject, PartitionKey: "project_id"},
			{Name: IndexMembersByUser, PartitionKey: "user_id"},
		},
	}
}

// Conditions sort by number within a project; documents by creation time.
func (t Tables) ConditionSchema() store.Schema {
	return store.Schema{Table: t.Conditions, PartitionKey: "project_id", SortKey: "condition_number"}
}

func (t Tables) DocumentSchema() store.Schema {
	return store.Schema{Table: t.Documents, PartitionKey: "project_id", SortKey: "created_at"}
}

func (t Tables) SummarySchema() store.Schema {
	return store.Schema{Table: t.Summaries, PartitionKey: "project_id"}
}

// Schemas returns every table definition, for backends and migrations.
func (t Tables) Schemas() []store.Schema {
	return []store.Schema{
		t.SessionSchema(),
		t.ProjectSchema(),
		t.MemberSchema(),
		t.ConditionSchema(),
		t.DocumentSchema(),
		t.SummarySchema(),
	}
}
