package models

const RoleOwner = "owner"

type Membership struct {
	MembershipID string `json:"membership_id"`
	ProjectID    string `json:"project_id"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}
