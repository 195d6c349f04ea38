package model

import "time"

// Owner is a repository owner: either a user or an organization.
type Owner struct {
	Login     string
	HTMLURL   string
	AvatarURL string
}

// RepositoryRef identifies a repository by name within an owner.
type RepositoryRef struct {
	Name    string
	HTMLURL string
}

// TrackedRepository is a repository the user chose to monitor, bound to the
// account whose token is used to fetch it. Unique per
// (account, owner, repository) triple.
type TrackedRepository struct {
	ID        int64
	AccountID string
	Owner     Owner
	Name      string
	HTMLURL   string
	AddedAt   time.Time
}

// FullName returns the owner/name form of the repository.
func (r TrackedRepository) FullName() string {
	return r.Owner.Login + "/" + r.Name
}
