package family

import (
	"context"

	"github.com/gousa/visacrm/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, f *Family) error
	// CreateWithMember creates f and links customerID to it atomically.
	CreateWithMember(ctx context.Context, f *Family, customerID int, relationship *string) error
	GetByID(ctx context.Context, id int, vis db.Visibility) (*Family, error)
	Update(ctx context.Context, f *Family) error
	SoftDelete(ctx context.Context, id int) error
	Search(ctx context.Context, q string, vis db.Visibility, limit, offset int) ([]*Family, int, error)

	Members(ctx context.Context, familyID int, vis db.Visibility) ([]*Member, error)
	// UpsertMember links the customer, or relabels an existing link.
	UpsertMember(ctx context.Context, familyID, customerID int, relationship *string) error
	RemoveMember(ctx context.Context, familyID, customerID int) error
	ActiveMembers(ctx context.Context, familyID int) ([]*ActiveMember, error)
}
