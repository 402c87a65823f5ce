package repository

import (
	"context"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"gorm.io/gorm"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

// Create creates a new invitation
func (r *GormInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// FindByToken finds an invitation by its token
func (r *GormInvitationRepository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// Accept consumes the invitation and creates the member in one transaction.
// The status guard makes a second accept fail with ErrInvitationConsumed.
func (r *GormInvitationRepository) Accept(ctx context.Context, invitation *models.Invitation, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":      models.InvitationAccepted,
				"accepted_by": member.UserID,
				"accepted_at": member.JoinedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvitationConsumed
		}

		member.TeamID = invitation.TeamID
		if err := tx.Create(member).Error; err != nil {
			return err
		}

		acceptedBy := member.UserID
		acceptedAt := member.JoinedAt
		invitation.Status = models.InvitationAccepted
		invitation.AcceptedBy = &acceptedBy
		invitation.AcceptedAt = &acceptedAt
		return nil
	})
}

// ListByTeam lists invitations of a team, newest first
func (r *GormInvitationRepository) ListByTeam(ctx context.Context, teamID uint64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC, id DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}
