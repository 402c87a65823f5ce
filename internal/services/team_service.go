package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/models"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/repository"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrWorldKeyRequired      = errors.New("world key is required")
	ErrWorldAlreadyHasTeam   = errors.New("world already has a team")
	ErrNotFullMember         = errors.New("only full-permission members can perform this action")
	ErrLastFullMember        = errors.New("team must keep at least one full-permission member")
	ErrInvalidRole           = errors.New("invalid member role")
	ErrInvalidPermission     = errors.New("invalid permission tier")
	ErrInvalidEmail          = errors.New("invalid invitation email")
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvitationAlreadyUsed = errors.New("invitation has already been accepted")
	ErrAlreadyMember         = errors.New("user is already a member of the team")
)

// TeamService handles teams, membership and invitations
type TeamService struct {
	teamRepo       repository.TeamRepository
	invitationRepo repository.InvitationRepository
	notifier       Notifier
	mailer         utils.Mailer
	baseURL        string
	log            logrus.FieldLogger
	now            func() time.Time
}

// NewTeamService creates a new TeamService. mailer may be nil.
func NewTeamService(teamRepo repository.TeamRepository, invitationRepo repository.InvitationRepository, notifier Notifier, mailer utils.Mailer, baseURL string, log logrus.FieldLogger) *TeamService {
	if mailer == nil {
		mailer = utils.NoopMailer{}
	}
	return &TeamService{
		teamRepo:       teamRepo,
		invitationRepo: invitationRepo,
		notifier:       notifier,
		mailer:         mailer,
		baseURL:        strings.TrimRight(baseURL, "/"),
		log:            log,
		now:            time.Now,
	}
}

// CreateTeamInput represents input for creating a team
type CreateTeamInput struct {
	Name        string
	WorldKey    string
	CreatorID   uint64
	DisplayName string
	CreatorRole models.MemberRole
}

// UpdateMemberInput represents input for changing a member's role or tier
type UpdateMemberInput struct {
	TeamID     uint64
	ActorID    uint64
	UserID     uint64
	Role       *models.MemberRole
	Permission *models.PermissionTier
}

// CreateInvitationInput represents input for inviting someone to a team
type CreateInvitationInput struct {
	TeamID  uint64
	ActorID uint64
	Role    models.MemberRole
	Name    string
	Email   string
}

// AcceptInvitationInput represents input for redeeming an invitation
type AcceptInvitationInput struct {
	Token       string
	UserID      uint64
	DisplayName string
}

// CreateTeam creates a team bound to a world. The creator joins with full
// permission.
func (s *TeamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	worldKey := strings.TrimSpace(input.WorldKey)
	if worldKey == "" {
		return nil, ErrWorldKeyRequired
	}

	role := input.CreatorRole
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.teamRepo.FindByWorldKey(ctx, worldKey); err == nil {
		return nil, ErrWorldAlreadyHasTeam
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check world: %w", err)
	}

	team := &models.Team{
		Name:      name,
		WorldKey:  worldKey,
		CreatorID: input.CreatorID,
	}
	owner := &models.TeamMember{
		UserID:      input.CreatorID,
		DisplayName: input.DisplayName,
		Role:        role,
		Permission:  models.PermissionFull,
		JoinedAt:    s.now().UTC(),
	}

	if err := s.teamRepo.Create(ctx, team, owner); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	team.Members = []models.TeamMember{*owner}
	return team, nil
}

// GetTeam returns a team with its members, for members only
func (s *TeamService) GetTeam(ctx context.Context, teamID, userID uint64) (*models.Team, error) {
	team, err := s.findTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, ErrNotTeamMember) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	members, err := s.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return team, nil
}

// GetMember returns userID's membership of the team
func (s *TeamService) GetMember(ctx context.Context, teamID, userID uint64) (*models.TeamMember, error) {
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return member, nil
}

// ListMembers lists a team's members in join order
func (s *TeamService) ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error) {
	members, err := s.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// DeleteTeam deletes a team together with its tasks, members, invitations
// and notifications
func (s *TeamService) DeleteTeam(ctx context.Context, teamID, actorID uint64) error {
	if _, err := s.findTeam(ctx, teamID); err != nil {
		return err
	}
	if err := s.requireFull(ctx, teamID, actorID); err != nil {
		return err
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// RemoveMember removes userID from the team. Members may remove themselves;
// removing anyone else takes full permission.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, actorID, userID uint64) error {
	if actorID != userID {
		if err := s.requireFull(ctx, teamID, actorID); err != nil {
			return err
		}
	}

	target, err := s.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if target.IsFull() {
		if err := s.ensureAnotherFullMember(ctx, teamID, userID); err != nil {
			return err
		}
	}

	if err := s.teamRepo.RemoveMember(ctx, teamID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// UpdateMemberPermission changes a member's role and permission tier
func (s *TeamService) UpdateMemberPermission(ctx context.Context, input UpdateMemberInput) (*models.TeamMember, error) {
	if err := s.requireFull(ctx, input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	member, err := s.GetMember(ctx, input.TeamID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		member.Role = *input.Role
	}
	if input.Permission != nil {
		if !input.Permission.Valid() {
			return nil, ErrInvalidPermission
		}
		if member.IsFull() && *input.Permission != models.PermissionFull {
			if err := s.ensureAnotherFullMember(ctx, input.TeamID, member.UserID); err != nil {
				return nil, err
			}
		}
		member.Permission = *input.Permission
	}

	if err := s.teamRepo.UpdateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

// CreateInvitation issues a single-use invitation. When an email is given
// it is validated and mailed; mail failures are logged only.
func (s *TeamService) CreateInvitation(ctx context.Context, input CreateInvitationInput) (*models.Invitation, error) {
	team, err := s.findTeam(ctx, input.TeamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireFull(ctx, input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleOther
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	email := strings.TrimSpace(input.Email)
	if email != "" {
		if err := utils.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
		}
	}

	invitation := &models.Invitation{
		Token:        utils.GenerateInviteToken(),
		TeamID:       input.TeamID,
		Role:         role,
		InvitedName:  strings.TrimSpace(input.Name),
		InvitedEmail: email,
		InvitedBy:    input.ActorID,
		Status:       models.InvitationPending,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.invitationRepo.Create(ctx, invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if email != "" {
		err := s.mailer.SendInvitation(ctx, utils.InvitationMail{
			To:        email,
			Name:      invitation.InvitedName,
			TeamName:  team.Name,
			Role:      string(role),
			AcceptURL: s.AcceptURL(invitation.Token),
		})
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"team_id":       team.ID,
				"invitation_id": invitation.ID,
			}).Warn("failed to send invitation email")
		}
	}

	return invitation, nil
}

// AcceptURL is the link an invitee follows
func (s *TeamService) AcceptURL(token string) string {
	return fmt.Sprintf("%s/invite/%s", s.baseURL, token)
}

// ListInvitations lists a team's invitations for full-permission members
func (s *TeamService) ListInvitations(ctx context.Context, teamID, actorID uint64) ([]models.Invitation, error) {
	if err := s.requireFull(ctx, teamID, actorID); err != nil {
		return nil, err
	}

	invitations, err := s.invitationRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// AcceptInvitation consumes an invitation exactly once and adds the user to
// the team. Full-permission members other than the joiner are notified;
// notification failures never fail the acceptance.
func (s *TeamService) AcceptInvitation(ctx context.Context, input AcceptInvitationInput) (*models.TeamMember, error) {
	invitation, err := s.invitationRepo.FindByToken(ctx, input.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	if invitation.Status != models.InvitationPending {
		return nil, ErrInvitationAlreadyUsed
	}

	if _, err := s.teamRepo.FindMember(ctx, invitation.TeamID, input.UserID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = invitation.InvitedName
	}

	member := &models.TeamMember{
		UserID:      input.UserID,
		DisplayName: displayName,
		Role:        invitation.Role,
		Permission:  models.PermissionMember,
		JoinedAt:    s.now().UTC(),
	}

	if err := s.invitationRepo.Accept(ctx, invitation, member); err != nil {
		if errors.Is(err, repository.ErrInvitationConsumed) {
			return nil, ErrInvitationAlreadyUsed
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.announceJoin(context.WithoutCancel(ctx), invitation.TeamID, member)
	return member, nil
}

func (s *TeamService) announceJoin(ctx context.Context, teamID uint64, member *models.TeamMember) {
	if s.notifier == nil {
		return
	}

	log := s.log.WithFields(logrus.Fields{"team_id": teamID, "user_id": member.UserID})

	members, err := s.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		log.WithError(err).Warn("failed to resolve member_joined recipients")
		return
	}
	recipients := fullMemberIDs(members, member.UserID)
	if len(recipients) == 0 {
		return
	}

	name := member.DisplayName
	if name == "" {
		name = "A new member"
	}

	result, err := s.notifier.Fanout(ctx, FanoutInput{
		Recipients: recipients,
		TeamID:     teamID,
		Type:       models.NotificationMemberJoined,
		Title:      "New team member",
		Message:    fmt.Sprintf("%s joined as %s", name, member.Role),
		Payload: map[string]interface{}{
			"user_id": member.UserID,
			"role":    member.Role,
		},
	})
	if err != nil {
		log.WithError(err).Warn("failed to announce new member")
		return
	}
	for _, failure := range result.Failed {
		log.WithError(failure.Err).WithField("recipient_id", failure.UserID).Warn("member_joined notification not persisted")
	}
}

func (s *TeamService) findTeam(ctx context.Context, teamID uint64) (*models.Team, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

func (s *TeamService) requireFull(ctx context.Context, teamID, userID uint64) error {
	member, err := s.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !member.IsFull() {
		return ErrNotFullMember
	}
	return nil
}

func (s *TeamService) ensureAnotherFullMember(ctx context.Context, teamID, userID uint64) error {
	members, err := s.ListMembers(ctx, teamID)
	if err != nil {
		return err
	}
	if len(fullMemberIDs(members, userID)) == 0 {
		return ErrLastFullMember
	}
	return nil
}
