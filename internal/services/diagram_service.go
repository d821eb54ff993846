package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"schemaboard/internal/collab"
	"schemaboard/internal/models"
	"schemaboard/internal/repositories"
)

var (
	ErrDiagramNotFound = errors.New("diagram not found")
	ErrNotOwner        = errors.New("only the owner can do that")
	ErrNoAccess        = errors.New("you do not have access to this diagram")
)

type DiagramService struct {
	diagramRepo *repositories.DiagramRepository
	userRepo    *repositories.UserRepository
}

func NewDiagramService(diagramRepo *repositories.DiagramRepository, userRepo *repositories.UserRepository) *DiagramService {
	return &DiagramService{
		diagramRepo: diagramRepo,
		userRepo:    userRepo,
	}
}

func (s *DiagramService) Create(ownerID uuid.UUID, d *models.Diagram) (*models.Diagram, error) {
	d.OwnerID = ownerID
	if d.Name == "" {
		d.Name = "Untitled diagram"
	}
	if err := s.diagramRepo.Create(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the diagram if the caller may at least view it.
func (s *DiagramService) Get(id, userID uuid.UUID) (*models.Diagram, error) {
	d, err := s.diagramRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDiagramNotFound
	}
	if _, err := s.permissionFor(d, userID); err != nil {
		return nil, err
	}
	return d, nil
}

// GetBySlug serves the public share link. No authentication involved: the
// repository only returns diagrams marked public.
func (s *DiagramService) GetBySlug(slug string) (*models.Diagram, error) {
	d, err := s.diagramRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDiagramNotFound
	}
	return d, nil
}

func (s *DiagramService) ListOwned(ownerID uuid.UUID) ([]models.Diagram, error) {
	return s.diagramRepo.GetByOwner(ownerID)
}

func (s *DiagramService) ListShared(userID uuid.UUID) ([]models.Diagram, error) {
	return s.diagramRepo.GetSharedWith(userID)
}

// Update persists name, visibility, serialized tables/edges and viewport.
// Requires edit permission.
func (s *DiagramService) Update(id, userID uuid.UUID, patch *models.Diagram) (*models.Diagram, error) {
	d, err := s.diagramRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDiagramNotFound
	}
	perm, err := s.permissionFor(d, userID)
	if err != nil {
		return nil, err
	}
	if !perm.CanEdit() {
		return nil, ErrNoAccess
	}

	if patch.Name != "" {
		d.Name = patch.Name
	}
	if len(patch.Tables) > 0 {
		d.Tables = patch.Tables
	}
	if len(patch.Edges) > 0 {
		d.Edges = patch.Edges
	}
	if patch.Viewport.Zoom != 0 {
		d.Viewport = patch.Viewport
	}
	// Visibility is owner-only.
	if d.OwnerID == userID {
		d.Public = patch.Public
	}

	if err := s.diagramRepo.Update(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DiagramService) Delete(id, userID uuid.UUID) error {
	d, err := s.diagramRepo.GetByID(id)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrDiagramNotFound
	}
	if d.OwnerID != userID {
		return ErrNotOwner
	}
	return s.diagramRepo.Delete(id)
}

// Share grants or updates a collaborator's permission. Owner-only; the
// collaborator is looked up by email.
func (s *DiagramService) Share(diagramID, ownerID uuid.UUID, email string, perm models.Permission) (*models.DiagramCollaborator, error) {
	if !perm.Valid() {
		return nil, errors.New("permission must be view or edit")
	}
	d, err := s.diagramRepo.GetByID(diagramID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDiagramNotFound
	}
	if d.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	user, err := s.userRepo.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("no user with that email")
	}
	if user.ID == ownerID {
		return nil, errors.New("cannot share a diagram with its owner")
	}

	grant := &models.DiagramCollaborator{
		DiagramID:  diagramID,
		UserID:     user.ID,
		Permission: perm,
	}
	if err := s.diagramRepo.UpsertCollaborator(grant); err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *DiagramService) Unshare(diagramID, ownerID, userID uuid.UUID) error {
	d, err := s.diagramRepo.GetByID(diagramID)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrDiagramNotFound
	}
	if d.OwnerID != ownerID {
		return ErrNotOwner
	}
	return s.diagramRepo.RemoveCollaborator(diagramID, userID)
}

func (s *DiagramService) Collaborators(diagramID, ownerID uuid.UUID) ([]models.DiagramCollaborator, error) {
	d, err := s.diagramRepo.GetByID(diagramID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDiagramNotFound
	}
	if d.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return s.diagramRepo.ListCollaborators(diagramID)
}

// ResolveAccess implements collab.AccessResolver for the live-editing hub.
func (s *DiagramService) ResolveAccess(ctx context.Context, diagramID, userID uuid.UUID) (*collab.DiagramAccess, error) {
	d, err := s.diagramRepo.GetByID(diagramID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, collab.ErrDiagramNotFound
	}
	perm, err := s.permissionFor(d, userID)
	if err != nil {
		return nil, collab.ErrAccessDenied
	}
	return &collab.DiagramAccess{
		DiagramID:  d.ID,
		Name:       d.Name,
		OwnerID:    d.OwnerID,
		Permission: perm,
	}, nil
}

func (s *DiagramService) permissionFor(d *models.Diagram, userID uuid.UUID) (models.Permission, error) {
	if d.OwnerID == userID {
		return models.PermissionEdit, nil
	}
	grant, err := s.diagramRepo.GetCollaborator(d.ID, userID)
	if err != nil {
		return "", err
	}
	if grant != nil {
		return grant.Permission, nil
	}
	if d.Public {
		return models.PermissionView, nil
	}
	return "", ErrNoAccess
}
