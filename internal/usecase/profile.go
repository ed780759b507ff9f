package usecase

import (
	"context"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"
)

// Profile is the base material every optimization starts from.
type Profile struct {
	PersonalData model.PersonalData `json:"personal_data"`
	CVContent    map[string]any     `json:"cv_content"`
}

type ProfileService struct {
	users    UserRepo
	renderer Renderer
}

func NewProfileService(users UserRepo, renderer Renderer) *ProfileService {
	return &ProfileService{users: users, renderer: renderer}
}

func (s *ProfileService) Get(ctx context.Context, email string) (Profile, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return Profile{}, userErr(err)
	}
	content := u.CVContent
	if content == nil {
		content = map[string]any{}
	}
	return Profile{PersonalData: u.PersonalData, CVContent: content}, nil
}

// UpdatePersonalData merges the supplied fields into the stored record.
func (s *ProfileService) UpdatePersonalData(ctx context.Context, email string, patch model.PersonalDataPatch) (model.PersonalData, error) {
	if patch.Empty() {
		return model.PersonalData{}, domain.Errorf(domain.ErrValidation, "No fields to update")
	}
	pd, err := s.users.MergePersonalData(ctx, email, patch)
	if err != nil {
		return model.PersonalData{}, userErr(err)
	}
	return pd, nil
}

// UpdateCVContent replaces the base CV content wholesale.
func (s *ProfileService) UpdateCVContent(ctx context.Context, email string, content map[string]any) error {
	if content == nil {
		return domain.Errorf(domain.ErrValidation, "cv_content is required")
	}
	return userErr(s.users.UpdateCVContent(ctx, email, content))
}

// Preview renders the user's base CV as HTML.
func (s *ProfileService) Preview(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return "", userErr(err)
	}
	return s.renderer.PreviewMap(u.PersonalData, u.CVContent)
}
