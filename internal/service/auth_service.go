package service

import (
	"context"
	"fmt"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/models"
	"github.com/WeCr8/goodbodybucks/internal/repository"
	"github.com/WeCr8/goodbodybucks/internal/security"
)

// AuthService exchanges member access codes for bearer tokens
type AuthService struct {
	memberRepo *repository.MemberRepository
	tokens     *security.TokenManager
	clock      clock.Clock
}

// NewAuthService creates an auth service
func NewAuthService(memberRepo *repository.MemberRepository, tokens *security.TokenManager, clk clock.Clock) *AuthService {
	return &AuthService{memberRepo: memberRepo, tokens: tokens, clock: clk}
}

// IssueToken verifies a member's access code and mints a signed token.
// Members without a configured access code cannot authenticate.
func (s *AuthService) IssueToken(ctx context.Context, familyID, memberID, accessCode string) (string, error) {
	m, err := s.memberRepo.GetMember(ctx, familyID, memberID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}
	if m.AccessCodeHash == "" || !security.CheckAccessCode(m.AccessCodeHash, accessCode) {
		return "", fmt.Errorf("access code rejected: %w", models.ErrForbidden)
	}

	token, err := s.tokens.Mint(m.FamilyID, m.ID, m.Role, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("failed to mint token: %w", err)
	}
	return token, nil
}

// SetAccessCode hashes and stores a member's access code (admin action)
func (s *AuthService) SetAccessCode(ctx context.Context, familyID, memberID, accessCode string) error {
	if len(accessCode) < 4 {
		return fmt.Errorf("access code must be at least 4 characters: %w", models.ErrInvalidInput)
	}
	m, err := s.memberRepo.GetMember(ctx, familyID, memberID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}

	hash, err := security.HashAccessCode(accessCode)
	if err != nil {
		return fmt.Errorf("failed to hash access code: %w", err)
	}
	return s.memberRepo.SetAccessCodeHash(ctx, familyID, memberID, hash)
}
