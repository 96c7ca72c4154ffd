package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/bideshstudy/admission-api/internal/api/academic"
	"github.com/bideshstudy/admission-api/internal/api/auth"
	"github.com/bideshstudy/admission-api/internal/api/completion"
	"github.com/bideshstudy/admission-api/internal/api/profile"
	"github.com/bideshstudy/admission-api/internal/types"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	// Concurrent per-student detail fetches per listing request.
	detailFanout = 8
)

var _ AdminService = (*AdminServiceImpl)(nil)

// AdminService covers the admin-panel operations.
type AdminService interface {
	// AdminLogin authenticates an admin or super admin. Students get
	// types.ErrForbidden even with correct credentials.
	AdminLogin(ctx context.Context, email, password string) (*auth.TokenResult, error)

	// CreateAdmin provisions an admin account. Admins are born verified and
	// never go through the OTP flow.
	CreateAdmin(ctx context.Context, email, password string) (*types.PublicUser, error)

	// GetAllStudents returns one page of student records with their profile
	// and certificates attached.
	GetAllStudents(ctx context.Context, page, limit int) (*StudentPage, error)

	// GetStudentByID returns one student's full detail.
	GetStudentByID(ctx context.Context, studentID string) (*StudentDetail, error)
}

type AdminServiceImpl struct {
	logger       *slog.Logger
	userRepo     auth.UserRepo
	adminRepo    AdminRepo
	profileRepo  profile.ProfileRepo
	academicRepo academic.AcademicRepo
	completion   completion.Provider
	issuer       *auth.TokenIssuer
}

func NewAdminService(
	userRepo auth.UserRepo,
	adminRepo AdminRepo,
	profileRepo profile.ProfileRepo,
	academicRepo academic.AcademicRepo,
	calc completion.Provider,
	issuer *auth.TokenIssuer,
	logger *slog.Logger,
) *AdminServiceImpl {
	return &AdminServiceImpl{
		logger:       logger,
		userRepo:     userRepo,
		adminRepo:    adminRepo,
		profileRepo:  profileRepo,
		academicRepo: academicRepo,
		completion:   calc,
		issuer:       issuer,
	}
}

func (s *AdminServiceImpl) AdminLogin(ctx context.Context, email, password string) (*auth.TokenResult, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, types.ErrInvalidCredentials
	}

	if user.Role != types.RoleAdmin && user.Role != types.RoleSuperAdmin {
		return nil, types.ErrForbidden
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Admin login successful",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return &auth.TokenResult{Token: token, User: user.Public()}, nil
}

func (s *AdminServiceImpl) CreateAdmin(ctx context.Context, email, password string) (*types.PublicUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, string(hash), types.RoleAdmin, true, nil)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, types.ErrConflict
		}
		return nil, fmt.Errorf("error creating admin: %w", err)
	}

	s.logger.InfoContext(ctx, "Admin account created", slog.String("user_id", user.ID))
	pub := user.Public()
	return &pub, nil
}

func (s *AdminServiceImpl) GetAllStudents(ctx context.Context, page, limit int) (*StudentPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	total, err := s.adminRepo.CountStudents(ctx)
	if err != nil {
		return nil, err
	}

	students, err := s.adminRepo.ListStudents(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	details := make([]StudentDetail, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFanout)
	for i, student := range students {
		g.Go(func() error {
			detail, err := s.buildDetail(gctx, &student)
			if err != nil {
				return err
			}
			details[i] = *detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error assembling student details: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	return &StudentPage{
		Students:   details,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (s *AdminServiceImpl) GetStudentByID(ctx context.Context, studentID string) (*StudentDetail, error) {
	user, err := s.userRepo.GetUserByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching student: %w", err)
	}
	if user.Role != types.RoleStudent {
		return nil, types.ErrNotFound
	}
	return s.buildDetail(ctx, user)
}

func (s *AdminServiceImpl) buildDetail(ctx context.Context, user *types.User) (*StudentDetail, error) {
	detail := &StudentDetail{User: user.Public()}

	p, err := s.profileRepo.GetByUserID(ctx, user.ID)
	switch {
	case err == nil:
		detail.Profile = p
	case errors.Is(err, types.ErrNotFound):
		// Student has not filled in a profile.
	default:
		return nil, err
	}

	info, err := s.academicRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	detail.Academic = info

	pct, err := s.completion.Percentage(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	detail.Completion = pct
	return detail, nil
}
