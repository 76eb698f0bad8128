// Package household owns the tenant boundary: households, passcode logins
// and the family members that act inside a household.
package household

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
)

const DefaultColor = "#3B82F6"

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type HouseholdStore interface {
	Create(ctx context.Context, name, passcodeHash string) (*model.Household, error)
	GetByID(ctx context.Context, id int64) (*model.Household, error)
	GetByName(ctx context.Context, name string) (*model.Household, error)
}

type SessionStore interface {
	Create(ctx context.Context, householdID int64, ttl time.Duration) (*model.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

type MemberStore interface {
	Create(ctx context.Context, householdID int64, name, initials, color string) (*model.FamilyMember, error)
	List(ctx context.Context, householdID int64) ([]model.FamilyMember, error)
	NameExists(ctx context.Context, householdID int64, name string) (bool, error)
}

type Recorder interface {
	Record(ctx context.Context, e model.ActivityEntry) (*model.ActivityEntry, error)
}

type Service struct {
	households HouseholdStore
	sessions   SessionStore
	members    MemberStore
	recorder   Recorder
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewService(households HouseholdStore, sessions SessionStore, members MemberStore, recorder Recorder, sessionTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		households: households,
		sessions:   sessions,
		members:    members,
		recorder:   recorder,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

func (s *Service) Create(ctx context.Context, name, passcode string) (*model.Household, error) {
	name = strings.TrimSpace(name)
	var v apperr.Validation
	if name == "" {
		v.Add("name", "is required")
	}
	if len(passcode) < auth.MinPasscodeLength {
		v.Add("passcode", auth.ErrPasscodeTooShort.Error())
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := s.households.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("household")
	}

	hash, err := auth.HashPasscode(passcode)
	if err != nil {
		return nil, err
	}
	h, err := s.households.Create(ctx, name, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("household created", "household_id", h.ID)
	return h, nil
}

// Login checks the passcode and opens a session. Unknown households and
// wrong passcodes fail the same way.
func (s *Service) Login(ctx context.Context, name, passcode string) (*model.Session, error) {
	h, err := s.households.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.ErrUnauthorized
	}
	ok, err := auth.CheckPasscode(h.PasscodeHash, passcode)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("login failed", "household_id", h.ID)
		return nil, apperr.ErrUnauthorized
	}
	return s.sessions.Create(ctx, h.ID, s.sessionTTL)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByToken(ctx, token)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Household, error) {
	h, err := s.households.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("household")
	}
	return h, nil
}

func (s *Service) ListMembers(ctx context.Context, householdID int64) ([]model.FamilyMember, error) {
	members, err := s.members.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	return members, nil
}

// CreateMember adds a family member. Initials are derived from the name when
// empty and the color defaults to DefaultColor.
func (s *Service) CreateMember(ctx context.Context, householdID int64, name, initials, color string) (*model.FamilyMember, error) {
	name = strings.TrimSpace(name)
	initials = strings.ToUpper(strings.TrimSpace(initials))
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultColor
	}
	if initials == "" {
		initials = Initials(name)
	}

	var v apperr.Validation
	if name == "" {
		v.Add("name", "is required")
	}
	if !hexColorRegexp.MatchString(color) {
		v.Add("color", "must be a hex color (e.g. #FF0000)")
	}
	if len([]rune(initials)) > 3 {
		v.Add("initials", "must be at most 3 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	exists, err := s.members.NameExists(ctx, householdID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("family member")
	}

	m, err := s.members.Create(ctx, householdID, name, initials, color)
	if err != nil {
		return nil, err
	}
	// A new member is the actor of their own creation; the household may
	// have nobody else yet.
	if _, err := s.recorder.Record(ctx, model.ActivityEntry{
		HouseholdID: householdID,
		ActorID:     m.ID,
		Action:      model.ActionMemberCreated,
		EntityType:  model.EntityMember,
		EntityID:    m.ID,
		Metadata:    map[string]any{"name": m.Name},
	}); err != nil {
		return nil, &apperr.PartialFailureError{Op: "create member", Completed: []string{"member created"}, Err: err}
	}
	return m, nil
}

// Initials takes the first letter of up to two words, upper-cased.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
