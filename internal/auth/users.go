package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/talkincode/webshop/internal/domain"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLockedOut          = errors.New("account is locked")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfLock           = errors.New("you cannot lock your own account")
	ErrUnknownRole        = errors.New("unknown role")
)

const TopicUserRegistered = "user:registered"

// UserEvent is published after a customer registers.
type UserEvent struct {
	UserId   int64
	Email    string
	FullName string
}

// Publisher is satisfied by EventBus.Bus.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

var idNode, _ = snowflake.NewNode(1)

// NextID returns a new snowflake id for user rows.
func NextID() int64 {
	return idNode.Generate().Int64()
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Address     string
	PhoneNumber string
}

type ProfileInput struct {
	FullName    string
	Address     string
	PhoneNumber string
}

// UserService is the identity store: accounts, password checks, roles and lockout.
type UserService struct {
	db  *gorm.DB
	bus Publisher
	now func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

func (s *UserService) SetPublisher(bus Publisher) {
	s.bus = bus
}

// EnsureRoles creates any missing role rows.
func (s *UserService) EnsureRoles(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, name := range domain.Roles {
		var count int64
		if err := db.Model(&domain.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&domain.Role{Name: name}).Error; err != nil {
			return err
		}
		zap.L().Info("created role", zap.String("role", name), zap.String("namespace", "auth"))
	}
	return nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput, confirmed bool, role string) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:             NextID(),
		Email:          email,
		PasswordHash:   hash,
		FullName:       strings.TrimSpace(in.FullName),
		Address:        strings.TrimSpace(in.Address),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		EmailConfirmed: confirmed,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return addToRole(tx, user.ID, role)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func addToRole(tx *gorm.DB, userId int64, role string) error {
	var r domain.Role
	if err := tx.Where("name = ?", role).First(&r).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownRole
	} else if err != nil {
		return err
	}
	var count int64
	tx.Model(&domain.UserRole{}).Where("user_id = ? AND role_id = ?", userId, r.ID).Count(&count)
	if count > 0 {
		return nil
	}
	return tx.Create(&domain.UserRole{UserId: userId, RoleId: r.ID}).Error
}

// Register creates a customer account in the User role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user, err := s.create(ctx, in, true, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(TopicUserRegistered, UserEvent{UserId: user.ID, Email: user.Email, FullName: user.FullName})
	}
	return user, nil
}

// CreateAdmin creates a confirmed account in the Admin role. It reports false
// without error when the email is already registered.
func (s *UserService) CreateAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	if err := s.EnsureRoles(ctx); err != nil {
		return false, err
	}
	_, err := s.create(ctx, RegisterInput{Email: email, Password: password, FullName: fullName}, true, domain.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate checks the password and lockout state, records the login and
// returns the user with its role names.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, []string, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, nil, err
	}
	now := s.now()
	if user.IsLockedOut(now) {
		return nil, nil, ErrLockedOut
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	roles, err := s.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	user.LastLogin = &now
	s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).UpdateColumn("last_login", now)
	return &user, roles, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) RolesOf(ctx context.Context, userId int64) ([]string, error) {
	byUser, err := s.RolesFor(ctx, []int64{userId})
	if err != nil {
		return nil, err
	}
	return byUser[userId], nil
}

// RolesFor returns role names keyed by user id.
func (s *UserService) RolesFor(ctx context.Context, userIds []int64) (map[int64][]string, error) {
	type row struct {
		UserId int64
		Name   string
	}
	var rows []row
	result := make(map[int64][]string, len(userIds))
	if len(userIds) == 0 {
		return result, nil
	}
	err := s.db.WithContext(ctx).
		Table("sys_user_role AS ur").
		Select("ur.user_id, r.name").
		Joins("JOIN sys_role r ON r.id = ur.role_id").
		Where("ur.user_id IN ?", userIds).
		Order("r.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.UserId] = append(result[r.UserId], r.Name)
	}
	return result, nil
}

func (s *UserService) CountInRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Table("sys_user_role AS ur").
		Joins("JOIN sys_role r ON r.id = ur.role_id").
		Where("r.name = ?", role).
		Count(&n).Error
	return n, err
}

func (s *UserService) UpdateProfile(ctx context.Context, userId int64, in ProfileInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, userId)
	if err != nil {
		return nil, err
	}
	user.FullName = strings.TrimSpace(in.FullName)
	user.Address = strings.TrimSpace(in.Address)
	user.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"full_name":    user.FullName,
		"address":      user.Address,
		"phone_number": user.PhoneNumber,
	}).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userId int64, current, next string) error {
	user, err := s.GetByID(ctx, userId)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error
}

// SetLockout locks an account indefinitely or clears the lock. An actor may
// not lock their own account.
func (s *UserService) SetLockout(ctx context.Context, actorId, userId int64, locked bool) error {
	if locked && actorId == userId {
		return ErrSelfLock
	}
	user, err := s.GetByID(ctx, userId)
	if err != nil {
		return err
	}
	var end interface{}
	if locked {
		end = domain.LockoutForever
	}
	if err := s.db.WithContext(ctx).Model(user).Update("lockout_end", end).Error; err != nil {
		return err
	}
	zap.L().Info("user lockout changed",
		zap.Int64("user_id", userId),
		zap.Int64("actor_id", actorId),
		zap.Bool("locked", locked),
		zap.String("namespace", "auth"))
	return nil
}
