package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rumbleroad/pokerrun-api/config"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/internal/domain/repository"
	"github.com/rumbleroad/pokerrun-api/internal/infrastructure/postgres"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
	"github.com/rumbleroad/pokerrun-api/pkg/mailer"
)

const (
	sessionKeyPrefix = "user:session:"
	verifyKeyPrefix  = "user:verify:"
	resetKeyPrefix   = "user:pwreset:"

	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// UserService owns the identity flows: signup, login, sessions, profile
// and the credential side-channels (email verification, password reset).
type UserService struct {
	users repository.UserRepository
	rdb   *redis.Client
	jwt   *helpers.JWTManager
	mailQ *helpers.RabbitPublisher
	gcs   *storage.Client
	cfg   *config.Config
	log   *logrus.Logger
}

func NewUserService(users repository.UserRepository, rdb *redis.Client, jwt *helpers.JWTManager, mailQ *helpers.RabbitPublisher, gcs *storage.Client, cfg *config.Config, log *logrus.Logger) *UserService {
	return &UserService{users: users, rdb: rdb, jwt: jwt, mailQ: mailQ, gcs: gcs, cfg: cfg, log: log}
}

// RegisterUserInput is the signup payload after transport validation.
type RegisterUserInput struct {
	Name             string
	Email            string
	Password         string
	Phone            string
	BikeProfile      entity.BikeProfile
	EmergencyContact entity.EmergencyContact
	Address          entity.Address
}

// Register creates a participant account and queues the welcome and
// verification emails. The email uniqueness check here is advisory; the
// unique index on users.email is the real guard.
func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*entity.User, error) {
	if existing, err := s.users.GetByEmail(in.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:             in.Name,
		Email:            in.Email,
		Password:         hash,
		Phone:            in.Phone,
		Role:             entity.RoleParticipant,
		BikeProfile:      in.BikeProfile,
		EmergencyContact: in.EmergencyContact,
		Address:          in.Address,
		Preferences:      entity.Preferences{EmailNotifications: true, MarketingEmails: true},
	}
	if err := s.users.Create(u); err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data:     map[string]any{"Name": u.Name, "Company": s.cfg.CompanyName},
	})
	if err := s.SendVerificationEmail(ctx, u); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("could not queue verification email")
	}
	return u, nil
}

// Session is what a successful login or refresh yields.
type Session struct {
	User           *entity.User
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

// Login checks credentials, opens a redis-backed session and issues the
// token pair. The session hash pins the session id the tokens carry, so
// logout invalidates both tokens at once.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		if postgres.ErrNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	sess, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(u.ID); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("could not touch last login")
	}
	return sess, nil
}

func (s *UserService) openSession(ctx context.Context, u *entity.User) (*Session, error) {
	sid := uuid.NewString()
	key := sessionKeyPrefix + u.ID
	if err := s.rdb.HSet(ctx, key, map[string]any{
		"sid":   sid,
		"role":  u.Role,
		"name":  u.Name,
		"email": u.Email,
	}).Err(); err != nil {
		return nil, err
	}
	if err := s.rdb.Expire(ctx, key, s.jwt.RefreshTTL).Err(); err != nil {
		return nil, err
	}

	access, accessExp, err := s.jwt.GenerateAccessToken(u.ID, u.Role, sid)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.jwt.GenerateRefreshToken(u.ID, u.Role, sid)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:           u,
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
	}, nil
}

// Refresh validates the refresh token against the live session and rotates
// the session id, so a replayed refresh token stops working after first use.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	storedSID, err := s.rdb.HGet(ctx, sessionKeyPrefix+claims.UserID, "sid").Result()
	if err != nil || storedSID != claims.SessionID {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetByID(claims.UserID)
	if err != nil {
		if postgres.ErrNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountInactive
	}
	return s.openSession(ctx, u)
}

// Logout drops the session; outstanding tokens fail the session check.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, s.rdb, sessionKeyPrefix+userID)
}

func (s *UserService) GetProfile(_ context.Context, userID string) (*entity.User, error) {
	u, err := s.users.GetByID(userID)
	if postgres.ErrNotFound(err) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ProfileUpdate carries the self-service editable fields. Role and email
// are not among them; role changes are an admin concern.
type ProfileUpdate struct {
	Name             *string
	Phone            *string
	BikeProfile      *entity.BikeProfile
	EmergencyContact *entity.EmergencyContact
	Address          *entity.Address
	Preferences      *entity.Preferences
	Profile          *entity.RiderProfile
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*entity.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.BikeProfile != nil {
		u.BikeProfile = *upd.BikeProfile
	}
	if upd.EmergencyContact != nil {
		u.EmergencyContact = *upd.EmergencyContact
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.Preferences != nil {
		u.Preferences = *upd.Preferences
	}
	if upd.Profile != nil {
		u.Profile = *upd.Profile
	}
	if err := s.users.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

// UploadAvatar stores the image in GCS under a per-user path and records
// the public URL on the rider profile.
func (s *UserService) UploadAvatar(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	object := fmt.Sprintf("avatars/%s/%d-%s", userID, time.Now().UnixNano(), filename)
	url, err := helpers.UploadObject(ctx, s.gcs, s.cfg.GCSBucket, object, contentType, r)
	if err != nil {
		return "", err
	}
	u.Profile.AvatarURL = url
	if err := s.users.Update(u); err != nil {
		return "", err
	}
	return url, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.Password, current) {
		return ErrInvalidCredentials
	}
	hash, err := helpers.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(userID, hash)
}

// SendVerificationEmail mints a one-shot token and queues the email.
func (s *UserService) SendVerificationEmail(ctx context.Context, u *entity.User) error {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, verifyKeyPrefix+token, u.ID, verifyTokenTTL).Err(); err != nil {
		return err
	}
	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateVerifyEmail,
		Data: map[string]any{
			"Name":      u.Name,
			"Link":      s.cfg.VerifyEmailURL + "?token=" + token,
			"ExpiresIn": verifyTokenTTL.String(),
		},
	})
	return nil
}

// VerifyEmail consumes the token. GetDel makes the token single-use even
// when two requests carry it concurrently.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.rdb.GetDel(ctx, verifyKeyPrefix+token).Result()
	if err != nil {
		return ErrInvalidToken
	}
	return s.users.SetVerified(userID)
}

// ForgotPassword always reports success to the caller; whether the email
// exists is not disclosed.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		if postgres.ErrNotFound(err) {
			return nil
		}
		return err
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, resetKeyPrefix+token, u.ID, resetTokenTTL).Err(); err != nil {
		return err
	}
	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateForgotPassword,
		Data: map[string]any{
			"Name":      u.Name,
			"Link":      s.cfg.ResetPasswordURL + "?token=" + token,
			"ExpiresIn": resetTokenTTL.String(),
		},
	})
	return nil
}

// ResetPassword consumes the reset token, stores the new hash and kills
// the active session.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.rdb.GetDel(ctx, resetKeyPrefix+token).Result()
	if err != nil {
		return ErrInvalidToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(userID, hash); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// enqueueEmail publishes best-effort; a down broker must not fail the
// user-facing operation.
func (s *UserService) enqueueEmail(ctx context.Context, job mailer.EmailJob) {
	if s.mailQ == nil || !s.cfg.MailSendEnabled {
		return
	}
	if err := s.mailQ.PublishJSON(ctx, job); err != nil {
		s.log.WithError(err).WithField("template", job.Template).Warn("could not queue email")
	}
}
