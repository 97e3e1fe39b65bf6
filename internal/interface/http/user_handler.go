package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rumbleroad/pokerrun-api/internal/application"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
	"github.com/rumbleroad/pokerrun-api/pkg/response"
	"github.com/rumbleroad/pokerrun-api/pkg/validation"
)

type UserHandler struct {
	Svc     *application.UserService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type bikeProfileRequest struct {
	Make          string   `json:"make" binding:"required"`
	Model         string   `json:"model" binding:"required"`
	Year          int      `json:"year" binding:"required"`
	Color         string   `json:"color"`
	Modifications []string `json:"modifications"`
}

type emergencyContactRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Relationship string `json:"relationship"`
	Email        string `json:"email" binding:"omitempty,email"`
}

type addressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

type registerRequest struct {
	Name             string                  `json:"name" binding:"required"`
	Email            string                  `json:"email" binding:"required,email"`
	Password         string                  `json:"password" binding:"required,pwd"`
	Phone            string                  `json:"phone" binding:"omitempty,phone"`
	BikeProfile      bikeProfileRequest      `json:"bike_profile" binding:"required"`
	EmergencyContact emergencyContactRequest `json:"emergency_contact" binding:"required"`
	Address          addressRequest          `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd"`
}

func userJSON(u *entity.User) gin.H {
	return gin.H{
		"id":                u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"phone":             u.Phone,
		"role":              u.Role,
		"bike_profile":      u.BikeProfile,
		"emergency_contact": u.EmergencyContact,
		"address":           u.Address,
		"preferences":       u.Preferences,
		"profile":           u.Profile,
		"statistics":        u.Statistics,
		"is_active":         u.IsActive,
		"email_verified":    u.EmailVerified,
		"last_login":        u.LastLogin,
		"created_at":        u.CreatedAt,
		"updated_at":        u.UpdatedAt,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), application.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		BikeProfile: entity.BikeProfile{
			Make:          req.BikeProfile.Make,
			Model:         req.BikeProfile.Model,
			Year:          req.BikeProfile.Year,
			Color:         req.BikeProfile.Color,
			Modifications: req.BikeProfile.Modifications,
		},
		EmergencyContact: entity.EmergencyContact{
			Name:         req.EmergencyContact.Name,
			Phone:        req.EmergencyContact.Phone,
			Relationship: req.EmergencyContact.Relationship,
			Email:        req.EmergencyContact.Email,
		},
		Address: entity.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			ZipCode: req.Address.ZipCode,
		},
	})
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("user registration failed")
		response.Error[any](c, http.StatusInternalServerError, "could not create account", nil)
		return
	}
	response.Success(c, http.StatusCreated, userJSON(u), "account created", nil)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sess, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrAccountInactive) {
			response.Error[any](c, http.StatusForbidden, err.Error(), nil)
			return
		}
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	h.Cookies.SetPair(c, sess.AccessToken, sess.AccessExpires, sess.RefreshToken, sess.RefreshExpires)
	response.Success(c, http.StatusOK, userJSON(sess.User), "login successful", gin.H{
		"access_expires_at":  sess.AccessExpires,
		"refresh_expires_at": sess.RefreshExpires,
	})
}

func (h *UserHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	sess, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, sess.AccessToken, sess.AccessExpires, sess.RefreshToken, sess.RefreshExpires)
	response.Success[any](c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", gin.H{
		"access_expires_at":  sess.AccessExpires,
		"refresh_expires_at": sess.RefreshExpires,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	uid := c.GetString("userID")
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Warn("could not drop session")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "profile", nil)
}

type updateProfileRequest struct {
	Name             *string                  `json:"name"`
	Phone            *string                  `json:"phone" binding:"omitempty,phone"`
	BikeProfile      *bikeProfileRequest      `json:"bike_profile"`
	EmergencyContact *emergencyContactRequest `json:"emergency_contact"`
	Address          *addressRequest          `json:"address"`
	Preferences      *entity.Preferences      `json:"preferences"`
	Profile          *riderProfileRequest     `json:"profile"`
}

type riderProfileRequest struct {
	Bio              string   `json:"bio"`
	RidingExperience string   `json:"riding_experience" binding:"omitempty,oneof=beginner intermediate advanced expert"`
	YearsRiding      int      `json:"years_riding"`
	FavoriteRoutes   []string `json:"favorite_routes"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	upd := application.ProfileUpdate{Name: req.Name, Phone: req.Phone, Preferences: req.Preferences}
	if req.BikeProfile != nil {
		upd.BikeProfile = &entity.BikeProfile{
			Make:          req.BikeProfile.Make,
			Model:         req.BikeProfile.Model,
			Year:          req.BikeProfile.Year,
			Color:         req.BikeProfile.Color,
			Modifications: req.BikeProfile.Modifications,
		}
	}
	if req.EmergencyContact != nil {
		upd.EmergencyContact = &entity.EmergencyContact{
			Name:         req.EmergencyContact.Name,
			Phone:        req.EmergencyContact.Phone,
			Relationship: req.EmergencyContact.Relationship,
			Email:        req.EmergencyContact.Email,
		}
	}
	if req.Address != nil {
		upd.Address = &entity.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			ZipCode: req.Address.ZipCode,
		}
	}
	if req.Profile != nil {
		upd.Profile = &entity.RiderProfile{
			Bio:              req.Profile.Bio,
			RidingExperience: req.Profile.RidingExperience,
			YearsRiding:      req.Profile.YearsRiding,
			FavoriteRoutes:   req.Profile.FavoriteRoutes,
		}
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString("userID"), upd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "profile updated", nil)
}

// UploadAvatar accepts a multipart form with an "avatar" file and stores
// it in the bucket.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "could not read avatar file", nil)
		return
	}
	defer f.Close()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString("userID"), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.Logger.WithError(err).Error("avatar upload failed")
		response.Error[any](c, http.StatusInternalServerError, "could not upload avatar", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"avatar_url": url}, "avatar uploaded", nil)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.ChangePassword(c.Request.Context(), c.GetString("userID"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			response.Error[any](c, http.StatusUnauthorized, "current password is incorrect", nil)
			return
		}
		writeDomainError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"changed": true}, "password changed", nil)
}

// PublicProfile shows another rider's public card.
func (h *UserHandler) PublicProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u.PublicProfile(), "rider", nil)
}
