package controllers

import (
	"errors"
	"net/http"

	"github.com/digibiomics/LungSense-main/lifecycle"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Service *lifecycle.Service
}

type PatientSignupInput struct {
	FirstName        *string `json:"first_name" binding:"omitempty,max=100"`
	LastName         *string `json:"last_name" binding:"omitempty,max=100"`
	Email            string  `json:"email" binding:"required"`
	Password         string  `json:"password" binding:"required"`
	Country          *string `json:"country"`
	Province         *string `json:"province"`
	Ethnicity        *string `json:"ethnicity"`
	Sex              *string `json:"sex"`
	PractitionerName *string `json:"practitioner_name"`
	Birthdate        string  `json:"birthdate"`
	Consent          bool    `json:"consent"`
}

type PractitionerSignupInput struct {
	FirstName           *string `json:"first_name" binding:"omitempty,max=100"`
	LastName            *string `json:"last_name" binding:"omitempty,max=100"`
	Email               string  `json:"email" binding:"required"`
	Password            string  `json:"password" binding:"required"`
	PractitionerID      string  `json:"practitioner_id" binding:"omitempty,max=64"`
	Institution         *string `json:"institution"`
	InstitutionLocation *string `json:"institution_location"`
	Consent             bool    `json:"consent"`
}

type LoginInput struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	PractitionerID string `json:"practitioner_id"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// TokenResponse is the OAuth2-style body returned by the form token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *AuthController) SignupPatient(c *gin.Context) {
	var input PatientSignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		security.SendValidationError(c, "Invalid input data", err.Error())
		return
	}
	session, err := a.Service.SignupPatient(c.Request.Context(), lifecycle.PatientSignup{
		Email:            input.Email,
		Password:         input.Password,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Country:          input.Country,
		Province:         input.Province,
		Ethnicity:        input.Ethnicity,
		Sex:              input.Sex,
		PractitionerName: input.PractitionerName,
		Birthdate:        input.Birthdate,
		Consent:          input.Consent,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (a *AuthController) SignupPractitioner(c *gin.Context) {
	var input PractitionerSignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		security.SendValidationError(c, "Invalid input data", err.Error())
		return
	}
	session, err := a.Service.SignupPractitioner(c.Request.Context(), lifecycle.PractitionerSignup{
		Email:               input.Email,
		Password:            input.Password,
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		PractitionerID:      input.PractitionerID,
		Institution:         input.Institution,
		InstitutionLocation: input.InstitutionLocation,
		Consent:             input.Consent,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login returns a handler bound to role, so /patients/login cannot be used
// with a practitioner account and vice versa.
func (a *AuthController) Login(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			security.SendValidationError(c, "Invalid input data", err.Error())
			return
		}
		session, err := a.Service.Login(c.Request.Context(), lifecycle.Credentials{
			Role:           role,
			Email:          input.Email,
			Password:       input.Password,
			PractitionerID: input.PractitionerID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// Token implements the OAuth2 password grant over a form body.
func (a *AuthController) Token(c *gin.Context) {
	username, password := c.PostForm("username"), c.PostForm("password")
	if username == "" || password == "" {
		security.SendValidationError(c, "username and password are required", nil)
		return
	}
	session, err := a.Service.Login(c.Request.Context(), lifecycle.Credentials{Email: username, Password: password})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{AccessToken: session.AccessToken, TokenType: session.TokenType, ExpiresIn: session.ExpiresIn})
}

func (a *AuthController) Me(c *gin.Context) {
	account, ok := security.CurrentAccount(c)
	if !ok {
		security.SendUnauthorized(c)
		return
	}
	var profile *models.Profile
	p, err := a.Service.GetProfile(c.Request.Context(), lifecycle.ActorFor(account), account.ID)
	switch {
	case err == nil:
		profile = &p
	case !errors.Is(err, lifecycle.ErrNotFound):
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "profile": profile})
}

func (a *AuthController) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		security.SendValidationError(c, "Invalid input data", err.Error())
		return
	}
	if err := a.Service.ChangePassword(c.Request.Context(), currentActor(c), input.CurrentPassword, input.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
