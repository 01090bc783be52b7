package controllers

import (
	"net/http"
	"strconv"

	"github.com/digibiomics/LungSense-main/lifecycle"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/gin-gonic/gin"
)

type UsersController struct {
	Service *lifecycle.Service
}

// UpdateUserInput mirrors lifecycle.ProfilePatch. Absent and null fields are
// both left unchanged.
type UpdateUserInput struct {
	FirstName           *string `json:"first_name" binding:"omitempty,max=100"`
	LastName            *string `json:"last_name" binding:"omitempty,max=100"`
	Email               *string `json:"email"`
	IsActive            *bool   `json:"is_active"`
	PractitionerID      *string `json:"practitioner_id" binding:"omitempty,max=64"`
	Institution         *string `json:"institution"`
	InstitutionLocation *string `json:"institution_location"`
}

func (u *UsersController) List(c *gin.Context) {
	var filter models.AccountFilter
	if raw := c.Query("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			security.SendValidationError(c, "include_inactive must be a boolean", nil)
			return
		}
		filter.IncludeInactive = include
	}
	if raw := c.Query("role"); raw != "" {
		role := models.Role(raw)
		if !role.Valid() {
			security.SendValidationError(c, "role must be patient or practitioner", nil)
			return
		}
		filter.Role = &role
	}

	accounts, err := u.Service.ListAccounts(c.Request.Context(), currentActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (u *UsersController) Get(c *gin.Context) {
	account, err := u.Service.GetAccount(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (u *UsersController) Update(c *gin.Context) {
	var input UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		security.SendValidationError(c, "Invalid input data", err.Error())
		return
	}
	account, err := u.Service.UpdateProfile(c.Request.Context(), currentActor(c), c.Param("id"), lifecycle.ProfilePatch{
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		Email:               input.Email,
		IsActive:            input.IsActive,
		PractitionerID:      input.PractitionerID,
		Institution:         input.Institution,
		InstitutionLocation: input.InstitutionLocation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (u *UsersController) SoftDelete(c *gin.Context) {
	account, err := u.Service.SoftDelete(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (u *UsersController) Restore(c *gin.Context) {
	account, err := u.Service.Restore(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (u *UsersController) HardDelete(c *gin.Context) {
	if err := u.Service.HardDelete(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (u *UsersController) ListProfiles(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		security.SendValidationError(c, "skip must be a non-negative integer", nil)
		return
	}
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		security.SendValidationError(c, "limit must be a non-negative integer", nil)
		return
	}
	profiles, err := u.Service.ListProfiles(c.Request.Context(), currentActor(c), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
