package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/pro-access/internal/models"
)

func TestValidationError(t *testing.T) {
	type request struct {
		Plan string `json:"plan" validate:"required,oneof=free pro enterprise"`
		Org  string `json:"org" validate:"uuid"`
	}
	err := validator.New().Struct(request{Plan: "gold", Org: "x"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Plan must be one of: free pro enterprise")
	assert.Contains(t, resp.Error, "field Org can contain only uuid")
}

func TestOrganizationRequired(t *testing.T) {
	resp := OrganizationRequired(nil)
	assert.NotNil(t, resp.Organizations)
	assert.Equal(t, "organization required", resp.Error)

	orgs := []models.OrganizationRef{{ID: "a", Name: "Acme"}}
	assert.Equal(t, orgs, OrganizationRequired(orgs).Organizations)
}

func TestAccessDenied(t *testing.T) {
	resp := AccessDenied("pro_required", "pro required")
	assert.Equal(t, AccessDeniedResponse{Status: StatusError, Error: "pro required", Reason: "pro_required"}, resp)
}
