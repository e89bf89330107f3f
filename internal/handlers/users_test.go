package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahomt/bookbridge/internal/dto"
)

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	h := &UserHandler{DB: env.DB}
	user := env.seedUser("someone@example.com")

	rec, c := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/Users/%d", user.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(user.ID))
	require.NoError(t, h.GetUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, user.Email, resp.Email)
}

func TestPatchUserSelf(t *testing.T) {
	env := newTestEnv(t)
	h := &UserHandler{DB: env.DB}
	user := env.seedUser("someone@example.com")

	rec, c := env.doJSONRequest(http.MethodPatch, fmt.Sprintf("/api/Users/%d", user.ID),
		map[string]any{"name": "New Name", "location": "Bahir Dar"})
	loginAs(c, user.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(user.ID))
	require.NoError(t, h.PatchUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "New Name", resp.Name)
	require.Equal(t, "Bahir Dar", resp.Location)
	require.Equal(t, user.Email, resp.Email)
}

func TestPatchUserOtherForbidden(t *testing.T) {
	env := newTestEnv(t)
	h := &UserHandler{DB: env.DB}
	user := env.seedUser("someone@example.com")
	other := env.seedUser("other@example.com")

	_, c := env.doJSONRequest(http.MethodPatch, fmt.Sprintf("/api/Users/%d", user.ID),
		map[string]any{"name": "Hijacked"})
	loginAs(c, other.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(user.ID))
	requireHTTPError(t, h.PatchUser(c), http.StatusForbidden)
}

func TestPatchUserEmptyNameRejected(t *testing.T) {
	env := newTestEnv(t)
	h := &UserHandler{DB: env.DB}
	user := env.seedUser("someone@example.com")

	_, c := env.doJSONRequest(http.MethodPatch, fmt.Sprintf("/api/Users/%d", user.ID),
		map[string]any{"name": ""})
	loginAs(c, user.ID)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(user.ID))
	requireHTTPError(t, h.PatchUser(c), http.StatusBadRequest)
}
