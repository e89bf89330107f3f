package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/config"
	"github.com/nahomt/bookbridge/internal/models"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	return &testEnv{T: t, E: echo.New(), DB: db}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// loginAs stamps the context the way the auth middleware would.
func loginAs(c echo.Context, userID uint) {
	c.Set("userID", userID)
}

func (env *testEnv) seedUser(email string) models.User {
	user := models.User{Name: "user " + email, Email: email}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) seedBook(vendorID uint, title string) models.Book {
	book := models.Book{
		Title:     title,
		Author:    "test author",
		ISBN:      fmt.Sprintf("isbn-%s", title),
		Price:     10,
		Condition: "Good",
		Quantity:  3,
		Visible:   true,
	}
	require.NoError(env.T, env.DB.Create(&book).Error)
	require.NoError(env.T, env.DB.Create(&models.OwnedDetails{BookID: book.ID, VendorID: vendorID}).Error)
	return book
}

func requireHTTPError(t *testing.T, err error, status int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, status, he.Code)
}
