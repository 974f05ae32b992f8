package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/serialize"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("bad"), fiber.StatusBadRequest},
		{"field validation", models.NewFieldValidationError(models.CodeInvalidBio, "long"), fiber.StatusBadRequest},
		{"invalid id", models.NewInvalidIDError("x"), fiber.StatusBadRequest},
		{"not found", models.NewNotFoundError("Post", "x"), fiber.StatusNotFound},
		{"duplicate", models.NewDuplicateError("taken"), fiber.StatusConflict},
		{"already following", models.NewAlreadyFollowingError(), fiber.StatusConflict},
		{"not following", models.NewNotFollowingError(), fiber.StatusConflict},
		{"unauthorized", models.NewUnauthorizedError("nope"), fiber.StatusForbidden},
		{"connection", models.NewConnectionError(nil), fiber.StatusServiceUnavailable},
		{"internal", models.NewInternalError(fmt.Errorf("boom")), fiber.StatusInternalServerError},
		{"plain", fmt.Errorf("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		page, limit := parsePagination(c)
		return c.JSON(fiber.Map{"page": page, "limit": limit})
	})

	tests := []struct {
		query     string
		wantPage  float64
		wantLimit float64
	}{
		{"", 1, service.DefaultPageSize},
		{"?page=3&limit=25", 3, 25},
		{"?page=0&limit=-1", 1, service.DefaultPageSize},
		{"?limit=1000", 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil), -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, decode(resp, &body))
			assert.Equal(t, tt.wantPage, body["page"])
			assert.Equal(t, tt.wantLimit, body["limit"])
		})
	}
}

func TestSetupMiddleware_CORS(t *testing.T) {
	srv := &Server{config: &config.Config{AllowedOrigins: "http://localhost:5173"}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/health/live", "", nil, nil))

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/health/ready", "", nil, &ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])
}

func TestIdentityRequiredRoutes(t *testing.T) {
	ts := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/users"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/me"},
		{http.MethodPatch, "/api/users/me"},
		{http.MethodPost, "/api/users/user_bob/follow"},
		{http.MethodPost, "/api/posts"},
		{http.MethodPost, "/api/posts/00000000-0000-0000-0000-000000000000/like"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			assert.Equal(t, fiber.StatusUnauthorized, ts.do(t, r.method, r.path, "", nil, nil))
		})
	}

	// Public reads stay open.
	assert.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/posts", "", nil, nil))
}

func TestUserEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	bob := ts.signUp(t, "bob")

	t.Run("duplicate sign-up conflicts", func(t *testing.T) {
		var errBody models.ErrorResponse
		status := ts.do(t, http.MethodPost, "/api/users", alice, map[string]string{"username": "alice"}, &errBody)
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, models.CodeDuplicate, errBody.Code)
	})

	t.Run("me", func(t *testing.T) {
		var me serialize.User
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/users/me", alice, nil, &me))
		assert.Equal(t, "alice", me.Username)
		assert.Equal(t, alice, me.ExternalID)
	})

	t.Run("me before sign-up", func(t *testing.T) {
		assert.Equal(t, fiber.StatusNotFound, ts.do(t, http.MethodGet, "/api/users/me", "user_ghost", nil, nil))
	})

	t.Run("update profile", func(t *testing.T) {
		var me serialize.User
		status := ts.do(t, http.MethodPatch, "/api/users/me", alice, map[string]string{"bio": "writes things"}, &me)
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "writes things", me.Bio)

		var errBody models.ErrorResponse
		status = ts.do(t, http.MethodPatch, "/api/users/me", alice, map[string]string{"username": "a"}, &errBody)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, models.CodeInvalidUsername, errBody.Code)
	})

	t.Run("follow and status", func(t *testing.T) {
		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodPost, "/api/users/"+bob+"/follow", alice, nil, nil))
		assert.Equal(t, fiber.StatusConflict, ts.do(t, http.MethodPost, "/api/users/"+bob+"/follow", alice, nil, nil))

		var status map[string]bool
		code := ts.do(t, http.MethodGet, "/api/follow-status?userId="+alice+"&profileId="+bob, "", nil, &status)
		require.Equal(t, fiber.StatusOK, code)
		assert.True(t, status["is_following"])

		assert.Equal(t, fiber.StatusBadRequest, ts.do(t, http.MethodGet, "/api/follow-status?userId="+alice, "", nil, nil))
		assert.Equal(t, fiber.StatusNotFound,
			ts.do(t, http.MethodGet, "/api/follow-status?userId="+alice+"&profileId=user_ghost", "", nil, nil))

		var profile serialize.User
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/users/"+bob+"?followers=1", "", nil, &profile))
		require.Len(t, profile.Followers, 1)
		follower, ok := profile.Followers[0].Value()
		require.True(t, ok)
		assert.Equal(t, "alice", follower.Username)

		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodDelete, "/api/users/"+bob+"/follow", alice, nil, nil))
		assert.Equal(t, fiber.StatusConflict, ts.do(t, http.MethodDelete, "/api/users/"+bob+"/follow", alice, nil, nil))
	})

	t.Run("list annotates viewer", func(t *testing.T) {
		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodPost, "/api/users/"+bob+"/follow", alice, nil, nil))

		var page service.UserPage
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/users?search=bo", alice, nil, &page))
		require.Len(t, page.Users, 1)
		require.NotNil(t, page.Users[0].IsFollowing)
		assert.True(t, *page.Users[0].IsFollowing)
		assert.EqualValues(t, 1, page.Pagination.Total)
	})

	t.Run("profile lookups", func(t *testing.T) {
		assert.Equal(t, fiber.StatusBadRequest, ts.do(t, http.MethodGet, "/api/users/not-a-uuid", "", nil, nil))
		assert.Equal(t, fiber.StatusNotFound,
			ts.do(t, http.MethodGet, "/api/users/00000000-0000-0000-0000-000000000000", "", nil, nil))
	})
}

func TestPostEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	bob := ts.signUp(t, "bob")

	var created serialize.Post
	status := ts.do(t, http.MethodPost, "/api/posts", alice,
		map[string]string{"title": "Hello", "content": "<p>First <b>post</b></p>"}, &created)
	require.Equal(t, fiber.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	postPath := "/api/posts/" + created.ID

	t.Run("create requires title and content", func(t *testing.T) {
		assert.Equal(t, fiber.StatusBadRequest,
			ts.do(t, http.MethodPost, "/api/posts", alice, map[string]string{"title": "x"}, nil))
	})

	t.Run("get", func(t *testing.T) {
		var post serialize.Post
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, postPath, "", nil, &post))
		assert.Equal(t, "Hello", post.Title)
		assert.Equal(t, "First post", post.Summary.Excerpt)
		assert.True(t, post.Author.IsExpanded())

		assert.Equal(t, fiber.StatusNotFound,
			ts.do(t, http.MethodGet, "/api/posts/00000000-0000-0000-0000-000000000000", "", nil, nil))
		assert.Equal(t, fiber.StatusBadRequest, ts.do(t, http.MethodGet, "/api/posts/nope", "", nil, nil))
	})

	t.Run("like comment and save", func(t *testing.T) {
		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodPost, postPath+"/like", bob, nil, nil))
		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodPost, postPath+"/like", bob, nil, nil))

		var comment serialize.Comment
		status := ts.do(t, http.MethodPost, postPath+"/comments", bob, map[string]string{"content": "nice"}, &comment)
		require.Equal(t, fiber.StatusCreated, status)
		assert.Equal(t, "nice", comment.Content)

		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodPost, postPath+"/save", bob, nil, nil))

		var post serialize.Post
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, postPath, "", nil, &post))
		assert.Len(t, post.Likes, 1)
		assert.Len(t, post.Comments, 1)

		var me serialize.User
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/users/me", bob, nil, &me))
		assert.Equal(t, []string{created.ID}, me.SavedPosts)

		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodDelete, postPath+"/like", bob, nil, nil))
		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodDelete, postPath+"/save", bob, nil, nil))
	})

	t.Run("only the author edits", func(t *testing.T) {
		var errBody models.ErrorResponse
		status := ts.do(t, http.MethodPatch, postPath, bob, map[string]string{"title": "Hijack"}, &errBody)
		assert.Equal(t, fiber.StatusForbidden, status)
		assert.Equal(t, models.CodeUnauthorized, errBody.Code)

		var post serialize.Post
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodPatch, postPath, alice, map[string]string{"title": "Edited"}, &post))
		assert.Equal(t, "Edited", post.Title)
	})

	t.Run("listing search and by user", func(t *testing.T) {
		var posts []serialize.Post
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/posts?page=1&limit=5", "", nil, &posts))
		assert.Len(t, posts, 1)

		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/posts/search?q=EDIT", "", nil, &posts))
		assert.Len(t, posts, 1)
		assert.Equal(t, fiber.StatusBadRequest, ts.do(t, http.MethodGet, "/api/posts/search?q=", "", nil, nil))

		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/users/"+alice+"/posts", "", nil, &posts))
		assert.Len(t, posts, 1)
		require.Equal(t, fiber.StatusOK, ts.do(t, http.MethodGet, "/api/users/"+bob+"/posts", "", nil, &posts))
		assert.Empty(t, posts)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, fiber.StatusForbidden, ts.do(t, http.MethodDelete, postPath, bob, nil, nil))
		require.Equal(t, fiber.StatusNoContent, ts.do(t, http.MethodDelete, postPath, alice, nil, nil))
		assert.Equal(t, fiber.StatusNotFound, ts.do(t, http.MethodGet, postPath, "", nil, nil))
	})
}
