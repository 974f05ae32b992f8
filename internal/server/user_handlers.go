package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateUser handles POST /api/users
// @Summary Provision a user
// @Description Creates the local profile for the signed-in identity
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,first_name=string,last_name=string,photo=string,bio=string,about=string} true "Profile"
// @Success 201 {object} serialize.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Photo     string `json:"photo"`
		Bio       string `json:"bio"`
		About     string `json:"about"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := s.userService.CreateUser(c.UserContext(), service.CreateUserInput{
		ExternalID: middleware.ExternalID(c),
		Email:      req.Email,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Photo:      req.Photo,
		Bio:        req.Bio,
		About:      req.About,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetAllUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Username or bio contains"
// @Param exclude query string false "User ID to leave out"
// @Success 200 {object} service.UserPage
// @Router /users [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	page, limit := parsePagination(c)
	result, err := s.userService.GetAllUsers(c.UserContext(), service.ListUsersOptions{
		Page:             page,
		Limit:            limit,
		Search:           c.Query("search"),
		ExcludeID:        c.Query("exclude"),
		ViewerExternalID: middleware.ExternalID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetMyProfile handles GET /api/users/me
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Success 200 {object} serialize.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetCurrentUser(c.UserContext(), middleware.ExternalID(c))
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", middleware.ExternalID(c)))
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PATCH /api/users/me
// @Summary Update current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.UserPatch true "Fields to change"
// @Success 200 {object} serialize.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/me [patch]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var patch service.UserPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}
	user, err := s.userService.UpdateUser(c.UserContext(), middleware.ExternalID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user's profile
// @Tags users
// @Produce json
// @Param id path string true "User ID or external ID"
// @Param followers query bool false "Expand followers"
// @Param following query bool false "Expand following"
// @Success 200 {object} serialize.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id := c.Params("id")
	user, err := s.userService.GetUserByID(c.UserContext(), id, service.PopulateOptions{
		Followers: queryFlag(c, "followers"),
		Following: queryFlag(c, "following"),
	})
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", id))
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary List a user's posts
// @Tags users
// @Produce json
// @Param id path string true "User ID or external ID"
// @Success 200 {array} serialize.Post
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetPostsByUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// FollowUser handles POST /api/users/:externalId/follow
// @Summary Follow a user
// @Tags users
// @Param externalId path string true "External ID of the user to follow"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{externalId}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	if err := s.userService.FollowUser(c.UserContext(), middleware.ExternalID(c), c.Params("externalId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnfollowUser handles DELETE /api/users/:externalId/follow
// @Summary Unfollow a user
// @Tags users
// @Param externalId path string true "External ID of the user to unfollow"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{externalId}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	if err := s.userService.UnfollowUser(c.UserContext(), middleware.ExternalID(c), c.Params("externalId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FollowStatus handles GET /api/follow-status
// @Summary Whether one user follows another
// @Tags users
// @Produce json
// @Param userId query string true "Follower external ID"
// @Param profileId query string true "Followee external ID"
// @Success 200 {object} object{is_following=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /follow-status [get]
func (s *Server) FollowStatus(c *fiber.Ctx) error {
	userID, profileID := c.Query("userId"), c.Query("profileId")
	if userID == "" || profileID == "" {
		return badRequest(c, "userId and profileId are required")
	}
	following, err := s.userService.IsFollowing(c.UserContext(), userID, profileID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_following": following})
}
