package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts, newest first
// @Tags posts
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {array} serialize.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, limit := parsePagination(c)
	posts, err := s.postService.GetPosts(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search post titles and bodies
// @Tags posts
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {array} serialize.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.postService.SearchPosts(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post with likes and comments
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} serialize.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id := c.Params("id")
	post, err := s.postService.GetPostByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Post", id))
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body service.PostInput true "Post"
// @Success 201 {object} serialize.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.PostInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	post, err := s.postService.CreatePost(c.UserContext(), middleware.ExternalID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id
// @Summary Edit a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body service.PostPatch true "Fields to change"
// @Success 200 {object} serialize.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var patch service.PostPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}
	post, err := s.postService.UpdatePost(c.UserContext(), c.Params("id"), middleware.ExternalID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Param id path string true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.UserContext(), c.Params("id"), middleware.ExternalID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Tags posts
// @Param id path string true "Post ID"
// @Success 204
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	if err := s.postService.LikePost(c.UserContext(), middleware.ExternalID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnlikePost handles DELETE /api/posts/:id/like
// @Summary Remove a like
// @Tags posts
// @Param id path string true "Post ID"
// @Success 204
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	if err := s.postService.UnlikePost(c.UserContext(), middleware.ExternalID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} serialize.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	comment, err := s.postService.AddComment(c.UserContext(), middleware.ExternalID(c), c.Params("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// SavePost handles POST /api/posts/:id/save
// @Summary Bookmark a post
// @Tags posts
// @Param id path string true "Post ID"
// @Success 204
// @Router /posts/{id}/save [post]
func (s *Server) SavePost(c *fiber.Ctx) error {
	if err := s.userService.SavePost(c.UserContext(), middleware.ExternalID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnsavePost handles DELETE /api/posts/:id/save
// @Summary Remove a bookmark
// @Tags posts
// @Param id path string true "Post ID"
// @Success 204
// @Router /posts/{id}/save [delete]
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	if err := s.userService.UnsavePost(c.UserContext(), middleware.ExternalID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
