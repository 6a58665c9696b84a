package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/spigell/rallypoint/internal/errors"
	"github.com/spigell/rallypoint/internal/recommend"
	"github.com/spigell/rallypoint/internal/store"
)

type projectForm struct {
	Name        string `form:"name"`
	Email       string `form:"email"`
	Title       string `form:"title"`
	Description string `form:"description"`
}

type postingForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

type recommendRequest struct {
	Description string `json:"description"`
}

// PostingView is a posting with its read-time recommendation.
type PostingView struct {
	store.Posting
	Recommendation *recommend.Recommendation `json:"recommendation"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Title": "Submit a project"})
}

func (s *Server) success(c *gin.Context) {
	c.HTML(http.StatusOK, "success.html", gin.H{"Title": "Thank you"})
}

// submitProject stores the project when complete. Incomplete submissions are
// dropped and the client is redirected either way.
func (s *Server) submitProject(c *gin.Context) {
	var form projectForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Warn("unreadable project form", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/success")
		return
	}

	project := store.Project{
		Name:        form.Name,
		Email:       form.Email,
		Title:       form.Title,
		Description: form.Description,
	}

	if _, err := s.storage.AddProject(c.Request.Context(), project); err != nil {
		if apperrors.Is(err, apperrors.ErrTypeInvalidInput) {
			s.logger.Warn("project submission skipped", zap.Error(err))
			c.Redirect(http.StatusSeeOther, "/success")
			return
		}
		_ = c.Error(err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/success")
}

func (s *Server) admin(c *gin.Context) {
	ctx := c.Request.Context()

	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		_ = c.Error(err)
		return
	}

	postings, err := s.storage.ListPostings(ctx)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.HTML(http.StatusOK, "admin.html", gin.H{
		"Title":    "Admin dashboard",
		"Projects": projects,
		"Postings": postings,
	})
}

func (s *Server) createPosting(c *gin.Context) {
	var form postingForm
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Warn("unreadable posting form", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}

	posting := store.Posting{Title: form.Title, Description: form.Description}

	if _, err := s.storage.AddPosting(c.Request.Context(), posting); err != nil {
		if apperrors.Is(err, apperrors.ErrTypeInvalidInput) {
			s.logger.Warn("posting skipped", zap.Error(err))
			c.Redirect(http.StatusSeeOther, "/admin")
			return
		}
		_ = c.Error(err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin")
}

func (s *Server) postings(c *gin.Context) {
	views, err := s.enrichedPostings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.HTML(http.StatusOK, "postings.html", gin.H{
		"Title":    "Open opportunities",
		"Postings": views,
	})
}

func (s *Server) health(c *gin.Context) {
	if err := s.storage.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) notFound(c *gin.Context) {
	_ = c.Error(apperrors.NotFound("no route for "+c.Request.Method+" "+c.Request.URL.Path, nil))
}

func (s *Server) apiPostings(c *gin.Context) {
	views, err := s.enrichedPostings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"postings": views})
}

func (s *Server) apiRecommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.InvalidInput("invalid json body", err))
		return
	}

	c.JSON(http.StatusOK, s.recommender.Recommend(c.Request.Context(), req.Description))
}

// enrichedPostings lists postings and computes a recommendation for each one
// concurrently. Order follows the store.
func (s *Server) enrichedPostings(ctx context.Context) ([]PostingView, error) {
	postings, err := s.storage.ListPostings(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]PostingView, len(postings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EnrichConcurrency)

	for i, posting := range postings {
		g.Go(func() error {
			views[i] = PostingView{
				Posting:        posting,
				Recommendation: s.recommender.Recommend(gctx, posting.Description),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return views, nil
}
