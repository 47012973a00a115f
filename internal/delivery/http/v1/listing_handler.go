package v1

import (
	"errors"
	"net/http"

	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	listingUC domain.ListingUsecase
}

// ListingsResponse is the body of GET /
type ListingsResponse struct {
	Listings []domain.Listing `json:"listings"`
}

// JobResponse is the body of GET /job/{id}
type JobResponse struct {
	Job domain.Listing `json:"job"`
}

func NewListingHandler(public *gin.RouterGroup, jobs *gin.RouterGroup, listingUC domain.ListingUsecase) {
	handler := &ListingHandler{listingUC: listingUC}

	public.GET("/", handler.List)
	jobs.GET("/:id", handler.GetDetails)
}

// List godoc
// @Summary      List job openings
// @Description  Returns every open job on the board with its application questions
// @Tags         listings
// @Produce      json
// @Success      200  {object}  ListingsResponse
// @Failure      500  {object}  response.ErrorBody
// @Router       / [get]
func (h *ListingHandler) List(c *gin.Context) {
	listings, err := h.listingUC.ListListings(c.Request.Context())
	if err != nil {
		c.Error(apperror.New(http.StatusInternalServerError, apperror.CodeNoJobs, "Unable to load jobs from the job board", err))
		return
	}

	response.Success(c, http.StatusOK, ListingsResponse{Listings: listings})
}

// GetDetails godoc
// @Summary      Get a job opening
// @Description  Returns a single job by id
// @Tags         listings
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  JobResponse
// @Failure      404  {object}  response.ErrorBody
// @Failure      429  {object}  response.ErrorBody
// @Router       /job/{id} [get]
func (h *ListingHandler) GetDetails(c *gin.Context) {
	id := domain.ParseJobID(c.Param("id"))

	job, err := h.listingUC.GetJob(c.Request.Context(), id)
	if err != nil {
		// Upstream failures surface as not found too; only they are reported
		cause := err
		if errors.Is(err, domain.ErrJobNotFound) {
			cause = nil
		}
		c.Error(apperror.New(http.StatusNotFound, apperror.CodeJobNotFound, "Job '"+id.String()+"' not found", cause))
		return
	}

	response.Success(c, http.StatusOK, JobResponse{Job: job})
}
