package controller

import (
	"deck-builder-be/internal/dto"
	"deck-builder-be/internal/pkg/serverutils"
	"deck-builder-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISearchController interface {
	RegisterRoutes(r fiber.Router)
	Search(ctx *fiber.Ctx) error
}

type searchController struct {
	searchService service.ISearchService
}

func NewSearchController(searchService service.ISearchService) ISearchController {
	return &searchController{
		searchService: searchService,
	}
}

func (c *searchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/search/v1")
	h.Get("", c.Search)
}

func (c *searchController) Search(ctx *fiber.Ctx) error {
	req := dto.SlideSearchRequest{
		Query: ctx.Query("q"),
		Limit: ctx.QueryInt("limit", 10),
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	results, err := c.searchService.Search(ctx.Context(), req.Query, req.Limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search slides", dto.SlideSearchResponse{
		Query:   req.Query,
		Results: results,
		Total:   len(results),
	}))
}
