package httpserver

import (
	"net/http"
	"strconv"

	"marketplace-api/internal/domain"
	productsvc "marketplace-api/internal/service/product"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listProducts(c *gin.Context) {
	q := productsvc.ListQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		SellerID: c.Query("seller"),
		Popular:  queryBool(c, "popular"),
		New:      queryBool(c, "new"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
	page, err := h.products.List(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, "list products", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) popularProducts(c *gin.Context) {
	list, err := h.products.Popular(c.Request.Context())
	if err != nil {
		h.writeError(c, "popular products", err)
		return
	}
	c.JSON(http.StatusOK, nonNilProducts(list))
}

func (h *handlers) newProducts(c *gin.Context) {
	list, err := h.products.Newest(c.Request.Context())
	if err != nil {
		h.writeError(c, "new products", err)
		return
	}
	c.JSON(http.StatusOK, nonNilProducts(list))
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		h.writeError(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createProduct(c *gin.Context) {
	var in productsvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.products.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		h.writeError(c, "create product", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) updateProduct(c *gin.Context) {
	var in productsvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.products.Update(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.writeError(c, "update product", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.writeError(c, "delete product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Categories())
}

// queryBool returns nil when the parameter is absent or unparsable.
func queryBool(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// queryInt returns 0 for absent or malformed values; the service applies defaults.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func nonNilProducts(list []domain.Product) []domain.Product {
	if list == nil {
		return []domain.Product{}
	}
	return list
}
