package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/store"
)

// productRequest は商品の作成・更新リクエスト。
type productRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	PriceCents  *int64 `json:"price_cents" binding:"required,gte=0"`
	Stock       *int   `json:"stock" binding:"required,gte=0"`
}

func (r productRequest) params() store.ProductParams {
	return store.ProductParams{
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  *r.PriceCents,
		Stock:       *r.Stock,
	}
}

// productRoutes は商品リソースのルートを返す。
// 顧客は閲覧のみ、管理者は作成・更新・削除もできる。
func (s *Server) productRoutes(kind scopeKind) []route {
	routes := []route{
		{http.MethodGet, "", s.handleListProducts()},
		{http.MethodGet, "/:productId", s.handleGetProduct()},
	}
	if kind == scopeAdmin {
		routes = append(routes,
			route{http.MethodPost, "", s.handleCreateProduct()},
			route{http.MethodPut, "/:productId", s.handleUpdateProduct()},
			route{http.MethodDelete, "/:productId", s.handleDeleteProduct()},
		)
	}
	return routes
}

// handleListProductsDisplay は公開の商品一覧ハンドラを返す。
func (s *Server) handleListProductsDisplay() gin.HandlerFunc {
	return s.handleListProducts()
}

// handleGetProductDisplay は公開の商品詳細ハンドラを返す。
func (s *Server) handleGetProductDisplay() gin.HandlerFunc {
	return s.handleGetProduct()
}

// handleListProducts は商品一覧を返すハンドラを返す。
func (s *Server) handleListProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := s.store.ListProducts(c.Request.Context())
		if err != nil {
			fail(c, storeError(err, "商品が見つかりません"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": newProductResponses(products)})
	}
}

// handleGetProduct は商品詳細を返すハンドラを返す。
func (s *Server) handleGetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := s.store.GetProduct(c.Request.Context(), c.Param("productId"))
		if err != nil {
			fail(c, storeError(err, "商品が見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newProductResponse(product))
	}
}

// handleCreateProduct は商品を作成するハンドラを返す。
func (s *Server) handleCreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productRequest
		if !bindJSON(c, &req) {
			return
		}

		product, err := s.store.CreateProduct(c.Request.Context(), req.params())
		if err != nil {
			fail(c, storeError(err, "商品が見つかりません"))
			return
		}
		c.JSON(http.StatusCreated, newProductResponse(product))
	}
}

// handleUpdateProduct は商品を更新するハンドラを返す。
func (s *Server) handleUpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productRequest
		if !bindJSON(c, &req) {
			return
		}

		product, err := s.store.UpdateProduct(c.Request.Context(), c.Param("productId"), req.params())
		if err != nil {
			fail(c, storeError(err, "商品が見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newProductResponse(product))
	}
}

// handleDeleteProduct は商品を削除するハンドラを返す。
func (s *Server) handleDeleteProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.store.DeleteProduct(c.Request.Context(), c.Param("productId")); err != nil {
			fail(c, storeError(err, "商品が見つかりません"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}
