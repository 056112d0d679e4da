package server

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/middleware"
)

// apiPrefixes はフロントエンドへのフォールバック対象外とするパス接頭辞。
// これらに一致して見つからないリクエストは常にNot-Foundエンベロープを返す。
var apiPrefixes = []string{"/api", "/cust-api", "/adm-api", "/health"}

// setupFrontend は本番環境でフロントエンドのビルド成果物を配信する準備をする。
func (s *Server) setupFrontend() error {
	dir := s.cfg.App.FrontendDir
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return fmt.Errorf("フロントエンドのビルド成果物が見つかりません: %s: %w", index, err)
	}
	s.frontendDir = dir
	return nil
}

// noRoute はどのルートにも一致しなかったリクエストのハンドラを返す。
// 保護された接頭辞の配下では、Not-Foundを返す前にその接頭辞のゲートを通す。
// ゲートを通過しないリクエストはルートの有無に関係なく同じ応答になる。
// 本番環境ではAPI以外のGET・HEADをフロントエンドの静的ファイルで応答し、
// ファイルが無ければindex.htmlを返す（クライアント側ルーティング用）。
func (s *Server) noRoute() gin.HandlerFunc {
	notFound := middleware.NotFound()

	return func(c *gin.Context) {
		if gate, ok := s.gateFor(c.Request.URL.Path); ok {
			for _, h := range gate.handlers {
				h(c)
				if c.IsAborted() {
					return
				}
			}
			notFound(c)
			return
		}
		if s.frontendDir == "" || !isFrontendRequest(c.Request) {
			notFound(c)
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		file := filepath.Join(s.frontendDir, filepath.FromSlash(name))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(s.frontendDir, "index.html"))
	}
}

// isFrontendRequest はリクエストがフロントエンド配信の対象かを返す。
func isFrontendRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	for _, prefix := range apiPrefixes {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			return false
		}
	}
	return true
}
