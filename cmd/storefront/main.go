// ストアフロントAPIのエントリポイント。
// serveでHTTPサーバーを起動し、migrateとcreate-adminで運用作業を行う。
package main

import (
	"os"

	"github.com/nao1215/storefront/cmd/storefront/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
