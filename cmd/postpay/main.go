// Command postpay は投稿・決済APIサーバーとワーカーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバー（デフォルト）
//	worker       Webhookイベント記録のクリーンアップ
//	migrate      データベースマイグレーション
//	healthcheck  /health への疎通確認（コンテナ用）
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/postpay/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
