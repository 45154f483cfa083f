package media

import (
	"net/http"
	"time"
)

// fetchResult はリモート応答のHTTPステータスの分類。
type fetchResult int

const (
	// fetchOK は取り込みを続行できる（200）。
	fetchOK fetchResult = iota
	// fetchStop は再試行しても結果が変わらない（4xxなど）。
	fetchStop
	// fetchRetry は一時的な失敗で再試行の余地がある（429/5xx）。
	fetchRetry
)

const (
	// maxFetchAttempts はリモート取得の最大試行回数。
	maxFetchAttempts = 3
	// initialRetryDelay は初回再試行までの待ち時間。
	initialRetryDelay = 200 * time.Millisecond
	// maxRetryDelay は再試行間隔の上限。
	maxRetryDelay = 2 * time.Second
)

// classifyStatus はHTTPステータスコードを取得結果に分類する。
func classifyStatus(statusCode int) fetchResult {
	switch {
	case statusCode == http.StatusOK:
		return fetchOK
	case statusCode == http.StatusTooManyRequests:
		return fetchRetry
	case statusCode >= 500:
		return fetchRetry
	default:
		return fetchStop
	}
}

// retryDelay は再試行回数に応じた指数バックオフの待ち時間を返す。
// attemptは0始まりで、上限はmaxRetryDelay。
func retryDelay(attempt int) time.Duration {
	delay := initialRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
