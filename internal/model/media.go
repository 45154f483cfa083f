// Package model はドメインモデルを定義する。
package model

import "time"

// MediaSource はメディアの取得経路を表す。
type MediaSource string

const (
	// MediaSourceUpload はmultipartアップロード。
	MediaSourceUpload MediaSource = "upload"
	// MediaSourceRemote はURL指定のリモート取り込み。
	MediaSourceRemote MediaSource = "remote"
)

// Media はアップロードされたメディアファイルのメタデータを表す。
type Media struct {
	ID           string
	OwnerID      string
	Filename     string // 保存ファイル名
	OriginalName string
	ContentType  string
	Size         int64
	Source       MediaSource
	CreatedAt    time.Time
}
