package model

import (
	"strings"

	"github.com/google/uuid"
)

// ValidateID はIDが正規形式（8-4-4-4-12の36文字）のUUIDであることを検証する。
// uuid.Parse が受け付ける urn:uuid: 接頭辞、波括弧、ハイフン無しの形式は拒否する。
func ValidateID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != strings.ToLower(id) {
		return NewInvalidIDError(id)
	}
	return nil
}
