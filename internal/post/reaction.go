package post

import (
	"slices"

	"github.com/hitoshi/postpay/internal/model"
)

// ReactionOutcome はリアクショントグルの結果を表す。
type ReactionOutcome string

const (
	// ReactionAdded はリアクションを新たに付けた。
	ReactionAdded ReactionOutcome = "added"
	// ReactionRemoved は同じリアクションを取り消した。
	ReactionRemoved ReactionOutcome = "removed"
	// ReactionSwitched は反対のリアクションから切り替えた。
	ReactionSwitched ReactionOutcome = "switched"
)

// ToggleReaction はユーザーのリアクションをトグルした新しいlikes/dislikesを返す。
//
//   - 同じリアクションを既に付けていれば取り消す
//   - 反対のリアクションを付けていればそれを外してから付ける
//   - どちらも無ければ末尾に追加する
//
// 引数のスライスは変更しない。kindはValid()であること。
func ToggleReaction(likes, dislikes []string, userID string, kind model.ReactionType) (newLikes, newDislikes []string, outcome ReactionOutcome) {
	same, opposite := likes, dislikes
	if kind == model.ReactionDislike {
		same, opposite = dislikes, likes
	}

	var newSame, newOpposite []string
	switch {
	case slices.Contains(same, userID):
		newSame = without(same, userID)
		newOpposite = clone(opposite)
		outcome = ReactionRemoved
	case slices.Contains(opposite, userID):
		newOpposite = without(opposite, userID)
		newSame = append(clone(same), userID)
		outcome = ReactionSwitched
	default:
		newSame = append(clone(same), userID)
		newOpposite = clone(opposite)
		outcome = ReactionAdded
	}

	if kind == model.ReactionDislike {
		return newOpposite, newSame, outcome
	}
	return newSame, newOpposite, outcome
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clone(ids []string) []string {
	out := make([]string, len(ids), len(ids)+1)
	copy(out, ids)
	return out
}
