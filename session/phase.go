package session

import (
	"encoding/json"
	"fmt"
)

// Phase is the wizard step a session is in.
type Phase int

const (
	Collect1 Phase = iota + 1
	Collect2
	Collect3
	Recommend
)

var phaseNames = map[Phase]string{
	Collect1:  "COLLECT_1",
	Collect2:  "COLLECT_2",
	Collect3:  "COLLECT_3",
	Recommend: "RECOMMEND",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p Phase) Valid() bool {
	return p >= Collect1 && p <= Recommend
}

// Collecting reports whether the phase accepts an utterance.
func (p Phase) Collecting() bool {
	return p >= Collect1 && p <= Collect3
}

// Turn is the 1-based step number shown to the user.
func (p Phase) Turn() int {
	return int(p)
}

// Next is the phase after a successful extraction. Recommend is terminal.
func (p Phase) Next() Phase {
	switch p {
	case Collect1:
		return Collect2
	case Collect2:
		return Collect3
	case Collect3, Recommend:
		return Recommend
	default:
		return Collect1
	}
}

// Prompt is the question asked at a collecting phase.
func (p Phase) Prompt() string {
	switch p {
	case Collect1:
		return "どんなカフェが理想ですか？（例：駅から近くてスイーツが美味しいカフェ）"
	case Collect2:
		return "他に気になることはありますか？（例：静かな場所がいい、価格も気になる）"
	case Collect3:
		return "さらに重視したいことがあれば教えてください。（例：清潔感があると嬉しい）"
	case Recommend:
		return "✅ あなたの希望に合うカフェを提案します！"
	default:
		return ""
	}
}

// FailureMessage is shown when extraction fails at a collecting phase.
func (p Phase) FailureMessage() string {
	if p == Collect1 {
		return "カテゴリ抽出に失敗しました。もう一度お試しください。"
	}

	return "解析に失敗しました。もう一度お試しください。"
}
