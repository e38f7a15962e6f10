package preferences

import (
	"fmt"
	"strings"
)

var ExtractionSysPrompt = `あなたはカフェ探しの要望を分析するアシスタントです。
ユーザーの文章から、理想のカフェについて重視している観点(カテゴリ)を読み取り、
それぞれの重要度を数値で付けてください。

出力ルール:
1. 出力は JSON オブジェクト1つだけにすること。説明文やコードブロックは付けない
2. キーはカテゴリ名(日本語の短い名詞)、値は重要度を表す数値
3. 重要度は 0.0 から 1.0 の範囲で、強く望むほど大きくする
4. 避けたいこと(例:「混んでいない方がいい」)は負の値で表してよい
5. できるだけ次のカテゴリ名を使うこと: %s

例:
入力: 駅から近くてスイーツが美味しいカフェ
出力: {"アクセス": 0.8, "味": 0.6}`

// BuildPrompt embeds the utterance into the extraction instructions. The
// categories are listed as preferred labels; the model may still answer with
// others, which normalization filters.
func BuildPrompt(utterance string, categories []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(ExtractionSysPrompt, strings.Join(categories, "、")))
	b.WriteString("\n\n入力: ")
	b.WriteString(utterance)
	b.WriteString("\n出力:")

	return b.String()
}
