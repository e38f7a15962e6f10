package ranking_test

import (
	"context"
	"strings"
	"testing"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/preferences"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/imkonsowa/cafes-rag/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scores = `カフェ名,雰囲気,ロケーション,清潔感,ごはん,座席,サービス
喫茶ひかり,0.9,0.3,0.8,0.6,0.4,0.7
珈琲館みどり,0.5,0.9,0.6,0.9,,0.5
カフェ月,0.2,0.8,0.3,0.4,0.9,0.1
紅茶屋そら,0.7,,0.9,0.8,0.6,0.8
駅前ベーカリー,0.3,1.0,0.5,0.7,0.2,0.4
森のテラス,0.8,0.1,0.7,0.5,0.8,0.6
`

const reviews = `カフェ名,カテゴリ,スコア,口コミ
珈琲館みどり,ロケーション,0.9,駅から徒歩1分
珈琲館みどり,ごはん,0.8,ケーキが絶品
珈琲館みどり,ごはん,0.8,ケーキが絶品
珈琲館みどり,ごはん,0.3,普通
駅前ベーカリー,ロケーション,0.95,改札の目の前
紅茶屋そら,清潔感,0.7,清潔な店内
`

func TestPipeline_ThreeTurnsToRecommendation(t *testing.T) {
	cat, err := catalog.ParseScores(strings.NewReader(scores), "scores.csv")
	require.NoError(t, err)
	revs, err := catalog.ParseReviews(strings.NewReader(reviews), "reviews.csv")
	require.NoError(t, err)

	replies := map[string]string{
		"駅から近くてスイーツが美味しいカフェ": `{"アクセス":0.8,"味":0.6}`,
		"きれいなお店がいい":          `はい。{"きれいさ": 0.7, "価格": 0.5}`,
		"やっぱり駅近が一番":          `{"ロケーション": 1.0}`,
	}
	var prompts []string
	asker := preferences.AskerFunc(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		for utterance, reply := range replies {
			if strings.HasSuffix(prompt, "入力: "+utterance+"\n出力:") {
				return reply, nil
			}
		}
		return "", nil
	})

	vocab := vocabulary.New(cat.Categories, vocabulary.DefaultSynonyms)
	extractor := preferences.NewExtractor(asker, vocab, 0)
	s := session.New("e2e")

	first, err := s.Submit(context.Background(), extractor, "駅から近くてスイーツが美味しいカフェ")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ロケーション": 0.8, "ごはん": 0.6}, first.Weights.Map())

	_, err = s.Submit(context.Background(), extractor, "きれいなお店がいい")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), extractor, "やっぱり駅近が一番")
	require.NoError(t, err)
	require.Len(t, prompts, 3)

	final, err := s.FinalWeights()
	require.NoError(t, err)
	assert.Equal(t, []string{"ロケーション", "ごはん", "清潔感"}, final.Keys())
	assert.Equal(t, map[string]float64{"ロケーション": 1.0, "ごはん": 0.6, "清潔感": 0.7}, final.Map())

	recs := ranking.NewRecommender(cat, revs).Recommend(final)
	require.Len(t, recs, ranking.TopCafes)

	for i, rec := range recs {
		assert.LessOrEqual(t, len(rec.TopCategories), ranking.TopCategories)
		assert.LessOrEqual(t, len(rec.Reviews), ranking.TopReviews)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, rec.Score)
		}
	}

	// 珈琲館みどり: 0.9*1 + 0.9*0.6 + 0.6*0.7 = 1.86
	assert.Equal(t, "珈琲館みどり", recs[0].Name)
	assert.InDelta(t, 1.86, recs[0].Score, 1e-9)
	assert.Equal(t, []ranking.Excerpt{
		{Category: "ロケーション", Text: "駅から徒歩1分", Score: 0.9},
		{Category: "ごはん", Text: "ケーキが絶品", Score: 0.8},
	}, recs[0].Reviews)

	// 駅前ベーカリー: 1.0 + 0.42 + 0.35 = 1.77
	assert.Equal(t, "駅前ベーカリー", recs[1].Name)
	assert.Equal(t, "改札の目の前", recs[1].Reviews[0].Text)
}
