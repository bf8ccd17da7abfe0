// Package record は学習セッション記録の集計ロジックを提供する。
package record

import (
	"sort"

	"github.com/hufs-wider/wider/internal/model"
)

// monthLayout はヒストグラムの月キーの書式。
const monthLayout = "2006-01"

// LatestPerTopic はトピックごとにセッションIDが最大の記録を1件ずつ選び、
// started_at降順（同時刻はセッションID降順）で返す。
//
// セッションIDの大小は文字列として比較する。IDの順序と開始時刻の順序が
// 食い違う場合でもIDによる選択を優先する。
func LatestPerTopic(sessions []*model.SessionRecord) []*model.SessionRecord {
	latest := make(map[string]*model.SessionRecord)
	for _, s := range sessions {
		if s == nil {
			continue
		}
		cur, ok := latest[s.Topic]
		if !ok || s.SessionID > cur.SessionID {
			latest[s.Topic] = s
		}
	}

	result := make([]*model.SessionRecord, 0, len(latest))
	for _, s := range latest {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.SessionID > b.SessionID
	})
	return result
}

type histogramKey struct {
	month string
	level int
}

// MonthlyHistogram は完了済みセッションを（完了月, Bloomレベル）ごとに数え上げる。
// completed_atがnilのセッションは除外する。月はUTCで判定し、
// 結果は月昇順・Bloomレベル昇順で返す。
func MonthlyHistogram(sessions []*model.SessionRecord) []model.MonthlyBloomCount {
	counts := make(map[histogramKey]int)
	for _, s := range sessions {
		if s == nil || s.CompletedAt == nil {
			continue
		}
		key := histogramKey{
			month: s.CompletedAt.UTC().Format(monthLayout),
			level: s.BloomLevel,
		}
		counts[key]++
	}

	result := make([]model.MonthlyBloomCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, model.MonthlyBloomCount{
			Month:      k.month,
			BloomLevel: k.level,
			Count:      n,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Month != result[j].Month {
			return result[i].Month < result[j].Month
		}
		return result[i].BloomLevel < result[j].BloomLevel
	})
	return result
}
