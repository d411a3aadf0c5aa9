package relevance

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/agents"
)

func newTestScorer(seed int64) *Scorer {
	return NewScorer(agents.Default(), rand.New(rand.NewSource(seed)))
}

func TestScoreBounds(t *testing.T) {
	messages := []string{
		"",
		"随便聊聊",
		"评价 批评 风格 评论 鉴赏 美学 艺术性 表现力 构图 色彩", // every Art Critic keyword
		"这幅画的色彩和构图很有历史感",
	}
	titles := []string{"Art Critic", "Art Historian", "VTS", "no-such-agent"}

	for seed := int64(0); seed < 50; seed++ {
		s := newTestScorer(seed)
		for _, msg := range messages {
			for _, title := range titles {
				got := s.Score(msg, title)
				if got < 0 || got > 1 {
					t.Fatalf("Score(%q, %q) = %v, want within [0,1]", msg, title, got)
				}
			}
		}
	}
}

func TestScoreDeterministicForSeed(t *testing.T) {
	first := newTestScorer(42).Score("这幅画的色彩很好", "Art Critic")
	second := newTestScorer(42).Score("这幅画的色彩很好", "Art Critic")
	if first != second {
		t.Errorf("same seed produced different scores: %v vs %v", first, second)
	}
}

func TestScoreCountsDistinctKeywordsOnce(t *testing.T) {
	// Scorers with the same seed draw the same perturbation on their first
	// call, so score differences isolate the keyword contribution.
	const seed = 7
	none := newTestScorer(seed).Score("无关内容", "Art Critic")
	two := newTestScorer(seed).Score("色彩与构图", "Art Critic")
	repeated := newTestScorer(seed).Score("色彩色彩色彩，构图构图", "Art Critic")

	if diff := two - none; diff < 0.199 || diff > 0.201 {
		t.Errorf("two keyword hits added %v, want 0.2", diff)
	}
	if two != repeated {
		t.Errorf("repeated keywords changed the score: %v vs %v", two, repeated)
	}
}

func TestScoreBaseClampedBeforePerturbation(t *testing.T) {
	// 8+ distinct hits exceed the 1.0 cap, so adding more keywords cannot
	// raise the score further.
	const seed = 11
	eight := newTestScorer(seed).Score("评价批评风格评论鉴赏美学艺术性表现力", "Art Critic")
	ten := newTestScorer(seed).Score("评价批评风格评论鉴赏美学艺术性表现力构图色彩", "Art Critic")
	if eight != ten {
		t.Errorf("clamped scores differ: %v vs %v", eight, ten)
	}
}

func TestRankIsPermutationSortedDescending(t *testing.T) {
	titles := []string{"Art Historian", "Art Critic", "Painter", "General Audience"}
	s := newTestScorer(3)
	ranked := s.Rank("这幅画的色彩和构图很有历史感", titles)

	if len(ranked) != len(titles) {
		t.Fatalf("Rank returned %d entries, want %d", len(ranked), len(titles))
	}
	seen := make(map[string]bool)
	for _, r := range ranked {
		seen[r.Title] = true
	}
	for _, title := range titles {
		if !seen[title] {
			t.Errorf("Rank dropped %q", title)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Errorf("Rank not descending at %d: %v < %v", i, ranked[i-1].Score, ranked[i].Score)
		}
	}
}

func TestRankGuaranteedOrderingWithWideMargin(t *testing.T) {
	// Six Art Critic hits (0.9), three Art Historian hits (0.6), zero
	// General Audience hits (0.3): gaps of 0.3 exceed the maximum
	// perturbation spread, so the order is the same for every seed.
	msg := "请评价批评一下风格，评论鉴赏其美学，结合历史年代时期"
	titles := []string{"General Audience", "Art Historian", "Art Critic"}

	for seed := int64(0); seed < 20; seed++ {
		ranked := newTestScorer(seed).Rank(msg, titles)
		got := []string{ranked[0].Title, ranked[1].Title, ranked[2].Title}
		want := []string{"Art Critic", "Art Historian", "General Audience"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("seed %d: rank %d = %q, want %q", seed, i, got[i], want[i])
			}
		}
	}
}

func TestRankHistoricalColorScenario(t *testing.T) {
	// 色彩+构图 give Art Critic two hits against Art Historian's one, so
	// the critic should lead for the overwhelming majority of seeds. The
	// margin (0.1) is within perturbation range, so assert a majority
	// across seeds rather than any single draw.
	msg := "这幅画的色彩和构图很有历史感"
	titles := []string{"Art Critic", "Art Historian"}

	criticFirst := 0
	const seeds = 200
	for seed := int64(0); seed < seeds; seed++ {
		ranked := newTestScorer(seed).Rank(msg, titles)
		if ranked[0].Title == "Art Critic" {
			criticFirst++
		}
	}
	if criticFirst < seeds*3/4 {
		t.Errorf("Art Critic ranked first in only %d/%d seeds", criticFirst, seeds)
	}
}

func TestScoreUnknownAgentUsesBaseOnly(t *testing.T) {
	const seed = 13
	unknown := newTestScorer(seed).Score("评价 色彩 历史", "no-such-agent")
	empty := newTestScorer(seed).Score("", "no-such-agent")
	if unknown != empty {
		t.Errorf("unknown agent scored differently by message: %v vs %v", unknown, empty)
	}
}

func ExampleScorer_Rank() {
	s := NewScorer(agents.Default(), rand.New(rand.NewSource(1)))
	ranked := s.Rank("请评价批评一下风格，评论鉴赏其美学", []string{"General Audience", "Art Critic"})
	fmt.Println(ranked[0].Title)
	// Output: Art Critic
}
