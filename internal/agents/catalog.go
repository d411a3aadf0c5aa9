// Package agents holds the immutable catalog of art-appreciation personas.
package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Agent is one catalog entry tying a display title to a remote bot identity.
// Keywords carry the persona's vocabulary used for relevance ranking.
type Agent struct {
	Title    string   `json:"title"`
	BotID    string   `json:"botId"`
	Keywords []string `json:"keywords,omitempty"`
}

// Catalog is a fixed set of agents keyed by display title.
// It is loaded once at startup and never mutated afterwards.
type Catalog struct {
	byTitle map[string]Agent
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return newCatalog([]Agent{
		{
			Title: "Art Critic", BotID: "7524345845467299855",
			Keywords: []string{"评价", "批评", "风格", "评论", "鉴赏", "美学", "艺术性", "表现力", "构图", "色彩"},
		},
		{
			Title: "General Audience", BotID: "7524345845467136015",
			Keywords: []string{"感受", "喜欢", "印象", "情感", "联想", "美丽", "有趣", "吸引", "故事", "想象"},
		},
		{
			Title: "Art Theorist", BotID: "7524344850851168291",
			Keywords: []string{"理论", "概念", "原理", "学派", "思想", "哲学", "意义", "符号", "解读", "分析"},
		},
		{
			Title: "Art Historian", BotID: "7524342395841396736",
			Keywords: []string{"历史", "年代", "时期", "流派", "背景", "演变", "影响", "传统", "文化", "年份"},
		},
		{
			Title: "Painter", BotID: "7524341444501782567",
			Keywords: []string{"技法", "材料", "笔触", "线条", "创作", "灵感", "表达", "画布", "颜料", "光影"},
		},
		{
			Title: "Art Collector", BotID: "7524340821945630783",
			Keywords: []string{"收藏", "价值", "市场", "拍卖", "投资", "真伪", "保存", "修复", "珍品", "稀有"},
		},
		{Title: "VTS", BotID: "7524342433057046574"},
		{Title: "Artagent", BotID: "7527602426371751977"},
	})
}

// LoadFile reads a catalog from a JSON file containing a list of agents.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents config: %w", err)
	}
	var list []Agent
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse agents config: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("agents config %s defines no agents", path)
	}
	for _, a := range list {
		if a.Title == "" || a.BotID == "" {
			return nil, fmt.Errorf("agents config %s: every agent needs a title and a botId", path)
		}
	}
	return newCatalog(list), nil
}

func newCatalog(list []Agent) *Catalog {
	byTitle := make(map[string]Agent, len(list))
	for _, a := range list {
		byTitle[a.Title] = a
	}
	return &Catalog{byTitle: byTitle}
}

// Lookup returns the agent registered under the given display title.
func (c *Catalog) Lookup(title string) (Agent, bool) {
	a, ok := c.byTitle[title]
	return a, ok
}

// Keywords returns the keyword list for a title, empty for unknown agents.
func (c *Catalog) Keywords(title string) []string {
	return c.byTitle[title].Keywords
}

// Titles returns all registered display titles in sorted order.
func (c *Catalog) Titles() []string {
	titles := make([]string, 0, len(c.byTitle))
	for t := range c.byTitle {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// Validate checks that every title resolves to a known agent and that the
// set is non-empty. It is called before any remote work is started.
func (c *Catalog) Validate(titles []string) error {
	if len(titles) == 0 {
		return fmt.Errorf("需要提供至少一个智能体")
	}
	for _, t := range titles {
		if _, ok := c.byTitle[t]; !ok {
			return fmt.Errorf("未找到智能体: %s", t)
		}
	}
	return nil
}
