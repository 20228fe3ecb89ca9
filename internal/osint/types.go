package osint

import "sovereign-sentinel/internal/config"

// Topic 是一个扫描主题，Sector 为空表示只参与全局评分。
type Topic struct {
	Query  string `json:"query"`
	Sector string `json:"sector,omitempty"`
}

// TopicsFromConfig 过滤掉空查询。
func TopicsFromConfig(cfgs []config.TopicConfig) []Topic {
	topics := make([]Topic, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Query == "" {
			continue
		}
		topics = append(topics, Topic{Query: c.Query, Sector: c.Sector})
	}
	return topics
}

// Signal 是一条搜索结果。
type Signal struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// TopicSignals 是某个主题下收集到的全部信号。
type TopicSignals struct {
	Topic   Topic    `json:"topic"`
	Signals []Signal `json:"signals"`
}
