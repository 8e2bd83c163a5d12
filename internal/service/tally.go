package service

import (
	"sort"

	"video_label_backend/internal/model"
)

// VirtualResponse 合成票：不落库的注入投票，用于预演或模型智能体输入
type VirtualResponse struct {
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

// VoteTally 候选答案值到累计权重的映射
type VoteTally map[string]float64

// TallyInput 单个问题的计票输入。UserWeights 是调用方在同一事务内解析好的
// 不可变权重快照（显式覆盖合并角色权重），计票过程不做任何存储访问。
type TallyInput struct {
	Question      *model.Question
	Answers       []model.AnnotatorAnswer
	UserWeights   map[uint]float64
	OptionWeights map[string]float64 // 复核场景的选项权重覆盖，按答案值索引
	Virtual       []VirtualResponse
}

// ComputeTally 加权计票：contribution = user_weight * option_weight。
// 纯函数，给定输入输出确定，可能返回空表。
func ComputeTally(in TallyInput) VoteTally {
	tally := make(VoteTally)

	for _, answer := range in.Answers {
		userWeight := 1.0
		if w, ok := in.UserWeights[answer.UserID]; ok {
			userWeight = w
		}
		tally[answer.Value] += userWeight * optionWeight(in, answer.Value)
	}

	for _, v := range in.Virtual {
		tally[v.Value] += v.Weight * optionWeight(in, v.Value)
	}

	return tally
}

func optionWeight(in TallyInput, value string) float64 {
	// 自由文本没有选项权重概念
	if in.Question != nil && in.Question.Type == model.FreeText {
		return 1.0
	}
	if w, ok := in.OptionWeights[value]; ok {
		return w
	}
	if in.Question != nil {
		return in.Question.OptionWeight(value)
	}
	return 1.0
}

// FailReason 共识失败原因。失败是结构化结果而非 error，
// 调用方据此区分"无事可做"与"出错"。
type FailReason string

const (
	FailNone           FailReason = ""
	FailNoVotes        FailReason = "no_votes"
	FailBelowThreshold FailReason = "below_threshold"
)

// ConsensusResult 阈值判定结果
type ConsensusResult struct {
	OK         bool       `json:"ok"`
	Value      string     `json:"value"`
	Percentage float64    `json:"percentage"`
	Reason     FailReason `json:"reason,omitempty"`
}

// DefaultThreshold 未显式指定时的通过百分比
const DefaultThreshold = 100.0

// DecideConsensus 从计票表选出胜者并做阈值判定。
// 平票规则：权重相同的候选取字典序最小的值，保证跨实现确定性。
func DecideConsensus(tally VoteTally, threshold float64) ConsensusResult {
	total := 0.0
	for _, w := range tally {
		total += w
	}
	if total == 0 {
		return ConsensusResult{Reason: FailNoVotes}
	}

	values := make([]string, 0, len(tally))
	for v := range tally {
		values = append(values, v)
	}
	sort.Strings(values)

	winner := values[0]
	for _, v := range values[1:] {
		if tally[v] > tally[winner] {
			winner = v
		}
	}

	percentage := tally[winner] / total * 100
	if percentage < threshold {
		return ConsensusResult{
			Value:      winner,
			Percentage: percentage,
			Reason:     FailBelowThreshold,
		}
	}

	return ConsensusResult{OK: true, Value: winner, Percentage: percentage}
}
