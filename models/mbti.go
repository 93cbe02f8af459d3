package models

// MBTI维度定义：四个维度对，每对概率和为1
var (
	// Traits 八个字母的固定顺序，也是概率向量的维度顺序
	Traits = [8]string{"E", "I", "S", "N", "T", "F", "J", "P"}

	// TraitPairs 四个维度对。平局时取每对的第一个字母（确定性规则）
	TraitPairs = [4][2]string{{"E", "I"}, {"S", "N"}, {"T", "F"}, {"J", "P"}}
)

// MBTITypes 16种MBTI类型
var MBTITypes = []string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

// MBTITypeDescriptions MBTI类型中文描述，附加在画像响应中
var MBTITypeDescriptions = map[string]string{
	"INTJ": "建筑师 - 富有想象力和战略性的思想家",
	"INTP": "逻辑学家 - 具有创造性的发明家",
	"ENTJ": "指挥官 - 大胆、富有想象力的强大领导者",
	"ENTP": "辩论家 - 聪明好奇的思想家",
	"INFJ": "提倡者 - 安静而神秘的鼓舞他人",
	"INFP": "调停者 - 诗意善良的利他主义者",
	"ENFJ": "主人公 - 富有魅力鼓舞他人的领导者",
	"ENFP": "竞选者 - 热情创造性的自由精神",
	"ISTJ": "物流师 - 实际事实的可靠工作者",
	"ISFJ": "守护者 - 非常专注的温暖保护者",
	"ESTJ": "总经理 - 优秀的管理者",
	"ESFJ": "执政官 - 极有同情心的受欢迎的人",
	"ISTP": "鉴赏家 - 大胆而实际的实验者",
	"ISFP": "探险家 - 灵活迷人的艺术家",
	"ESTP": "企业家 - 聪明、精力充沛的感知者",
	"ESFP": "表演者 - 自发的、精力充沛的娱乐者",
}

// Probabilities MBTI八维概率分布，每对维度概率和为1
type Probabilities struct {
	E float64 `json:"E"`
	I float64 `json:"I"`
	S float64 `json:"S"`
	N float64 `json:"N"`
	T float64 `json:"T"`
	F float64 `json:"F"`
	J float64 `json:"J"`
	P float64 `json:"P"`
}

// NeutralProbabilities 中性先验分布（全部0.5，置信度0）
func NeutralProbabilities() Probabilities {
	return Probabilities{E: 0.5, I: 0.5, S: 0.5, N: 0.5, T: 0.5, F: 0.5, J: 0.5, P: 0.5}
}

// Get 按字母取概率值，未知字母返回0.5
func (p Probabilities) Get(trait string) float64 {
	switch trait {
	case "E":
		return p.E
	case "I":
		return p.I
	case "S":
		return p.S
	case "N":
		return p.N
	case "T":
		return p.T
	case "F":
		return p.F
	case "J":
		return p.J
	case "P":
		return p.P
	}
	return 0.5
}

// Set 按字母设置概率值
func (p *Probabilities) Set(trait string, v float64) {
	switch trait {
	case "E":
		p.E = v
	case "I":
		p.I = v
	case "S":
		p.S = v
	case "N":
		p.N = v
	case "T":
		p.T = v
	case "F":
		p.F = v
	case "J":
		p.J = v
	case "P":
		p.P = v
	}
}

// Vector 返回按Traits顺序的8维向量
func (p Probabilities) Vector() []float64 {
	return []float64{p.E, p.I, p.S, p.N, p.T, p.F, p.J, p.P}
}

// NormalizePairs 归一化每对维度，确保每对概率和为1.0
// 分析器返回的分布不保证归一化，使用前必须调用
func (p Probabilities) NormalizePairs() Probabilities {
	normalized := p
	for _, pair := range TraitPairs {
		total := normalized.Get(pair[0]) + normalized.Get(pair[1])
		if total > 0 {
			normalized.Set(pair[0], normalized.Get(pair[0])/total)
			normalized.Set(pair[1], normalized.Get(pair[1])/total)
		} else {
			normalized.Set(pair[0], 0.5)
			normalized.Set(pair[1], 0.5)
		}
	}
	return normalized
}

// DeriveType 根据概率分布推导4字母MBTI类型
// 平局（恰好0.5/0.5）取每对的第一个字母
func (p Probabilities) DeriveType() string {
	mbtiType := ""
	for _, pair := range TraitPairs {
		if p.Get(pair[0]) >= p.Get(pair[1]) {
			mbtiType += pair[0]
		} else {
			mbtiType += pair[1]
		}
	}
	return mbtiType
}

// ConfidenceScores 每对维度的置信度，2*|p-0.5|，0表示完全不确定，1表示完全确定
func (p Probabilities) ConfidenceScores() ConfidenceScores {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	return ConfidenceScores{
		EI: 2 * abs(p.E-0.5),
		SN: 2 * abs(p.S-0.5),
		TF: 2 * abs(p.T-0.5),
		JP: 2 * abs(p.J-0.5),
	}
}

// ConfidenceScores 四个维度对的置信度
type ConfidenceScores struct {
	EI float64 `json:"E_I"`
	SN float64 `json:"S_N"`
	TF float64 `json:"T_F"`
	JP float64 `json:"J_P"`
}
