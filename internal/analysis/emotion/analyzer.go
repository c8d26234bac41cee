package emotion

import (
	"math"
	"strings"
)

// Label 表示TTS可以接受的情绪标签。
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Excited  Label = "excited"
	Tender   Label = "tender"
	Comfort  Label = "comfort"
	Magnetic Label = "magnetic"
)

// Decision 给出情绪识别结果以及推荐情绪强度。
type Decision struct {
	Emotion Label
	Scale   float32
	Score   int
}

var keywordBuckets = map[Label][]string{
	Happy: {
		"좋아", "기뻐", "행복", "다행", "고마워", "감사", "ㅋㅋ", "하하", "재밌", "즐거", "이겼", "승리",
		"잘했", "nice", "great", "thanks", "thank you", "love",
	},
	Sad: {
		"슬퍼", "우울", "속상", "아쉽", "졌어", "졌다", "패배", "망했", "힘들", "외로", "눈물", "ㅠㅠ", "ㅜㅜ",
		"sad", "lost", "upset", "hurt", "depressed",
	},
	Angry: {
		"화나", "짜증", "열받", "빡쳐", "미치겠", "답답", "억울", "트롤", "어이없",
		"angry", "furious", "mad", "annoyed", "rage",
	},
	Excited: {
		"대박", "최고", "와우", "우와", "미쳤다", "쩐다", "레전드", "기대", "신난", "펜타킬", "치킨",
		"wow", "amazing", "awesome", "hype", "can't wait", "insane",
	},
	Tender: {
		"천천히", "차분", "조용히", "부드럽", "편하게", "여유", "살살",
		"soft", "gentle", "calm", "slowly",
	},
	Comfort: {
		"괜찮아", "걱정 마", "걱정마", "힘내", "응원", "이해해", "옆에 있", "다음엔", "다음 판", "충분히 잘",
		"don't worry", "it's okay", "you got this", "take it easy", "i'm here",
	},
	Magnetic: {
		"중요", "반드시", "꼭", "주의", "집중", "핵심", "조심", "위험", "기억해",
		"focus", "critical", "careful", "important", "must",
	},
}

// labelOrder 决定同分时的优先级。
var labelOrder = []Label{Comfort, Excited, Happy, Sad, Angry, Magnetic, Tender}

var punctuationBoost = map[Label]int{
	Happy:   2,
	Excited: 3,
}

// Analyze 根据用户话语与AI回复推断应使用的语音情绪。
func Analyze(userUtterance, aiUtterance string) Decision {
	userScore := scoreText(userUtterance)
	aiScore := scoreText(aiUtterance)

	finalScore := aiScore
	// 若AI回复缺少明显情感，则根据用户情绪进行映射，从而提供安抚或共情。
	if finalScore.Score == 0 && userScore.Score > 0 {
		finalScore = coerceEmotionFromUser(userScore)
	}

	if finalScore.Score == 0 {
		return Decision{Emotion: Neutral, Scale: 3, Score: 0}
	}

	scale := 2 + float32(finalScore.Score)/4 // 基础为2，强度随得分提升
	if finalScore.Emotion == Excited {
		scale += 1
	}
	if finalScore.Emotion == Magnetic {
		scale = float32(math.Min(4.0, float64(scale)))
	}
	if finalScore.Emotion == Comfort || finalScore.Emotion == Tender {
		scale = float32(math.Min(3.5, float64(scale)))
	}

	if scale < 1 {
		scale = 1
	}
	if scale > 5 {
		scale = 5
	}

	return Decision{Emotion: finalScore.Emotion, Scale: scale, Score: finalScore.Score}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral, Scale: 0, Score: 0}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if word == "" {
				continue
			}
			if strings.Contains(normalized, strings.ToLower(word)) {
				scores[label] += 3
			}
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Happy] += punctuationBoost[Happy]
		}
	}

	bestLabel := Neutral
	bestScore := 0
	for _, label := range labelOrder {
		if s := scores[label]; s > bestScore {
			bestScore = s
			bestLabel = label
		}
	}

	if bestScore == 0 {
		return Decision{Emotion: Neutral, Score: 0, Scale: 0}
	}

	return Decision{Emotion: bestLabel, Score: bestScore, Scale: 0}
}

func coerceEmotionFromUser(user Decision) Decision {
	switch user.Emotion {
	case Sad:
		return Decision{Emotion: Comfort, Score: user.Score}
	case Angry:
		return Decision{Emotion: Magnetic, Score: user.Score}
	case Excited:
		return Decision{Emotion: Excited, Score: user.Score}
	case Happy:
		return Decision{Emotion: Happy, Score: user.Score}
	case Tender, Comfort:
		return Decision{Emotion: Tender, Score: user.Score}
	default:
		return user
	}
}
