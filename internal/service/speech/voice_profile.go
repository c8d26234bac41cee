package speech

import (
	"strings"

	"github.com/zhouzirui/game-friend/backend/internal/analysis/emotion"
)

// voiceAliases 将角色配置中的音色别名映射到火山引擎音色 ID。
var voiceAliases = map[string]string{
	"luka-analyst":              "zh_male_yourougongzi_emo_v2_mars_bigtts",
	"monday-buddy":              "zh_male_junlangnanyou_emo_v2_mars_bigtts",
	"mint-cheer":                "zh_female_tianxinxiaomei_emo_v2_mars_bigtts",
	"en_default":                "en_female_amy_jupiter_bigtts",
	"zh_male_m392_conversation": "zh_male_M392_conversation_wvae_bigtts",
}

var defaultEmotionLabels = map[emotion.Label]string{
	emotion.Happy:    "happy",
	emotion.Sad:      "sad",
	emotion.Angry:    "angry",
	emotion.Excited:  "excited",
	emotion.Tender:   "tender",
	emotion.Comfort:  "comfort",
	emotion.Magnetic: "magnetic",
}

var emotionVoiceWhitelist = map[string]struct{}{
	"zh_male_junlangnanyou_emo_v2_mars_bigtts":    {},
	"zh_male_yourougongzi_emo_v2_mars_bigtts":     {},
	"zh_male_aojiaobazong_emo_v2_mars_bigtts":     {},
	"zh_female_gaolengyujie_emo_v2_mars_bigtts":   {},
	"zh_female_tianxinxiaomei_emo_v2_mars_bigtts": {},
	"zh_female_linjuayi_emo_v2_mars_bigtts":       {},
	"en_female_candice_emo_v2_mars_bigtts":        {},
	"en_female_skye_emo_v2_mars_bigtts":           {},
	"en_male_glen_emo_v2_mars_bigtts":             {},
	"en_male_sylus_emo_v2_mars_bigtts":            {},
	"en_male_corey_emo_v2_mars_bigtts":            {},
}

// NormalizeVoiceAlias 返回别名对应的音色 ID，未知别名原样返回。
func NormalizeVoiceAlias(voice string) string {
	voice = strings.TrimSpace(voice)
	if mapped, ok := voiceAliases[strings.ToLower(voice)]; ok {
		return mapped
	}
	return voice
}

// ComputeEmotionParameters 根据音色与情绪分析结果计算TTS情绪参数。
func ComputeEmotionParameters(voice string, decision emotion.Decision) (enable bool, label string, scale float32) {
	if decision.Emotion == emotion.Neutral || decision.Score <= 0 {
		return false, "", 0
	}

	if !supportsEmotion(voice) {
		return false, "", 0
	}

	mapped, ok := defaultEmotionLabels[decision.Emotion]
	if !ok {
		return false, "", 0
	}

	scale = decision.Scale
	if scale <= 0 {
		scale = 3
	}

	return true, mapped, min(max(scale, 1), 5)
}

func supportsEmotion(voice string) bool {
	normalized := strings.ToLower(strings.TrimSpace(voice))
	if normalized == "" {
		return false
	}

	if _, ok := emotionVoiceWhitelist[normalized]; ok {
		return true
	}

	return strings.Contains(normalized, "_emo_")
}
