package persona

// Style is the response style a persona keeps throughout a conversation.
type Style string

const (
	StyleAnalytical  Style = "analytical"
	StyleCasual      Style = "casual"
	StyleEncouraging Style = "encouraging"
)

// Persona captures the AI friend attributes exposed to the frontend.
type Persona struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Personality string `json:"personality" toml:"personality"`
	Description string `json:"description" toml:"description"`
	Avatar      string `json:"avatar" toml:"avatar"`
	Color       string `json:"color" toml:"color"`
	Style       Style  `json:"style" toml:"style"`
	VoiceID     string `json:"voiceId,omitempty" toml:"voice_id"`
}

// Seed provides the default personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "luka",
			Name:        "루카",
			Personality: "분석형",
			Description: "게임 플레이를 분석하고 전략적인 조언을 제공하는 분석가",
			Avatar:      "/placeholder.svg?height=150&width=150",
			Color:       "blue",
			Style:       StyleAnalytical,
			VoiceID:     "luka-analyst",
		},
		{
			ID:          "monday",
			Name:        "먼데이",
			Personality: "현실친구형",
			Description: "실제 게임 친구처럼 편안하게 대화하고 농담도 주고받는 친구",
			Avatar:      "/placeholder.svg?height=150&width=150",
			Color:       "green",
			Style:       StyleCasual,
			VoiceID:     "monday-buddy",
		},
		{
			ID:          "mint",
			Name:        "민트",
			Personality: "긍정형",
			Description: "항상 긍정적이고 격려해주며 게임을 즐길 수 있도록 도와주는 친구",
			Avatar:      "/placeholder.svg?height=150&width=150",
			Color:       "purple",
			Style:       StyleEncouraging,
			VoiceID:     "mint-cheer",
		},
	}
}
