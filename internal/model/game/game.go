package game

// Game is an immutable catalog entry the user can play with a persona.
type Game struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Description string `json:"description" toml:"description"`
	Image       string `json:"image" toml:"image"`
	IsPremium   bool   `json:"isPremium" toml:"premium"`
	Color       string `json:"color,omitempty" toml:"color"`
}

// Seed provides the default game catalog.
func Seed() []Game {
	return []Game{
		{
			ID:          "minesweeper",
			Name:        "지뢰찾기",
			Description: "지뢰를 피해 모든 칸을 여는 클래식 퍼즐 게임",
			Image:       "/placeholder.svg?height=200&width=300",
			IsPremium:   false,
			Color:       "blue",
		},
		{
			ID:          "tft",
			Name:        "전략적 팀 전투 (TFT)",
			Description: "챔피언과 시너지를 활용한 자동 전투 전략 게임",
			Image:       "/placeholder.svg?height=200&width=300",
			IsPremium:   false,
			Color:       "purple",
		},
		{
			ID:          "stardew",
			Name:        "스타듀 밸리",
			Description: "농장 경영과 인간관계를 발전시키는 시뮬레이션 RPG",
			Image:       "/placeholder.svg?height=200&width=300",
			IsPremium:   true,
			Color:       "green",
		},
		{
			ID:          "minecraft",
			Name:        "마인크래프트",
			Description: "건축과 탐험이 가능한 오픈 월드 샌드박스 게임",
			Image:       "/placeholder.svg?height=200&width=300",
			IsPremium:   true,
			Color:       "red",
		},
	}
}
