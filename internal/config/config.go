package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Speech     SpeechConfig
	Voice      VoiceConfig
	Session    SessionConfig
	Simulation SimulationConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	simulation, err := loadSimulationConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		AI:         ai,
		Speech:     speech,
		Voice:      voice,
		Session:    session,
		Simulation: simulation,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CatalogFile string
	// 单条实时连接每秒允许的入站消息数与突发量
	WSMessageRate  float64
	WSMessageBurst int
}

// loadServerConfig 解析服务器监听地址、目录文件与连接限速。
func loadServerConfig() (ServerConfig, error) {
	addr, err := parseListenAddr()
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		Addr:           addr,
		CatalogFile:    strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		WSMessageRate:  100,
		WSMessageBurst: 200,
	}

	if rate, err := parseOptionalFloatEnv("WS_MESSAGE_RATE"); err != nil {
		return ServerConfig{}, err
	} else if rate != nil {
		if *rate <= 0 {
			return ServerConfig{}, fmt.Errorf("invalid WS_MESSAGE_RATE value %v: must be positive", *rate)
		}
		cfg.WSMessageRate = *rate
	}

	if burst, err := parseOptionalIntEnv("WS_MESSAGE_BURST"); err != nil {
		return ServerConfig{}, err
	} else if burst != nil {
		if *burst <= 0 {
			return ServerConfig{}, fmt.Errorf("invalid WS_MESSAGE_BURST value %d: must be positive", *burst)
		}
		cfg.WSMessageBurst = *burst
	}

	return cfg, nil
}

func parseListenAddr() (string, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey              string
	AccessKey           string
	SecretKey           string
	Model               string
	VisionModel         string
	BaseURL             string
	Region              string
	Temperature         *float64
	TopP                *float64
	MaxTokens           *int
	EmotionLLMEnabled   bool
	EmotionHistoryLimit int
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	AppID         string
	AccessToken   string
	APIKey        string
	AccessKey     string
	SecretKey     string
	Region        string
	BaseURL       string
	ASRModel      string
	ASRLanguage   string
	ASRConcurrent bool // 并发版资源，默认小时版
	TTSVoice      string
	TTSSpeed      float32
	TTSVolume     float32
	TTSLanguage   string
	Timeout       int
	Enabled       bool
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	return c.newArkModel(ctx, c.Model)
}

// NewVisionModel 创建用于画面分析的多模态模型，未配置 ARK_VISION_MODEL 时复用 Model。
func (c AIConfig) NewVisionModel(ctx context.Context) (model.ChatModel, error) {
	name := c.VisionModel
	if name == "" {
		name = c.Model
	}
	return c.newArkModel(ctx, name)
}

func (c AIConfig) newArkModel(ctx context.Context, modelName string) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	emotionEnabled, err := parseBoolEnv("AI_EMOTION_LLM_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	emotionHistory := 6
	if historyOverride, err := parseOptionalIntEnv("AI_EMOTION_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if historyOverride != nil {
		emotionHistory = max(*historyOverride, 1)
	}

	return AIConfig{
		APIKey:              strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:           strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:           strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:               strings.TrimSpace(os.Getenv("Model")),
		VisionModel:         strings.TrimSpace(os.Getenv("ARK_VISION_MODEL")),
		BaseURL:             getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:              getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:         temperature,
		TopP:                topP,
		MaxTokens:           maxTokens,
		EmotionLLMEnabled:   emotionEnabled,
		EmotionHistoryLimit: emotionHistory,
	}, nil
}

func loadSpeechConfig() (SpeechConfig, error) {
	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	// 解析TTS速度和音量
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0) // 默认1.0倍速
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0) // 默认1.0音量
	if volume != nil {
		ttsVolume = *volume
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	accessKey := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("SPEECH_SECRET_KEY"))

	// 如果没有专门的语音配置，尝试使用AI配置
	if accessToken == "" && accessKey == "" {
		accessToken = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		apiKey = accessToken
		accessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		secretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
	}

	concurrent, err := parseBoolEnv("SPEECH_ASR_CONCURRENT", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	enabled := appID != "" && accessToken != ""

	return SpeechConfig{
		AppID:         appID,
		AccessToken:   accessToken,
		APIKey:        apiKey,
		AccessKey:     accessKey,
		SecretKey:     secretKey,
		Region:        getEnvOrDefault("SPEECH_REGION", "cn-beijing"),
		BaseURL:       getEnvOrDefault("SPEECH_BASE_URL", ""),
		ASRModel:      getEnvOrDefault("SPEECH_ASR_MODEL", ""),
		ASRLanguage:   getEnvOrDefault("SPEECH_ASR_LANGUAGE", "ko-KR"),
		ASRConcurrent: concurrent,
		TTSVoice:      getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		TTSSpeed:      ttsSpeed,
		TTSVolume:     ttsVolume,
		TTSLanguage:   getEnvOrDefault("SPEECH_TTS_LANGUAGE", "ko-KR"),
		Timeout:       timeoutSeconds,
		Enabled:       enabled,
	}, nil
}

// VoiceConfig 描述语音活动检测参数。
type VoiceConfig struct {
	ThresholdDB    float64
	SilenceTimeout time.Duration
	TickInterval   time.Duration
	SampleRate     int
}

func loadVoiceConfig() (VoiceConfig, error) {
	threshold, err := parseOptionalFloatEnv("VAD_THRESHOLD_DB")
	if err != nil {
		return VoiceConfig{}, err
	}
	thresholdDB := -50.0
	if threshold != nil {
		if *threshold >= 0 {
			return VoiceConfig{}, fmt.Errorf("invalid VAD_THRESHOLD_DB value %v: must be negative", *threshold)
		}
		thresholdDB = *threshold
	}

	silence, err := parseDurationMsEnv("VAD_SILENCE_TIMEOUT_MS", 1500*time.Millisecond)
	if err != nil {
		return VoiceConfig{}, err
	}

	tick, err := parseDurationMsEnv("VAD_TICK_MS", 50*time.Millisecond)
	if err != nil {
		return VoiceConfig{}, err
	}

	sampleRate := 16000
	if rate, err := parseOptionalIntEnv("VOICE_SAMPLE_RATE"); err != nil {
		return VoiceConfig{}, err
	} else if rate != nil && *rate > 0 {
		sampleRate = *rate
	}

	return VoiceConfig{
		ThresholdDB:    thresholdDB,
		SilenceTimeout: silence,
		TickInterval:   tick,
		SampleRate:     sampleRate,
	}, nil
}

// SessionConfig 描述会话层的超时与画面分析节奏。
type SessionConfig struct {
	RequestTimeout   time.Duration
	AnalysisInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	timeout, err := parseOptionalIntEnv("SESSION_REQUEST_TIMEOUT")
	if err != nil {
		return SessionConfig{}, err
	}
	requestTimeout := 30 * time.Second
	if timeout != nil {
		requestTimeout = time.Duration(*timeout) * time.Second
	}

	interval, err := parseDurationMsEnv("SCREEN_ANALYSIS_INTERVAL_MS", time.Second)
	if err != nil {
		return SessionConfig{}, err
	}

	return SessionConfig{RequestTimeout: requestTimeout, AnalysisInterval: interval}, nil
}

// SimulationConfig 控制无凭证时的模拟后端。
type SimulationConfig struct {
	Enabled         bool
	TranscribeDelay time.Duration
	RespondDelay    time.Duration
	AnalyzeDelay    time.Duration
	Seed            uint64
}

func loadSimulationConfig() (SimulationConfig, error) {
	enabled, err := parseBoolEnv("SIMULATION_ENABLED", true)
	if err != nil {
		return SimulationConfig{}, err
	}

	transcribe, err := parseDurationMsEnv("SIMULATION_TRANSCRIBE_DELAY_MS", 1500*time.Millisecond)
	if err != nil {
		return SimulationConfig{}, err
	}
	respond, err := parseDurationMsEnv("SIMULATION_RESPOND_DELAY_MS", 2000*time.Millisecond)
	if err != nil {
		return SimulationConfig{}, err
	}
	analyze, err := parseDurationMsEnv("SIMULATION_ANALYZE_DELAY_MS", 2000*time.Millisecond)
	if err != nil {
		return SimulationConfig{}, err
	}

	var seed uint64
	if raw := strings.TrimSpace(os.Getenv("SIMULATION_SEED")); raw != "" {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return SimulationConfig{}, fmt.Errorf("invalid SIMULATION_SEED value %q: %w", raw, err)
		}
	}

	return SimulationConfig{
		Enabled:         enabled,
		TranscribeDelay: transcribe,
		RespondDelay:    respond,
		AnalyzeDelay:    analyze,
		Seed:            seed,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}

// parseDurationMsEnv 解析毫秒整数，0 表示关闭对应功能。
func parseDurationMsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	ms, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return defaultValue, nil
	}
	if *ms < 0 {
		return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, *ms)
	}
	return time.Duration(*ms) * time.Millisecond, nil
}
