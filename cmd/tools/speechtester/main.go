package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/config"
	speechmodel "github.com/zhouzirui/game-friend/backend/internal/model/speech"
	"github.com/zhouzirui/game-friend/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: asr, tts 或 vad")
	audioPath := flag.String("audio", "", "ASR/VAD 输入音频文件路径 (PCM16 单声道或 WAV)")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认根据格式自动生成)")
	format := flag.String("format", "", "音频格式 (ASR: 输入格式; TTS: 输出格式)")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	voice := flag.String("voice", "", "TTS 声音 ID 或角色别名，默认使用配置中的 TTSVoice")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	transcribe := flag.Bool("transcribe", false, "VAD 模式下对每个语音片段调用 ASR")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" && *mode != "vad" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr、-mode=tts 或 -mode=vad 指定测试模式")
	}

	needsSpeech := *mode != "vad" || *transcribe
	if needsSpeech && !cfg.Speech.Enabled {
		log.Fatal("语音服务未启用，请先在环境变量中配置 SPEECH_* 凭证")
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	svc := speech.NewService(cfg.Speech)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, svc, cfg, sessionID, *audioPath, *format, *language)
	case "tts":
		runTTS(ctx, svc, cfg, sessionID, *text, *voice, *format, *language, *outputPath)
	case "vad":
		runVAD(ctx, svc, cfg, sessionID, *audioPath, *transcribe)
	}
}

func runASR(ctx context.Context, svc *speech.Service, cfg *config.Config, sessionID, audioPath, format, language string) {
	if audioPath == "" {
		log.Fatal("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}

	if format == "" {
		format = inferFormat(audioPath)
	}
	if language == "" {
		language = cfg.Speech.ASRLanguage
	}

	log.Printf("开始进行 ASR 测试: session=%s format=%s language=%s bytes=%d", sessionID, format, language, len(data))

	resp, err := svc.ASR().Recognize(ctx, &speechmodel.ASRRequest{
		SessionID:  sessionID,
		Audio:      data,
		Format:     format,
		SampleRate: cfg.Voice.SampleRate,
		Language:   language,
	})
	if err != nil {
		log.Fatalf("ASR 调用失败: %v", err)
	}

	log.Printf("ASR 识别成功: text=%q duration=%dms", resp.Text, resp.Duration)
}

func runTTS(ctx context.Context, svc *speech.Service, cfg *config.Config, sessionID, text, voice, format, language, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}

	if voice == "" {
		voice = cfg.Speech.TTSVoice
	}
	voice = speech.NormalizeVoiceAlias(voice)

	if language == "" {
		language = cfg.Speech.TTSLanguage
	}
	if format == "" {
		format = "mp3"
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	log.Printf("开始进行 TTS 测试: session=%s voice=%s format=%s", sessionID, voice, format)

	resp, err := svc.TTS().Synthesize(ctx, &speechmodel.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Format:    format,
		Language:  language,
	})
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Printf("TTS 合成成功: voice=%s 输出文件 %s, 时长=%dms", resp.Voice, outputPath, resp.Duration)
}

// runVAD 用配置的检测参数离线回放音频，打印检测到的语音片段。
func runVAD(ctx context.Context, svc *speech.Service, cfg *config.Config, sessionID, audioPath string, transcribe bool) {
	if audioPath == "" {
		log.Fatal("VAD 模式需要通过 -audio 指定音频文件路径")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}
	if inferFormat(audioPath) == "wav" {
		data = stripWAVHeader(data)
	}

	monitorCfg := audio.MonitorConfig{
		ThresholdDB:    cfg.Voice.ThresholdDB,
		SilenceTimeout: cfg.Voice.SilenceTimeout,
		TickInterval:   cfg.Voice.TickInterval,
	}
	segments := detectSegments(data, cfg.Voice.SampleRate, monitorCfg)
	log.Printf("VAD 回放完成: threshold=%.1fdB silence=%s tick=%s 片段数=%d",
		monitorCfg.ThresholdDB, monitorCfg.SilenceTimeout, monitorCfg.TickInterval, len(segments))

	for i, seg := range segments {
		log.Printf("片段 #%d: %s - %s (%s)", i+1, seg.Start, seg.End, seg.End-seg.Start)
		if !transcribe {
			continue
		}

		resp, err := svc.ASR().Recognize(ctx, &speechmodel.ASRRequest{
			SessionID:  fmt.Sprintf("%s-%d", sessionID, i+1),
			Audio:      seg.slice(data, cfg.Voice.SampleRate),
			Format:     audio.FormatPCM16,
			SampleRate: cfg.Voice.SampleRate,
			Language:   cfg.Speech.ASRLanguage,
		})
		if err != nil {
			log.Printf("片段 #%d 识别失败: %v", i+1, err)
			continue
		}
		log.Printf("片段 #%d 识别结果: %q", i+1, resp.Text)
	}
}

func inferFormat(path string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case "wav":
		return "wav"
	default:
		return audio.FormatPCM16
	}
}
