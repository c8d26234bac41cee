package session

import "errors"

var (
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionClosed            = errors.New("session closed")
	ErrGameNotFound             = errors.New("game not found")
	ErrGameLocked               = errors.New("game requires premium")
	ErrPersonaNotFound          = errors.New("persona not found")
	ErrInvalidTransition        = errors.New("invalid voice state transition")
	ErrRequestInFlight          = errors.New("a response is already being generated")
	ErrTranscriptionFailed      = errors.New("transcription failed")
	ErrResponseGenerationFailed = errors.New("response generation failed")
	ErrScreenAnalysisFailed     = errors.New("screen analysis failed")
)

// User-facing texts appended to the conversation log.
const (
	welcomeTemplate        = "안녕하세요! %s에서 당신의 AI 게임 친구 %s입니다. 어떻게 도와드릴까요?"
	responseErrorText      = "죄송합니다, 응답을 생성하는 중에 오류가 발생했습니다. 다시 시도해 주세요."
	transcriptionErrorText = "죄송합니다, 음성을 인식하지 못했습니다. 다시 말씀해 주세요."
	deviceUnavailableText  = "마이크에 접근할 수 없습니다. 텍스트 입력은 계속 사용할 수 있습니다."
	voiceBusyText          = "이전 질문에 답하는 중이라 방금 말씀을 듣지 못했어요. 답변이 끝나면 다시 말씀해 주세요."
	screenStartText        = "화면 분석을 시작합니다. 게임 화면을 캡처하고 있습니다..."
	screenErrorText        = "화면 분석 중 오류가 발생했습니다. 다시 시도해 주세요."
	screenStopText         = "화면 분석을 중지했습니다."
)
