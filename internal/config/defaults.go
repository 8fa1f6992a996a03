package config

const (
	defaultStateDir            = "~/.local/share/polyscribe"
	defaultLogDir              = "~/.local/share/polyscribe/logs"
	defaultWatchDir            = "~/.local/share/polyscribe/inbox"
	defaultServerBind          = "127.0.0.1:7491"
	defaultMaxUploadMB         = 16
	defaultEngineBaseURL       = "https://api.openai.com/v1"
	defaultEngineModel         = "whisper-1"
	defaultEngineTimeout       = 60
	defaultEngineRetryAttempts = 3
	defaultPipelineDeadline    = 120
	defaultRenderingLanguage   = "en"
	defaultSecondaryHint       = "zh"
	defaultHistoryRetention    = 30
	defaultNtfyTimeout         = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// DefaultHintInstruction asks the engine to keep both languages verbatim.
	DefaultHintInstruction = "这段录音可能包含中文和英文混合内容。请完整准确地转录所有语言，保持原始语言不要翻译。如果有英文单词或句子，请保留英文原文。" +
		"Chinese and English mixed content, transcribe exactly as spoken, do not translate."
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			WatchDir: defaultWatchDir,
		},
		Server: Server{
			Bind:        defaultServerBind,
			MaxUploadMB: defaultMaxUploadMB,
		},
		Engine: Engine{
			BaseURL:        defaultEngineBaseURL,
			Model:          defaultEngineModel,
			TimeoutSeconds: defaultEngineTimeout,
			RetryAttempts:  defaultEngineRetryAttempts,
		},
		Pipeline: Pipeline{
			DeadlineSeconds:   defaultPipelineDeadline,
			DefaultLanguage:   defaultRenderingLanguage,
			SecondaryHint:     defaultSecondaryHint,
			HintInstruction:   DefaultHintInstruction,
			SpeculativeSecond: false,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
