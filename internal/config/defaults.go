package config

const (
	defaultConfigPath            = "~/.config/atelier/config.toml"
	defaultDataDir               = "~/.local/share/atelier"
	defaultUploadDir             = "~/.local/share/atelier/uploads"
	defaultLogDir                = "~/.local/share/atelier/logs"
	defaultAPIBind               = "127.0.0.1:5000"
	defaultLLMProvider           = ProviderOpenAI
	defaultOpenAIBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel              = "gpt-4"
	defaultLLMReferer            = "https://github.com/atelier/atelier"
	defaultLLMTitle              = "Atelier"
	defaultLLMTimeoutSeconds     = 120
	defaultLLMRetryAttempts      = 5
	defaultStylistTemperature    = 0.7
	defaultUploadMaxBytes        = 16 * 1024 * 1024
	defaultPinterestBaseURL      = "https://api.pinterest.com/v5"
	defaultUnsplashBaseURL       = "https://api.unsplash.com"
	defaultImageSearchLimit      = 10
	defaultImageSearchTimeout    = 15
	defaultForgeOutputDir        = "website_files"
	defaultForgeSubject          = "a website for selling bananas"
	defaultForgePrompt           = "Create a website in HTML, CSS, and JavaScript for selling bananas. Include a homepage, product listing, and a contact form."
	defaultForgeGeneratorModel   = "gpt-4o-mini"
	defaultForgeMaxIterations    = 5
	defaultForgeVariants         = 1
	defaultForgeConcurrency      = 4
	defaultGeneratorTemperature  = 0.8
	defaultReviewerTemperature   = 0.3
	defaultConvergenceSimilarity = 1.0
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultReviewerPromptFixes   = "Please review the code and fix any errors or issues you see."
	defaultReviewerPromptInspect = "Please inspect the code for any bugs or improvements and return a corrected version."
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

var defaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultOpenAIBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Stylist: Stylist{
			Temperature: defaultStylistTemperature,
		},
		Uploads: Uploads{
			MaxBytes:          defaultUploadMaxBytes,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		ImageSearch: ImageSearch{
			PinterestBaseURL: defaultPinterestBaseURL,
			UnsplashBaseURL:  defaultUnsplashBaseURL,
			Limit:            defaultImageSearchLimit,
			TimeoutSeconds:   defaultImageSearchTimeout,
		},
		Forge: Forge{
			OutputDir:             defaultForgeOutputDir,
			Prompt:                defaultForgePrompt,
			Subject:               defaultForgeSubject,
			GeneratorModel:        defaultForgeGeneratorModel,
			MaxIterations:         defaultForgeMaxIterations,
			Variants:              defaultForgeVariants,
			Concurrency:           defaultForgeConcurrency,
			ReviewerPrompts:       []string{defaultReviewerPromptFixes, defaultReviewerPromptInspect},
			GeneratorTemperature:  defaultGeneratorTemperature,
			ReviewerTemperature:   defaultReviewerTemperature,
			ConvergenceSimilarity: defaultConvergenceSimilarity,
			LogRuns:               true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
