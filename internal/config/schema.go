package config

// Config holds lectern configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Vault      VaultCfg      `mapstructure:"vault" yaml:"vault"`
	Processing ProcessingCfg `mapstructure:"processing" yaml:"processing"`
	OCR        OCRCfg        `mapstructure:"ocr" yaml:"ocr"`
	TextGen    TextGenCfg    `mapstructure:"textgen" yaml:"textgen"`
}

// VaultCfg locates the markdown vault the pipeline writes into.
type VaultCfg struct {
	Path       string `mapstructure:"path" yaml:"path"`               // vault root directory
	LibraryDir string `mapstructure:"library_dir" yaml:"library_dir"` // subdirectory for processed books
}

// ProcessingCfg holds pipeline tuning knobs.
type ProcessingCfg struct {
	DefaultQuality string `mapstructure:"default_quality" yaml:"default_quality"` // draft, standard, high, academic
	MaxFileSizeMB  int    `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
	MaxWorkers     int    `mapstructure:"max_workers" yaml:"max_workers"`   // bounded page-range workers
	WindowPages    int    `mapstructure:"window_pages" yaml:"window_pages"` // pages per extraction window
	Language       string `mapstructure:"language" yaml:"language"`         // default book language
}

// OCRCfg configures the external OCR engine.
type OCRCfg struct {
	Binary   string `mapstructure:"binary" yaml:"binary"`     // tesseract binary name or path
	Language string `mapstructure:"language" yaml:"language"` // tesseract language hint, e.g. "por+eng"
}

// TextGenCfg configures the optional text-generation collaborator used to
// clean up poorly extracted pages. Disabled by default.
type TextGenCfg struct {
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
	Model     string  `mapstructure:"model" yaml:"model"`
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultCfg{
			Path:       "~/Documents/Obsidian/Philosophy",
			LibraryDir: "01-READINGS",
		},
		Processing: ProcessingCfg{
			DefaultQuality: "standard",
			MaxFileSizeMB:  100,
			MaxWorkers:     4,
			WindowPages:    10,
			Language:       "pt",
		},
		OCR: OCRCfg{
			Binary:   "tesseract",
			Language: "por+eng",
		},
		TextGen: TextGenCfg{
			Enabled:   false,
			Model:     "gpt-4o-mini",
			APIKey:    "${OPENAI_API_KEY}",
			RateLimit: 2.0,
		},
	}
}
