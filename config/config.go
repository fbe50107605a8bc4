package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Video     VideoConfig     `yaml:"video"`
	Encoding  EncodingConfig  `yaml:"encoding"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Session   SessionConfig   `yaml:"session"`
	Research  ResearchConfig  `yaml:"research"`
	Story     StoryConfig     `yaml:"story"`
	Assets    AssetsConfig    `yaml:"assets"`
	Audio     AudioConfig     `yaml:"audio"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	SFX       SFXConfig       `yaml:"sfx"`
	Publish   PublishConfig   `yaml:"publish"`
	Paths     PathsConfig     `yaml:"paths"`
}

type PipelineConfig struct {
	DefaultDurationSec int  `yaml:"default_duration_sec"`
	MaxRetries         int  `yaml:"max_retries"`
	DisableTransitions bool `yaml:"disable_transitions"`
}

type VideoConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

type EncodingConfig struct {
	Quality string `yaml:"quality"` // low | medium | high | ultra
	Target  string `yaml:"target"`  // quality | size | streaming
	Format  string `yaml:"format"`  // mp4 | webm | avi | mkv
}

type FFmpegConfig struct {
	FFmpegPath           string `yaml:"ffmpeg_path"`
	FFprobePath          string `yaml:"ffprobe_path"`
	ComposeTimeoutSec    int    `yaml:"compose_timeout_sec"`
	TransitionTimeoutSec int    `yaml:"transition_timeout_sec"`
	EncodeTimeoutSec     int    `yaml:"encode_timeout_sec"`
	ProbeTimeoutSec      int    `yaml:"probe_timeout_sec"`
}

type SessionConfig struct {
	Backend            string      `yaml:"backend"` // memory | sqlite | redis
	SQLitePath         string      `yaml:"sqlite_path"`
	Redis              RedisConfig `yaml:"redis"`
	CleanupIntervalMin int         `yaml:"cleanup_interval_min"`
	MaxSessionAgeMin   int         `yaml:"max_session_age_min"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	UseTLS   bool   `yaml:"use_tls"`
}

type ResearchConfig struct {
	Subreddits   []string `yaml:"subreddits"`
	MaxPosts     int      `yaml:"max_posts"`
	MinScore     int      `yaml:"min_score"`
	LookbackDays int      `yaml:"lookback_days"`
}

type StoryConfig struct {
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	WordsPerMinute int     `yaml:"words_per_minute"`
}

type AssetsConfig struct {
	LibraryDir    string `yaml:"library_dir"`
	TagsFile      string `yaml:"tags_file"`
	UsageLog      string `yaml:"usage_log"`
	ImageEndpoint string `yaml:"image_endpoint"`
}

type AudioConfig struct {
	TTSEndpoint  string `yaml:"tts_endpoint"`
	Voice        string `yaml:"voice"`
	SampleRate   int    `yaml:"sample_rate"`
	OutputFormat string `yaml:"output_format"`
}

type SubtitlesConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Font            string  `yaml:"font"`
	FontSize        int     `yaml:"font_size"`
	Bold            bool    `yaml:"bold"`
	OutlineWidth    float64 `yaml:"outline_width"`
	MarginBottom    int     `yaml:"margin_bottom"`
	MaxCharsPerLine int     `yaml:"max_chars_per_line"`
}

type SFXConfig struct {
	Enabled    bool    `yaml:"enabled"`
	LibraryDir string  `yaml:"library_dir"`
	TagsFile   string  `yaml:"tags_file"`
	DefaultBed string  `yaml:"default_bed"`
	Volume     float64 `yaml:"volume"`
	FadeInSec  float64 `yaml:"fade_in_sec"`
	FadeOutSec float64 `yaml:"fade_out_sec"`
}

type PublishConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
	Data   string `yaml:"data"`
}

// Load reads a YAML config file and returns a Config struct.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Pipeline.DefaultDurationSec == 0 {
		c.Pipeline.DefaultDurationSec = 60
	}
	if c.Pipeline.MaxRetries == 0 {
		c.Pipeline.MaxRetries = 3
	}
	if c.Video.Width == 0 {
		c.Video.Width = 1920
	}
	if c.Video.Height == 0 {
		c.Video.Height = 1080
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = 30
	}
	if c.Encoding.Quality == "" {
		c.Encoding.Quality = "high"
	}
	if c.Encoding.Target == "" {
		c.Encoding.Target = "quality"
	}
	if c.Encoding.Format == "" {
		c.Encoding.Format = "mp4"
	}
	if c.FFmpeg.FFmpegPath == "" {
		c.FFmpeg.FFmpegPath = "ffmpeg"
	}
	if c.FFmpeg.FFprobePath == "" {
		c.FFmpeg.FFprobePath = "ffprobe"
	}
	if c.FFmpeg.ComposeTimeoutSec == 0 {
		c.FFmpeg.ComposeTimeoutSec = 300
	}
	if c.FFmpeg.TransitionTimeoutSec == 0 {
		c.FFmpeg.TransitionTimeoutSec = 600
	}
	if c.FFmpeg.EncodeTimeoutSec == 0 {
		c.FFmpeg.EncodeTimeoutSec = 1800
	}
	if c.FFmpeg.ProbeTimeoutSec == 0 {
		c.FFmpeg.ProbeTimeoutSec = 30
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.SQLitePath == "" {
		c.Session.SQLitePath = "data/sessions.db"
	}
	if c.Session.CleanupIntervalMin == 0 {
		c.Session.CleanupIntervalMin = 5
	}
	if c.Session.MaxSessionAgeMin == 0 {
		c.Session.MaxSessionAgeMin = 60
	}
	if c.Research.MaxPosts == 0 {
		c.Research.MaxPosts = 10
	}
	if c.Story.Model == "" {
		c.Story.Model = "gemini-2.0-flash"
	}
	if c.Story.Temperature == 0 {
		c.Story.Temperature = 0.7
	}
	if c.Story.WordsPerMinute == 0 {
		c.Story.WordsPerMinute = 130
	}
	if c.Assets.LibraryDir == "" {
		c.Assets.LibraryDir = "assets/video"
	}
	if c.Assets.TagsFile == "" {
		c.Assets.TagsFile = "assets/video/tags.json"
	}
	if c.Assets.UsageLog == "" {
		c.Assets.UsageLog = "data/clip_usage.json"
	}
	if c.Assets.ImageEndpoint == "" {
		c.Assets.ImageEndpoint = "https://image.pollinations.ai"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 24000
	}
	if c.Audio.OutputFormat == "" {
		c.Audio.OutputFormat = "mp3"
	}
	if c.Subtitles.Font == "" {
		c.Subtitles.Font = "Arial"
	}
	if c.Subtitles.FontSize == 0 {
		c.Subtitles.FontSize = 28
	}
	if c.Subtitles.OutlineWidth == 0 {
		c.Subtitles.OutlineWidth = 2
	}
	if c.Subtitles.MarginBottom == 0 {
		c.Subtitles.MarginBottom = 40
	}
	if c.Subtitles.MaxCharsPerLine == 0 {
		c.Subtitles.MaxCharsPerLine = 42
	}
	if c.SFX.LibraryDir == "" {
		c.SFX.LibraryDir = "assets/sfx"
	}
	if c.SFX.TagsFile == "" {
		c.SFX.TagsFile = "assets/sfx/tags.json"
	}
	if c.SFX.Volume == 0 {
		c.SFX.Volume = 0.2
	}
	if c.SFX.FadeInSec == 0 {
		c.SFX.FadeInSec = 0.5
	}
	if c.SFX.FadeOutSec == 0 {
		c.SFX.FadeOutSec = 1.0
	}
	if c.Publish.Visibility == "" {
		c.Publish.Visibility = "private"
	}
	if c.Publish.CategoryID == "" {
		c.Publish.CategoryID = "22"
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "logs"
	}
	if c.Paths.Data == "" {
		c.Paths.Data = "data"
	}
}

// TransitionsEnabled reports whether the assembly engine should chain scene
// segments with transition effects.
func (c *Config) TransitionsEnabled() bool {
	return !c.Pipeline.DisableTransitions
}

// ComposeTimeout returns the composition run timeout as a duration.
func (c *Config) ComposeTimeout() time.Duration {
	return time.Duration(c.FFmpeg.ComposeTimeoutSec) * time.Second
}

// TransitionTimeout returns the transition-chain run timeout as a duration.
func (c *Config) TransitionTimeout() time.Duration {
	return time.Duration(c.FFmpeg.TransitionTimeoutSec) * time.Second
}

// EncodeTimeout returns the final encode timeout as a duration.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.FFmpeg.EncodeTimeoutSec) * time.Second
}

// ProbeTimeout returns the metadata probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.FFmpeg.ProbeTimeoutSec) * time.Second
}
