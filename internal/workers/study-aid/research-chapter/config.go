// internal/workers/study-aid/research-chapter/config.go
package researchchapter

import (
	"time"

	"precision-engine/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	CacheTTL      time.Duration
	CachePrefix   string
	ArchiveIndex  string
	MinChapterLen int
	MaxChapterLen int
}

func LoadConfig(wc config.WorkerConfig, rc config.ResearchConfig) *Config {
	cfg := &Config{
		Timeout:       config.GetDuration(wc.Timeout),
		CacheTTL:      config.GetDuration(rc.CacheTTL),
		CachePrefix:   rc.CachePrefix,
		ArchiveIndex:  rc.ArchiveIndex,
		MinChapterLen: 3,
		MaxChapterLen: 200,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "research:v1:"
	}
	if cfg.ArchiveIndex == "" {
		cfg.ArchiveIndex = "chapter-research"
	}
	return cfg
}
