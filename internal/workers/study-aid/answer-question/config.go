// internal/workers/study-aid/answer-question/config.go
package answerquestion

import (
	"time"

	"precision-engine/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	MinQuestionLen int
	MaxQuestionLen int
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Config{
		Timeout:        timeout,
		MinQuestionLen: 10,
		MaxQuestionLen: 5000,
	}
}
