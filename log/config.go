package log

import (
	"github.com/rs/zerolog"

	"github.com/kochabx/gmkit/log/writer"
)

// Config 日志配置
type Config struct {
	Level     string     `json:"level" mapstructure:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Output    string     `json:"output" mapstructure:"output" default:"console" validate:"oneof=console file multi"`
	Caller    bool       `json:"caller" mapstructure:"caller"`
	Plaintext bool       `json:"plaintext" mapstructure:"plaintext"` // 关闭内置脱敏规则
	File      FileConfig `json:"file" mapstructure:"file"`

	Fields map[string]string `json:"fields" mapstructure:"fields"` // 固定字段，如 service、env
}

// FileConfig 日志文件配置
type FileConfig struct {
	Filepath         string            `json:"filepath" mapstructure:"filepath" default:"log"`
	Filename         string            `json:"filename" mapstructure:"filename" default:"gmkit"`
	FileExt          string            `json:"file_ext" mapstructure:"file_ext" default:"log"`
	RotateMode       writer.RotateMode `json:"rotate_mode" mapstructure:"rotate_mode" default:"size" validate:"oneof=time size"`
	RotatelogsConfig RotatelogsConfig  `json:"rotatelogs_config" mapstructure:"rotatelogs_config"`
	LumberjackConfig LumberjackConfig  `json:"lumberjack_config" mapstructure:"lumberjack_config"`
}

// RotatelogsConfig 按时间轮转配置
type RotatelogsConfig struct {
	MaxAge       int `json:"max_age" mapstructure:"max_age" default:"24"`
	RotationTime int `json:"rotation_time" mapstructure:"rotation_time" default:"1"`
}

// LumberjackConfig 按大小轮转配置
type LumberjackConfig struct {
	MaxSize    int  `json:"max_size" mapstructure:"max_size" default:"100"`
	MaxBackups int  `json:"max_backups" mapstructure:"max_backups" default:"5"`
	MaxAge     int  `json:"max_age" mapstructure:"max_age" default:"30"`
	Compress   bool `json:"compress" mapstructure:"compress"`
}

// options 将配置转换为 Logger 选项
func (c *Config) options() []Option {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	opts := []Option{WithLevel(level)}
	if c.Caller {
		opts = append(opts, WithCaller())
	}
	if !c.Plaintext {
		opts = append(opts, WithDesensitize(DefaultHook()))
	}
	if len(c.Fields) > 0 {
		fields := make(map[string]any, len(c.Fields))
		for k, v := range c.Fields {
			fields[k] = v
		}
		opts = append(opts, WithFields(fields))
	}
	return opts
}

// toWriterConfig 转换为 writer.RotateConfig
func (c *FileConfig) toWriterConfig() writer.RotateConfig {
	return writer.RotateConfig{
		Filepath: c.Filepath,
		Filename: c.Filename,
		FileExt:  c.FileExt,
		Mode:     c.RotateMode,
		Time: writer.TimeRotateConfig{
			MaxAge:       c.RotatelogsConfig.MaxAge,
			RotationTime: c.RotatelogsConfig.RotationTime,
		},
		Size: writer.SizeRotateConfig{
			MaxSize:    c.LumberjackConfig.MaxSize,
			MaxBackups: c.LumberjackConfig.MaxBackups,
			MaxAge:     c.LumberjackConfig.MaxAge,
			Compress:   c.LumberjackConfig.Compress,
		},
	}
}
