package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// RotateMode 日志轮转模式
type RotateMode string

const (
	// RotateModeTime 按时间轮转 (file-rotatelogs)
	RotateModeTime RotateMode = "time"
	// RotateModeSize 按大小轮转 (lumberjack)
	RotateModeSize RotateMode = "size"
)

// RotateConfig 日志轮转配置
type RotateConfig struct {
	Mode     RotateMode
	Filepath string
	Filename string
	FileExt  string
	Time     TimeRotateConfig
	Size     SizeRotateConfig
}

// TimeRotateConfig 按时间轮转配置
type TimeRotateConfig struct {
	MaxAge       int // 小时
	RotationTime int // 小时
}

// SizeRotateConfig 按大小轮转配置
type SizeRotateConfig struct {
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
}

// File 创建文件输出 writer，目录不存在时以 0700 创建
func File(c RotateConfig) (io.WriteCloser, error) {
	if err := os.MkdirAll(c.Filepath, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", c.Filepath, err)
	}
	switch c.Mode {
	case RotateModeTime:
		return timeRotateWriter(c)
	case RotateModeSize, "":
		return sizeRotateWriter(c), nil
	default:
		return nil, fmt.Errorf("unsupported rotate mode %q", c.Mode)
	}
}

// path 返回 dir/name[.suffix].ext
func (c *RotateConfig) path(suffix string) string {
	name := c.Filename
	if suffix != "" {
		name += "." + suffix
	}
	return filepath.Join(c.Filepath, name+"."+c.FileExt)
}
