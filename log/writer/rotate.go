package writer

import (
	"fmt"
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

func timeRotateWriter(c RotateConfig) (io.WriteCloser, error) {
	w, err := rotatelogs.New(
		c.path("%Y%m%d%H%M"),
		rotatelogs.WithLinkName(c.path("")),
		rotatelogs.WithMaxAge(time.Duration(c.Time.MaxAge)*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(c.Time.RotationTime)*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("create time rotate writer: %w", err)
	}
	return w, nil
}

func sizeRotateWriter(c RotateConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   c.path(""),
		MaxSize:    c.Size.MaxSize,
		MaxBackups: c.Size.MaxBackups,
		MaxAge:     c.Size.MaxAge,
		Compress:   c.Size.Compress,
	}
}
