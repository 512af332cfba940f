package desensitize

import (
	"io"
)

// Writer 在写入前对每条日志应用 Hook
type Writer struct {
	writer io.Writer
	hook   *Hook
}

// NewWriter 创建脱敏 writer
func NewWriter(writer io.Writer, hook *Hook) *Writer {
	if writer == nil || hook == nil {
		panic("desensitize: nil writer or hook")
	}
	return &Writer{writer: writer, hook: hook}
}

// Write 返回值按原始数据长度计算，zerolog 依此判断短写
func (w *Writer) Write(p []byte) (int, error) {
	out, changed := w.hook.Apply(p)
	if !changed {
		return w.writer.Write(p)
	}
	if _, err := w.writer.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
