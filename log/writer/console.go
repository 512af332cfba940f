package writer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Console 创建控制台输出 writer，out 为空时输出到 stdout，非标准输出不着色
func Console(out io.Writer) zerolog.ConsoleWriter {
	if out == nil {
		out = os.Stdout
	}
	return zerolog.ConsoleWriter{
		Out:         out,
		NoColor:     out != os.Stdout && out != os.Stderr,
		TimeFormat:  time.DateTime,
		FormatLevel: formatLevel,
	}
}

func formatLevel(i any) string {
	return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
}
