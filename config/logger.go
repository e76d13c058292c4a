package config

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level            string   `json:"level" yaml:"level"`                       // 日志级别: debug/info/warn/error
	Encoding         string   `json:"encoding" yaml:"encoding"`                 // 编码方式: json/console
	EnableColor      bool     `json:"enableColor" yaml:"enableColor"`           // console 模式下是否启用彩色等级
	Development      bool     `json:"development" yaml:"development"`           // 开发模式（Error 级别带堆栈）
	OutputPaths      []string `json:"outputPaths" yaml:"outputPaths"`           // 普通日志输出路径（stdout/stderr/文件）
	ErrorOutputPaths []string `json:"errorOutputPaths" yaml:"errorOutputPaths"` // 错误日志输出路径
}

// DefaultLoggerConfig 返回本地开发的默认配置
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:            "info",
		Encoding:         "console",
		EnableColor:      true,
		Development:      true,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}
