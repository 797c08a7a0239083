// Package config 提供 AgentScope 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → AGENTSCOPE_* 环境变量 的顺序加载，
// 覆盖格式化、媒体解析、Redis 缓存、各 Provider、日志、指标与遥测。
package config
