// Copyright (c) AgentScope Authors.
// Licensed under the MIT License.

/*
Package main 提供 agentscope-format 命令行程序入口。

# 概述

agentscope-format 读取 JSON 格式的对话记录，按配置的 provider
（anthropic / dashscope）与模式（multi_agent / chat）格式化为厂商请求载荷，
逐个文件以 JSON Lines 输出。complete 子命令把格式化后的请求真正发给
provider，输出解析后的回复。

# 输入

每个输入文件是一个 types.Message 数组，或一个 llm.ChatRequest 对象
（messages / options / tools / tool_choice）。文件名为 "-" 或不给文件时读取标准输入。

# 主要能力

  - 子命令：format、complete、version
  - 配置：YAML 文件 + AGENTSCOPE_ 前缀环境变量，命令行参数覆盖
  - 并发：多个文件通过 errgroup 并行格式化，输出顺序与输入一致
  - 媒体：本地文件与远程 URL 内联，可选 Redis 缓存
  - 观测：zap 结构化日志、OpenTelemetry 链路、Prometheus textfile 指标
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
