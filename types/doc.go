// Copyright (c) AgentScope Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentscope 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 formatter、media、
providers 等上层模块提供统一的类型契约。

# 核心类型

  - Message：不可变对话消息（ID、Role、Name、Content、Metadata）
  - ContentBlock：开放的内容块接口：Text、Thinking、Image、Audio、Video、ToolUse、ToolResult
  - Source：媒体来源：URLSource（远程 URL 或本地路径）与 Base64Source
  - ToolSchema：工具定义（name + description + JSON Schema parameters）
  - ToolChoice：auto / none / any / 指定工具
  - GenerateOptions：采样与长度参数
  - ChatResponse：解析后的 provider 响应
  - Error / ErrorCode：结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记

# 主要能力

  - JSON 编解码：内容块与 Source 以 "type" 字段区分具体类型
  - 提前校验：Message.Validate 拒绝缺少 id/name 的工具块
  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - Context 传播：WithTraceID / WithRunID / WithLLMModel
*/
package types
