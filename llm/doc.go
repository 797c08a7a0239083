// 版权所有 2024 AgentScope Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义与厂商无关的请求模型与 Provider 接口，具体实现位于
providers/anthropic 与 providers/dashscope。

# 概述

多智能体对话由 types.Message 组成，每个 Provider 在发送前用自己的
多智能体格式化器（见 llm/formatter）把消息转换为厂商载荷。本包只声明
调用方依赖的最小接口，格式化、媒体解析与分词分别在子包中实现。

# 核心接口

  - [Provider]：Name / BuildPayload / Completion。BuildPayload 只做格式化，
    不发起网络请求，CLI 的 format 子命令直接输出它的结果。
  - [RequestRecorder]：每次 Completion 的统计出口，internal/metrics.Collector
    实现该接口。

# 核心类型

  - [ChatRequest]：消息、生成参数、工具定义与工具选择。

# 子包

  - formatter：分组、合并、截断的共享管道
  - media：图片 / 音频 / 视频来源解析与内联，可选 Redis 缓存
  - tokenizer：tiktoken 与估算两种分词器，用于历史截断
  - observability：OpenTelemetry span 与指标
*/
package llm
