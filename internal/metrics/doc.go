// 版权所有 2024 AgentScope Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
消息格式化、LLM 调用与媒体缓存三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，实现 formatter.Recorder 与
    llm.RequestRecorder，可直接注入格式化管线与 Provider。

# 主要能力

  - 格式化指标：单次 Format 耗时、消息数、各类型分组数、
    媒体降级次数与 token 预算截断的分组数，按 provider 分组。
  - LLM 指标：请求总数、请求耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
*/
package metrics
