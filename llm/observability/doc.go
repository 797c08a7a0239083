// 版权所有 2024 AgentScope Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 observability 提供格式化管道与 provider 调用的 OpenTelemetry 仪表。

# 概述

Metrics 同时持有 Tracer 与 Meter。formatter.Pipeline 用它包裹每次
格式化（span "formatter.Format"），providers 用它包裹每次 Completion
（span "provider.Completion"），llm/media 用它记录媒体解析结果。

# 指标

  - formatter.format.total / formatter.format.duration：按 provider、status 统计
  - formatter.groups：按 provider、分组类型统计
  - media.resolutions：按 kind、source、outcome 统计
  - llm.request.total / llm.request.duration / llm.token.total / llm.error.total

Default 基于全局 provider 创建，telemetry.Init 之后设置的全局 provider
同样生效；测试可通过 NewMetrics 注入 SDK provider。
*/
package observability
