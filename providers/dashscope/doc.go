/*
包 dashscope 把统一消息模型转换为阿里云 DashScope（通义千问）原生生成接口的请求，
并解析其响应。

# 概述

DashScope 没有独立的 system 字段，第一条系统消息以 system 角色发送，
之后的系统消息降级为 user 角色。工具结果以 tool 角色消息发送，
携带 tool_call_id 与工具名。

# 文本与多模态

  - 文本模式：content 为字符串，多智能体记录中的媒体渲染为 [Image] 等占位文本，
    请求发送到 text-generation 接口。
  - 多模态模式：content 为 {text}|{image}|{audio}|{video} 列表，媒体经 Resolver
    解析后以 URL 或 data URI 内联，请求发送到 multimodal-generation 接口。

Provider 基于 net/http 实现，使用 Bearer 认证。
*/
package dashscope
