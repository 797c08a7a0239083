/*
包 anthropic 把统一消息模型转换为 Anthropic Messages API 请求，并解析其响应。

# 概述

格式化器基于 github.com/anthropics/anthropic-sdk-go 的参数类型构造请求：

  - MultiAgentFormatter：多智能体模式。连续的普通对话被合并为一条 user 消息，
    内容为带发送者标签的 <history> 记录；图片以内联块插入记录中。
  - ChatFormatter：单智能体模式，按角色直接映射。

两种模式下系统提示的处理与工具结果的拆分规则一致：第一条系统消息写入 system 字段，
之后的系统消息降级为 user 消息；每个 tool_result 单独成为一条 user 消息，
紧跟在产生它的消息之后。

Provider 通过 MessagesClient（*sdk.MessageService 满足该接口）发起请求，
并负责错误码映射、追踪与指标记录。
*/
package anthropic
