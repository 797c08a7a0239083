/*
Package formatter 把多发送者、多模态的消息列表整理成 provider 无关的中间结构。

处理流程为单向管道：

	[]types.Message → Classify → Group → Truncate → (Merge | passthrough) → provider 消息

各步骤：

  - Classify 把每条消息归入 SYSTEM、TOOL_SEQUENCE 或 AGENT_CONVERSATION 三类
  - Group 把连续同类消息划分为组，SYSTEM 组始终只含一条消息
  - Merger 把一个 AGENT_CONVERSATION 组折叠为 <history> 包裹的文本与媒体片段
  - Collapse 把工具结果渲染成纯文本
  - Pipeline 串起以上步骤，并负责校验、预算裁剪、指标与追踪

providers/anthropic 与 providers/dashscope 基于本包实现各自的请求映射。
每次格式化都会创建新的 FormatState，因此 formatter 本身只持有不可变配置，可并发使用。
*/
package formatter
